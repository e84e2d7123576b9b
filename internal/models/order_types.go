package models

import "time"

// Order statuses. PENDING -> PROCESSING -> SHIPPED -> DELIVERED is the
// happy path; CANCELLED and REFUNDED are terminal side branches.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
	OrderStatusRefunded   = "REFUNDED"
)

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// ShippingAddress is stored on the order as a JSON column.
type ShippingAddress struct {
	FullName   string `json:"fullName" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Phone      string `json:"phone,omitempty"`
}

// Order is the model for the 'orders' table. Totals are computed at
// creation time and never recomputed; only status and the payment
// linkage change afterwards.
type Order struct {
	ID              int64           `json:"id" db:"id"`
	UserID          int64           `json:"userId" db:"user_id"`
	OrderNumber     string          `json:"orderNumber" db:"order_number"`
	Status          string          `json:"status" db:"status"`
	Subtotal        float64         `json:"subtotal" db:"subtotal"`
	Tax             float64         `json:"tax" db:"tax"`
	ShippingCost    float64         `json:"shippingCost" db:"shipping_cost"`
	Total           float64         `json:"total" db:"total"`
	ShippingAddress ShippingAddress `json:"shippingAddress" db:"shipping_address"`
	Notes           *string         `json:"notes,omitempty" db:"notes"`
	CreatedAt       time.Time       `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time       `json:"updatedAt" db:"updated_at"`

	// Joins (populated manually)
	Items   []OrderItem `json:"items,omitempty" db:"-"`
	Payment *Payment    `json:"payment,omitempty" db:"-"`
}

// OrderItem is the model for the 'order_items' table. Price is the
// snapshot of the product price at order time, never mutated after.
type OrderItem struct {
	ID        int64     `json:"id" db:"id"`
	OrderID   int64     `json:"orderId" db:"order_id"`
	ProductID int64     `json:"productId" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Price     float64   `json:"price" db:"price"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`

	// Joins
	ProductName string `json:"productName,omitempty" db:"-"`
	ProductSlug string `json:"productSlug,omitempty" db:"-"`
}
