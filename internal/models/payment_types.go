package models

import "time"

// Payment statuses.
const (
	PaymentStatusPending   = "PENDING"
	PaymentStatusCompleted = "COMPLETED"
	PaymentStatusFailed    = "FAILED"
	PaymentStatusRefunded  = "REFUNDED"
)

// Payment is the model for the 'payments' table; one-to-one with an
// order, created and updated only by the payment handlers.
type Payment struct {
	ID            int64     `json:"id" db:"id"`
	OrderID       int64     `json:"orderId" db:"order_id"`
	Amount        float64   `json:"amount" db:"amount"`
	Status        string    `json:"status" db:"status"`
	StripeID      *string   `json:"stripeId,omitempty" db:"stripe_id"`
	PaymentMethod *string   `json:"paymentMethod,omitempty" db:"payment_method"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}
