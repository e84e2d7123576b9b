package handlers

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Order Handlers ---
//

// checkoutItem is one cart line loaded (and row-locked) during checkout.
type checkoutItem struct {
	ProductID   int64
	ProductName string
	Quantity    int
	Price       float64 // current price from the products table
	Inventory   int
	Active      bool
}

// CreateOrderInput is the JSON body for POST /api/orders
type CreateOrderInput struct {
	ShippingAddress models.ShippingAddress `json:"shippingAddress" binding:"required"`
	Notes           *string                `json:"notes"`
}

// CreateOrder is the handler for POST /api/orders.
//
// The whole placement runs in one serializable transaction: cart load
// with product rows locked, validation, order + item snapshot inserts,
// inventory decrements and cart clearing commit together or not at all.
// The operation is deliberately not idempotent; retry guarding is the
// caller's concern.
func (h *Handlers) CreateOrder(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input CreateOrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := h.DB.BeginTx(c, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start transaction"})
		return
	}
	defer tx.Rollback() // safety net

	var cartID int64
	err = tx.QueryRow("SELECT id FROM carts WHERE user_id = ?", userID).Scan(&cartID)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to find cart"})
		return
	}

	// Lock the product rows so concurrent checkouts serialize on the
	// inventory check-then-decrement.
	rows, err := tx.Query(`
		SELECT ci.product_id, p.name, ci.quantity, p.price, p.inventory, p.active
		FROM cart_items ci
		JOIN products p ON ci.product_id = p.id
		WHERE ci.cart_id = ?
		FOR UPDATE`, cartID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart items"})
		return
	}

	var items []checkoutItem
	for rows.Next() {
		var item checkoutItem
		if err := rows.Scan(&item.ProductID, &item.ProductName, &item.Quantity, &item.Price, &item.Inventory, &item.Active); err != nil {
			rows.Close()
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan cart item"})
			return
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating cart items"})
		return
	}
	rows.Close()

	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
		return
	}

	// Validate everything before writing anything. No partial orders.
	var subtotal float64
	for _, item := range items {
		if !item.Active {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Product %s is not available", item.ProductName)})
			return
		}
		if item.Inventory < item.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient inventory for %s", item.ProductName)})
			return
		}
		subtotal += item.Price * float64(item.Quantity)
	}
	subtotal = roundCents(subtotal)

	tax := calculateTax(subtotal, h.Cfg.TaxRate)
	shippingCost := calculateShipping(subtotal, shippingTiers{
		FreeMin:  h.Cfg.FreeShippingMin,
		MidMin:   h.Cfg.MidShippingMin,
		MidCost:  h.Cfg.MidShippingCost,
		BaseCost: h.Cfg.BaseShippingCost,
	})
	total := roundCents(subtotal + tax + shippingCost)

	orderNumber := generateOrderNumber()
	addressJSON, err := json.Marshal(input.ShippingAddress)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode shipping address"})
		return
	}

	now := time.Now()
	result, err := tx.Exec(`
		INSERT INTO orders (user_id, order_number, status, subtotal, tax, shipping_cost, total, shipping_address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		userID, orderNumber, models.OrderStatusPending, subtotal, tax, shippingCost, total,
		string(addressJSON), input.Notes, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
		return
	}
	orderID, err := result.LastInsertId()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get new order ID"})
		return
	}

	for _, item := range items {
		// Snapshot the current price into the order item.
		_, err := tx.Exec(`
			INSERT INTO order_items (order_id, product_id, quantity, price, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			orderID, item.ProductID, item.Quantity, item.Price, now)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save order item"})
			return
		}

		// The inventory >= quantity guard keeps stock from ever going
		// negative even if the earlier check raced.
		decResult, err := tx.Exec(
			"UPDATE products SET inventory = inventory - ? WHERE id = ? AND inventory >= ?",
			item.Quantity, item.ProductID, item.Quantity)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decrement inventory"})
			return
		}
		if affected, _ := decResult.RowsAffected(); affected == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Insufficient inventory for %s", item.ProductName)})
			return
		}
	}

	if _, err := tx.Exec("DELETE FROM cart_items WHERE cart_id = ?", cartID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to commit order"})
		return
	}

	// Fire-and-forget confirmation mail.
	var userEmail string
	if err := h.DB.QueryRow("SELECT email FROM users WHERE id = ?", userID).Scan(&userEmail); err == nil {
		h.Mailer.SendOrderConfirmation(userEmail, orderNumber, total)
	}

	order := models.Order{
		ID:              orderID,
		UserID:          userID,
		OrderNumber:     orderNumber,
		Status:          models.OrderStatusPending,
		Subtotal:        subtotal,
		Tax:             tax,
		ShippingCost:    shippingCost,
		Total:           total,
		ShippingAddress: input.ShippingAddress,
		Notes:           input.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for _, item := range items {
		order.Items = append(order.Items, models.OrderItem{
			OrderID:     orderID,
			ProductID:   item.ProductID,
			Quantity:    item.Quantity,
			Price:       item.Price,
			ProductName: item.ProductName,
			CreatedAt:   now,
		})
	}

	c.JSON(http.StatusCreated, order)
}

// scanOrder reads one order row including the JSON shipping address.
func scanOrder(scanner interface{ Scan(...interface{}) error }) (models.Order, error) {
	var o models.Order
	var addressJSON string
	err := scanner.Scan(&o.ID, &o.UserID, &o.OrderNumber, &o.Status, &o.Subtotal, &o.Tax,
		&o.ShippingCost, &o.Total, &addressJSON, &o.Notes, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal([]byte(addressJSON), &o.ShippingAddress); err != nil {
		return o, err
	}
	return o, nil
}

const orderColumns = "id, user_id, order_number, status, subtotal, tax, shipping_cost, total, shipping_address, notes, created_at, updated_at"

// loadOrderItems attaches an order's item rows with product names.
func (h *Handlers) loadOrderItems(orderID int64) ([]models.OrderItem, error) {
	rows, err := h.DB.Query(`
		SELECT oi.id, oi.order_id, COALESCE(oi.product_id, 0), oi.quantity, oi.price, oi.created_at,
			COALESCE(p.name, ''), COALESCE(p.slug, '')
		FROM order_items oi
		LEFT JOIN products p ON oi.product_id = p.id
		WHERE oi.order_id = ?`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []models.OrderItem{}
	for rows.Next() {
		var item models.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price,
			&item.CreatedAt, &item.ProductName, &item.ProductSlug); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// loadOrderPayment attaches the payment row, if any.
func (h *Handlers) loadOrderPayment(orderID int64) (*models.Payment, error) {
	var p models.Payment
	err := h.DB.QueryRow(`
		SELECT id, order_id, amount, status, stripe_id, payment_method, created_at, updated_at
		FROM payments WHERE order_id = ?`, orderID).
		Scan(&p.ID, &p.OrderID, &p.Amount, &p.Status, &p.StripeID, &p.PaymentMethod, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// isAdmin reports whether the user carries the ADMIN role.
func (h *Handlers) isAdmin(userID int64) bool {
	var role string
	if err := h.DB.QueryRow("SELECT role FROM users WHERE id = ?", userID).Scan(&role); err != nil {
		return false
	}
	return role == models.RoleAdmin
}

// GetOrders is the handler for GET /api/orders. Regular users see
// their own orders; admins see everything and may filter by status
// and user.
func (h *Handlers) GetOrders(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 100 {
		limit = 10
	}

	admin := h.isAdmin(userID)

	where := "WHERE 1=1"
	args := []interface{}{}

	if !admin {
		where += " AND user_id = ?"
		args = append(args, userID)
	} else if filterUser := c.Query("userId"); filterUser != "" {
		where += " AND user_id = ?"
		args = append(args, filterUser)
	}
	if status := c.Query("status"); status != "" {
		if !models.ValidOrderStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
			return
		}
		where += " AND status = ?"
		args = append(args, status)
	}

	var total int
	if err := h.DB.QueryRow("SELECT COUNT(*) FROM orders "+where, args...).Scan(&total); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count orders"})
		return
	}

	query := fmt.Sprintf("SELECT %s FROM orders %s ORDER BY created_at DESC LIMIT ? OFFSET ?", orderColumns, where)
	args = append(args, limit, (page-1)*limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}
	defer rows.Close()

	orders := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan order"})
			return
		}
		orders = append(orders, o)
	}

	for i := range orders {
		items, err := h.loadOrderItems(orders[i].ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
			return
		}
		orders[i].Items = items
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + limit - 1) / limit,
		},
	})
}

// GetOrder is the handler for GET /api/orders/:id. Owners and admins only.
func (h *Handlers) GetOrder(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)
	orderID := c.Param("id")

	o, err := scanOrder(h.DB.QueryRow(
		fmt.Sprintf("SELECT %s FROM orders WHERE id = ?", orderColumns), orderID))
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if o.UserID != userID && !h.isAdmin(userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	items, err := h.loadOrderItems(o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order items"})
		return
	}
	o.Items = items

	payment, err := h.loadOrderPayment(o.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return
	}
	o.Payment = payment

	c.JSON(http.StatusOK, o)
}

// UpdateOrderStatusInput is the JSON body for PUT /api/orders/:id/status
type UpdateOrderStatusInput struct {
	Status string `json:"status" binding:"required"`
}

// UpdateOrderStatus is the handler for PUT /api/orders/:id/status (admin-only)
func (h *Handlers) UpdateOrderStatus(c *gin.Context) {
	orderID := c.Param("id")

	var input UpdateOrderStatusInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !models.ValidOrderStatus(input.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order status"})
		return
	}

	result, err := h.DB.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		input.Status, time.Now(), orderID)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order status"})
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "status": input.Status})
}

// overdueOrderAge is how long a PENDING order may wait for payment
// before the reaper cancels it and returns its stock.
const overdueOrderAge = 24 * time.Hour

// ProcessOverdueOrders cancels unpaid PENDING orders past the cutoff
// and restores their inventory. Invoked periodically from main.
func (h *Handlers) ProcessOverdueOrders() {
	cutoff := time.Now().Add(-overdueOrderAge)

	rows, err := h.DB.Query(`
		SELECT o.id FROM orders o
		LEFT JOIN payments p ON p.order_id = o.id AND p.status = ?
		WHERE o.status = ? AND o.created_at < ? AND p.id IS NULL`,
		models.PaymentStatusCompleted, models.OrderStatusPending, cutoff)
	if err != nil {
		h.Log.Error("overdue order scan failed", zap.Error(err))
		return
	}
	defer rows.Close()

	var orderIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			h.Log.Error("overdue order scan failed", zap.Error(err))
			return
		}
		orderIDs = append(orderIDs, id)
	}

	for _, orderID := range orderIDs {
		if err := h.cancelOverdueOrder(orderID); err != nil {
			h.Log.Error("failed to cancel overdue order", zap.Int64("orderID", orderID), zap.Error(err))
			continue
		}
		h.Log.Info("cancelled overdue order", zap.Int64("orderID", orderID))
	}
}

// cancelOverdueOrder flips one order to CANCELLED and restores the
// decremented inventory, atomically.
func (h *Handlers) cancelOverdueOrder(orderID int64) error {
	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Re-check under the transaction; the order may have been paid or
	// cancelled between the scan and now.
	var status string
	if err := tx.QueryRow("SELECT status FROM orders WHERE id = ? FOR UPDATE", orderID).Scan(&status); err != nil {
		return err
	}
	if status != models.OrderStatusPending {
		return nil
	}

	if _, err := tx.Exec(`
		UPDATE products p
		JOIN order_items oi ON oi.product_id = p.id
		SET p.inventory = p.inventory + oi.quantity
		WHERE oi.order_id = ?`, orderID); err != nil {
		return err
	}

	if _, err := tx.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		models.OrderStatusCancelled, time.Now(), orderID); err != nil {
		return err
	}

	return tx.Commit()
}
