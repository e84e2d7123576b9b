package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/models"
)

//
// --- Payment Handlers ---
//

// CreatePaymentIntentInput is the JSON body for POST /api/payments/create-intent
type CreatePaymentIntentInput struct {
	OrderID int64 `json:"orderId" binding:"required"`
}

// CreatePaymentIntent is the handler for POST /api/payments/create-intent.
// It asks Stripe for a payment intent covering the order total and
// upserts the local Payment row as PENDING with the intent id.
func (h *Handlers) CreatePaymentIntent(c *gin.Context) {
	userIDRaw, _ := c.Get("userID")
	userID := userIDRaw.(int64)

	var input CreatePaymentIntentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var order models.Order
	err := h.DB.QueryRow("SELECT id, user_id, order_number, total FROM orders WHERE id = ?", input.OrderID).
		Scan(&order.ID, &order.UserID, &order.OrderNumber, &order.Total)
	if err != nil {
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
			return
		}
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch order"})
		return
	}

	if order.UserID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Unauthorized"})
		return
	}

	var paymentStatus string
	err = h.DB.QueryRow("SELECT status FROM payments WHERE order_id = ?", order.ID).Scan(&paymentStatus)
	if err != nil && err != sql.ErrNoRows {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return
	}
	if paymentStatus == models.PaymentStatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order already paid"})
		return
	}

	// Stripe wants integer minor units.
	amount := int64(math.Round(order.Total * 100))

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
	}
	params.AddMetadata("orderId", strconv.FormatInt(order.ID, 10))
	params.AddMetadata("orderNumber", order.OrderNumber)
	params.AddMetadata("userId", strconv.FormatInt(userID, 10))

	intent, err := paymentintent.New(params)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment intent"})
		return
	}

	now := time.Now()
	_, err = h.DB.Exec(`
		INSERT INTO payments (order_id, amount, status, stripe_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			stripe_id = VALUES(stripe_id),
			status = VALUES(status),
			updated_at = VALUES(updated_at)`,
		order.ID, order.Total, models.PaymentStatusPending, intent.ID, now, now)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record payment"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.ID,
	})
}

// HandleWebhook is the handler for POST /api/payments/webhook. The
// route hands over the raw body because signature verification is
// byte-exact; nothing is interpreted before the signature passes.
func (h *Handlers) HandleWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read request body"})
		return
	}

	sig := c.GetHeader("Stripe-Signature")
	if sig == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No signature provided"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, h.Cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Webhook signature verification failed"})
		return
	}

	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event payload"})
			return
		}
		if err := h.applyPaymentSuccess(&intent); err != nil {
			h.Log.Error("failed to apply payment success",
				zap.String("paymentIntent", intent.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}

	case "payment_intent.payment_failed":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event payload"})
			return
		}
		if err := h.applyPaymentFailure(&intent); err != nil {
			h.Log.Error("failed to apply payment failure",
				zap.String("paymentIntent", intent.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event payload"})
			return
		}
		if err := h.applyChargeRefund(&charge); err != nil {
			h.Log.Error("failed to apply refund",
				zap.String("charge", charge.ID),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
			return
		}

	default:
		h.Log.Debug("ignoring webhook event", zap.String("type", string(event.Type)))
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// orderIDFromIntent pulls the order id that CreatePaymentIntent stashed
// in the intent metadata.
func orderIDFromIntent(intent *stripe.PaymentIntent) (int64, error) {
	raw, ok := intent.Metadata["orderId"]
	if !ok {
		return 0, errors.New("payment intent has no orderId metadata")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// applyPaymentSuccess marks the payment COMPLETED and promotes the
// order from PENDING to PROCESSING. Both updates commit together so a
// crash cannot leave a paid order stuck in PENDING. Replays are
// harmless: a second delivery finds the rows already updated.
func (h *Handlers) applyPaymentSuccess(intent *stripe.PaymentIntent) error {
	orderID, err := orderIDFromIntent(intent)
	if err != nil {
		return err
	}

	var method *string
	if intent.PaymentMethod != nil {
		method = &intent.PaymentMethod.ID
	}

	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now()

	// The local row normally exists from CreatePaymentIntent, but the
	// event may arrive for an intent whose row was never written (lost
	// insert, intent created out of band). Recreate it from the event
	// rather than promoting an order with no payment record.
	var exists int
	if err := tx.QueryRow("SELECT COUNT(*) FROM payments WHERE order_id = ?", orderID).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		_, err = tx.Exec(`
			INSERT INTO payments (order_id, amount, status, stripe_id, payment_method, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, float64(intent.Amount)/100, models.PaymentStatusCompleted, intent.ID, method, now, now)
	} else {
		_, err = tx.Exec(`
			UPDATE payments SET status = ?, payment_method = ?, stripe_id = ?, updated_at = ?
			WHERE order_id = ?`,
			models.PaymentStatusCompleted, method, intent.ID, now, orderID)
	}
	if err != nil {
		return err
	}

	// Only a PENDING order moves forward; a cancelled or shipped order
	// is left alone for manual review.
	_, err = tx.Exec(`
		UPDATE orders SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		models.OrderStatusProcessing, now, orderID, models.OrderStatusPending)
	if err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	h.Log.Info("payment completed",
		zap.Int64("orderID", orderID),
		zap.String("paymentIntent", intent.ID))
	return nil
}

// applyPaymentFailure records the failure. The order stays PENDING so
// the customer can retry; the overdue reaper cancels it eventually.
func (h *Handlers) applyPaymentFailure(intent *stripe.PaymentIntent) error {
	orderID, err := orderIDFromIntent(intent)
	if err != nil {
		return err
	}

	_, err = h.DB.Exec(`
		UPDATE payments SET status = ?, updated_at = ?
		WHERE order_id = ? AND status <> ?`,
		models.PaymentStatusFailed, time.Now(), orderID, models.PaymentStatusCompleted)
	if err != nil {
		return err
	}

	h.Log.Warn("payment failed",
		zap.Int64("orderID", orderID),
		zap.String("paymentIntent", intent.ID))
	return nil
}

// applyChargeRefund marks payment and order REFUNDED. The charge event
// carries no order metadata, so the payment row is found through the
// stored payment intent id.
func (h *Handlers) applyChargeRefund(charge *stripe.Charge) error {
	if charge.PaymentIntent == nil {
		return errors.New("refunded charge has no payment intent")
	}

	tx, err := h.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var orderID int64
	err = tx.QueryRow("SELECT order_id FROM payments WHERE stripe_id = ?", charge.PaymentIntent.ID).Scan(&orderID)
	if err != nil {
		if err == sql.ErrNoRows {
			// Refund for a payment this system never recorded. Ack it.
			return nil
		}
		return err
	}

	now := time.Now()
	if _, err = tx.Exec("UPDATE payments SET status = ?, updated_at = ? WHERE order_id = ?",
		models.PaymentStatusRefunded, now, orderID); err != nil {
		return err
	}
	if _, err = tx.Exec("UPDATE orders SET status = ?, updated_at = ? WHERE id = ?",
		models.OrderStatusRefunded, now, orderID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	h.Log.Info("payment refunded",
		zap.Int64("orderID", orderID),
		zap.String("charge", charge.ID))
	return nil
}

// GetPaymentHistory is the handler for GET /api/payments/history.
// Regular users see their own payments; admins see everything.
func (h *Handlers) GetPaymentHistory(c *gin.Context) {
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

	where := ""
	args := []interface{}{}
	if !admin {
		where = " WHERE o.user_id = ?"
		args = append(args, userID)
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM payments p JOIN orders o ON p.order_id = o.id" + where
	if err := h.DB.QueryRow(countQuery, args...).Scan(&total); err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count payments"})
		return
	}

	query := `
		SELECT p.id, p.order_id, o.order_number, p.amount, p.status, p.stripe_id, p.payment_method, p.created_at, p.updated_at
		FROM payments p
		JOIN orders o ON p.order_id = o.id` +
		where + " ORDER BY p.created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, (page-1)*limit)

	rows, err := h.DB.Query(query, args...)
	if err != nil {
		h.serverError(c.FullPath(), c.Request.Method, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query payments"})
		return
	}
	defer rows.Close()

	type paymentRow struct {
		models.Payment
		OrderNumber string `json:"orderNumber"`
	}

	payments := []paymentRow{}
	for rows.Next() {
		var p paymentRow
		if err := rows.Scan(&p.ID, &p.OrderID, &p.OrderNumber, &p.Amount, &p.Status,
			&p.StripeID, &p.PaymentMethod, &p.CreatedAt, &p.UpdatedAt); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to scan payment"})
			return
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error iterating payments"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payments": payments,
		"pagination": gin.H{
			"page":       page,
			"limit":      limit,
			"total":      total,
			"totalPages": (total + limit - 1) / limit,
		},
	})
}
