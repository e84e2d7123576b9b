package handlers

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/config"
	"github.com/liquidinsider/storefront-api/internal/models"
)

const testWebhookSecret = "whsec_test_secret"

func webhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &Handlers{
		Cfg: &config.Config{StripeWebhookSecret: testWebhookSecret},
		Log: zap.NewNop(),
	}
	r := gin.New()
	r.POST("/api/payments/webhook", h.HandleWebhook)
	return r
}

// signPayload builds a Stripe-Signature header for a payload, the same
// way Stripe does: v1 = HMAC-SHA256(secret, "<timestamp>.<payload>").
func signPayload(payload []byte, secret string) string {
	now := time.Now()
	sig := webhook.ComputeSignature(now, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig))
}

func TestWebhookMissingSignature(t *testing.T) {
	router := webhookRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBufferString(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookInvalidSignature(t *testing.T) {
	router := webhookRouter()

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBufferString(`{}`))
	req.Header.Set("Stripe-Signature", "t=12345,v1=deadbeef")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWebhookSignedWithWrongSecret(t *testing.T) {
	router := webhookRouter()
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.created","data":{"object":{}}}`)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, "whsec_some_other_secret"))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// Events the service does not care about are acknowledged so Stripe
// stops retrying them.
func TestWebhookIgnoresUnhandledEvent(t *testing.T) {
	router := webhookRouter()
	payload := []byte(`{"id":"evt_1","object":"event","type":"payment_intent.created","data":{"object":{}}}`)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/payments/webhook", bytes.NewBuffer(payload))
	req.Header.Set("Stripe-Signature", signPayload(payload, testWebhookSecret))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
}

func succeededIntent() *stripe.PaymentIntent {
	return &stripe.PaymentIntent{
		ID:            "pi_123",
		Amount:        2832,
		Metadata:      map[string]string{"orderId": "7"},
		PaymentMethod: &stripe.PaymentMethod{ID: "pm_card"},
	}
}

// A successful intent marks the payment COMPLETED and moves the order
// from PENDING to PROCESSING in the same transaction.
func TestPaymentSucceededPromotesOrder(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE order_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentStatusCompleted, "pm_card", "pi_123", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, sqlmock.AnyArg(), int64(7), models.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, h.applyPaymentSuccess(succeededIntent()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// Stripe retries deliveries. A replay finds the rows already in their
// final state: the guarded order update matches nothing and the whole
// operation still succeeds.
func TestPaymentSucceededReplayIsIdempotent(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE order_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("UPDATE payments SET status").
		WithArgs(models.PaymentStatusCompleted, "pm_card", "pi_123", sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, sqlmock.AnyArg(), int64(7), models.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, h.applyPaymentSuccess(succeededIntent()))
	require.NoError(t, mock.ExpectationsWereMet())
}

// An event for an order with no local payment row recreates the row
// from the intent instead of promoting an order with no payment record.
func TestPaymentSucceededRecreatesMissingRow(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments WHERE order_id`).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(int64(7), 28.32, models.PaymentStatusCompleted, "pi_123", "pm_card", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(models.OrderStatusProcessing, sqlmock.AnyArg(), int64(7), models.OrderStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, h.applyPaymentSuccess(succeededIntent()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPaymentHistoryPaginates(t *testing.T) {
	h, mock := newMockHandlers(t)

	mock.ExpectQuery("SELECT role FROM users WHERE id").
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(models.RoleUser))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM payments p JOIN orders o`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(23))
	now := time.Now()
	mock.ExpectQuery("FROM payments p").
		WithArgs(int64(9), 10, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "order_id", "order_number", "amount", "status", "stripe_id", "payment_method", "created_at", "updated_at",
		}).AddRow(1, 7, "ORD-ABC-12345", 28.32, models.PaymentStatusCompleted, "pi_123", "pm_card", now, now))

	router := authedRouter(9, "GET", "/api/payments/history", h.GetPaymentHistory)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/payments/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"total":23`)
	assert.Contains(t, body, `"totalPages":3`)
	assert.Contains(t, body, "ORD-ABC-12345")

	require.NoError(t, mock.ExpectationsWereMet())
}
