package handlers

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/config"
	"github.com/liquidinsider/storefront-api/internal/email"
)

// newMockHandlers builds a Handlers instance over a sqlmock database
// with the default pricing configuration and a disabled mailer.
func newMockHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		TaxRate:          0.08,
		FreeShippingMin:  100,
		MidShippingMin:   50,
		MidShippingCost:  5.99,
		BaseShippingCost: 9.99,
	}

	return &Handlers{
		DB:     db,
		Cfg:    cfg,
		Log:    zap.NewNop(),
		Mailer: email.New(cfg, zap.NewNop()),
	}, mock
}

// authedRouter registers a single route behind a stub that injects the
// authenticated user ID, the way the auth middleware would.
func authedRouter(userID int64, method, path string, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Handle(method, path, func(c *gin.Context) { c.Set("userID", userID) }, handler)
	return r
}
