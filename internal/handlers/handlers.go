package handlers

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/config"
	"github.com/liquidinsider/storefront-api/internal/email"
	"github.com/liquidinsider/storefront-api/internal/storage"
)

// Handlers holds every dependency the HTTP handlers need. Built once in
// main and shared across requests.
type Handlers struct {
	DB     *sql.DB
	Cfg    *config.Config
	Log    *zap.Logger
	Store  storage.Storage
	Mailer *email.Mailer
}

// serverError logs the underlying failure with request context and
// returns the generic message to the client.
func (h *Handlers) serverError(path, method string, err error) {
	h.Log.Error("internal error",
		zap.String("path", path),
		zap.String("method", method),
		zap.Error(err))
}
