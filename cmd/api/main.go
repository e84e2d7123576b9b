package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/stripe/stripe-go/v82"
	"go.uber.org/zap"

	"github.com/liquidinsider/storefront-api/internal/auth"
	"github.com/liquidinsider/storefront-api/internal/config"
	"github.com/liquidinsider/storefront-api/internal/database"
	"github.com/liquidinsider/storefront-api/internal/email"
	"github.com/liquidinsider/storefront-api/internal/handlers"
	"github.com/liquidinsider/storefront-api/internal/logging"
	"github.com/liquidinsider/storefront-api/internal/routes"
	"github.com/liquidinsider/storefront-api/internal/storage"
)

// reaperInterval is how often the overdue-order worker runs.
const reaperInterval = time.Hour

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		// Fine in production; the environment is set by the platform.
		os.Stderr.WriteString("no .env file found, relying on system environment\n")
	}

	cfg := config.Load()

	log := logging.New(cfg.Env)
	defer log.Sync()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	// 1. --- Database Connection ---
	db, err := database.Open(cfg.DSN)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// 2. --- Shared Service Setup ---
	auth.Init(cfg.JWTSecret)
	stripe.Key = cfg.StripeSecretKey

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("failed to initialize image storage", zap.Error(err))
	}
	log.Info("image storage ready", zap.String("backend", store.Type()))

	mailer := email.New(cfg, log)
	if !mailer.Enabled() {
		log.Warn("SMTP not configured, outbound email disabled")
	}

	app := &handlers.Handlers{
		DB:     db,
		Cfg:    cfg,
		Log:    log,
		Store:  store,
		Mailer: mailer,
	}

	// 3. --- Background Worker ---
	// Cancels unpaid orders past their cutoff and restores stock.
	reaperDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(reaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				app.ProcessOverdueOrders()
			case <-reaperDone:
				return
			}
		}
	}()

	// 4. --- HTTP Server ---
	router := routes.SetupRouter(app)
	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	go func() {
		log.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// 5. --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	close(reaperDone)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
