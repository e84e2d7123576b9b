package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"

	"github.com/liquidinsider/storefront-api/internal/handlers"
	"github.com/liquidinsider/storefront-api/internal/metrics"
	"github.com/liquidinsider/storefront-api/internal/middleware"
)

// Per-IP request budgets. The API carries a broad 15-minute budget plus
// a per-minute burst cap; credential endpoints get a much stricter one
// to slow down brute-forcing.
var (
	generalRate = limiter.Rate{Period: 15 * time.Minute, Limit: 100}
	burstRate   = limiter.Rate{Period: time.Minute, Limit: 100}
	authRate    = limiter.Rate{Period: 15 * time.Minute, Limit: 10}
)

// CORSMiddleware allows the configured frontend origin to call the API
// with Authorization headers, and answers preflight requests.
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", frontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// SetupRouter wires every endpoint. Public catalog reads need no token;
// cart, orders and payments need a login; mutations need the ADMIN role.
func SetupRouter(h *handlers.Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(CORSMiddleware(h.Cfg.FrontendURL))
	router.Use(metrics.Middleware())

	router.GET("/health", func(c *gin.Context) {
		if err := h.DB.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Local storage serves renditions straight off disk; S3 URLs are
	// absolute and never hit this route.
	if h.Store.Type() == "local" {
		router.Static("/uploads/products", h.Cfg.UploadDir)
	}

	// Health probes and metric scrapers stay outside the rate limits;
	// everything under /api is budgeted per IP.
	api := router.Group("/api")
	api.Use(middleware.RateLimit(generalRate), middleware.RateLimit(burstRate))
	{
		// --- Auth Routes (Public, strictest rate limit) ---
		authPublic := api.Group("/auth")
		authPublic.Use(middleware.RateLimit(authRate))
		{
			authPublic.POST("/register", h.Register)
			authPublic.POST("/login", h.Login)
			authPublic.POST("/verify-email", h.VerifyEmail)
			authPublic.POST("/forgot-password", h.ForgotPassword)
			authPublic.POST("/reset-password", h.ResetPassword)
		}

		// --- Public Catalog Routes ---
		api.GET("/categories", h.GetCategories)
		api.GET("/categories/:slug", h.GetCategory)
		api.GET("/products", h.GetProducts)
		api.GET("/products/featured", h.GetFeaturedProducts)
		api.GET("/products/:id", h.GetProduct)
		api.GET("/products/:id/images", h.GetProductImages)

		// --- Stripe Webhook (signature-authenticated, not JWT) ---
		api.POST("/payments/webhook", h.HandleWebhook)

		// --- Protected Routes (Login Required) ---
		auth := api.Group("/")
		auth.Use(middleware.AuthMiddleware())
		{
			auth.GET("/auth/me", h.GetProfile)
			auth.PUT("/auth/me", h.UpdateProfile)

			// --- Cart Routes ---
			auth.GET("/cart", h.GetCart)
			auth.DELETE("/cart", h.ClearCart)
			auth.POST("/cart/items", h.AddToCart)
			auth.PUT("/cart/items/:productId", h.UpdateCartItem)
			auth.DELETE("/cart/items/:productId", h.RemoveCartItem)

			// --- Order Routes ---
			auth.POST("/orders", h.CreateOrder)
			auth.GET("/orders", h.GetOrders)
			auth.GET("/orders/:id", h.GetOrder)

			// --- Payment Routes ---
			auth.POST("/payments/create-intent", h.CreatePaymentIntent)
			auth.GET("/payments/history", h.GetPaymentHistory)

			// --- Admin Routes ---
			admin := auth.Group("/")
			admin.Use(middleware.AdminMiddleware(h.DB))
			{
				admin.POST("/categories", h.CreateCategory)
				admin.PUT("/categories/:id", h.UpdateCategory)
				admin.DELETE("/categories/:id", h.DeleteCategory)

				admin.POST("/products", h.CreateProduct)
				admin.PUT("/products/:id", h.UpdateProduct)
				admin.DELETE("/products/:id", h.DeleteProduct)

				admin.POST("/products/:id/images", h.UploadProductImages)
				admin.PUT("/products/:id/images/reorder", h.ReorderImages)
				admin.PUT("/products/:id/images/:imageId/primary", h.SetPrimaryImage)
				admin.DELETE("/products/:id/images/:imageId", h.DeleteProductImage)

				admin.PUT("/orders/:id/status", h.UpdateOrderStatus)

				admin.GET("/admin/stats", h.GetAdminStats)
			}
		}
	}

	return router
}
