package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// RateLimit enforces a per-IP request budget and answers 429 once it is
// spent. Each call builds its own in-memory store, so stacked limiters
// count independently.
func RateLimit(rate limiter.Rate) gin.HandlerFunc {
	return mgin.NewMiddleware(limiter.New(memory.NewStore(), rate))
}
