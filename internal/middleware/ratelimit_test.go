package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/ulule/limiter/v3"
)

func limitedRouter(rate limiter.Rate) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ping", RateLimit(rate), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	return r
}

func pingFrom(router *gin.Engine, addr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/ping", nil)
	req.RemoteAddr = addr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimitBlocksAfterBudget(t *testing.T) {
	router := limitedRouter(limiter.Rate{Period: time.Minute, Limit: 2})

	assert.Equal(t, http.StatusOK, pingFrom(router, "203.0.113.7:4242").Code)
	assert.Equal(t, http.StatusOK, pingFrom(router, "203.0.113.7:4242").Code)
	assert.Equal(t, http.StatusTooManyRequests, pingFrom(router, "203.0.113.7:4242").Code)
}

func TestRateLimitBudgetIsPerIP(t *testing.T) {
	router := limitedRouter(limiter.Rate{Period: time.Minute, Limit: 1})

	assert.Equal(t, http.StatusOK, pingFrom(router, "203.0.113.7:4242").Code)
	assert.Equal(t, http.StatusTooManyRequests, pingFrom(router, "203.0.113.7:4242").Code)

	// A different client still has its own budget.
	assert.Equal(t, http.StatusOK, pingFrom(router, "198.51.100.9:4242").Code)
}
