package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vhvplatform/go-outreach-service/internal/metrics"
	"golang.org/x/time/rate"
)

// AccountRateLimiter manages rate limiters per account
type AccountRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewAccountRateLimiter creates a new account rate limiter
func NewAccountRateLimiter(rps float64, burst int) *AccountRateLimiter {
	return &AccountRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific account
func (rl *AccountRateLimiter) GetLimiter(accountID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[accountID]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = rl.limiters[accountID]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[accountID] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

// RateLimitMiddleware creates a rate limiting middleware keyed by account
func RateLimitMiddleware(rl *AccountRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Query parameter first (doesn't consume the body)
		accountID := c.Query("account_id")

		// Fall back to the JSON body without consuming it
		if accountID == "" {
			var req struct {
				AccountID string `json:"account_id"`
			}
			if err := c.ShouldBindBodyWith(&req, binding.JSON); err == nil {
				accountID = req.AccountID
			}
		}

		// If still empty, allow through (will fail validation later)
		if accountID == "" {
			c.Next()
			return
		}

		limiter := rl.GetLimiter(accountID)

		if !limiter.Allow() {
			metrics.RateLimitExceeded.WithLabelValues(accountID).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
