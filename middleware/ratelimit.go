package middleware

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware limits requests per client IP using an in-process
// token bucket. State is per-instance; each service replica enforces its
// own budget.
func RateLimitMiddleware(requests, windowSec int) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)

	perSecond := rate.Limit(float64(requests) / float64(windowSec))
	burst := requests
	if burst < 1 {
		burst = 1
	}

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()
		lim, ok := limiters[ip]
		if !ok {
			lim = rate.NewLimiter(perSecond, burst)
			limiters[ip] = lim
		}
		return lim
	}

	return func(c *gin.Context) {
		// Health checks are exempt.
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		lim := limiterFor(c.ClientIP())
		if !lim.Allow() {
			c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", strconv.Itoa(windowSec))
			c.JSON(http.StatusTooManyRequests, gin.H{"detail": "Too many requests. Please try again later."})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(requests))
		c.Next()
	}
}
