package middleware

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// requestWindow tracks requests from one IP within the current window
type requestWindow struct {
	Count   int
	FirstAt time.Time
}

// RateLimiter manages per-IP request limits over a fixed window. A forced
// refresh runs the full screener pipeline, so the refresh endpoint gets a
// tight budget per client.
type RateLimiter struct {
	mu           sync.Mutex
	windows      map[string]*requestWindow
	maxRequests  int
	windowPeriod time.Duration
}

// Global refresh rate limiter instance
var refreshRateLimiter *RateLimiter

// InitRefreshRateLimiter initializes the global refresh rate limiter
func InitRefreshRateLimiter() {
	refreshRateLimiter = NewRateLimiter(10, time.Minute)
	go refreshRateLimiter.startCleanup()
}

// NewRateLimiter creates a rate limiter allowing maxRequests per windowPeriod
func NewRateLimiter(maxRequests int, windowPeriod time.Duration) *RateLimiter {
	return &RateLimiter{
		windows:      make(map[string]*requestWindow),
		maxRequests:  maxRequests,
		windowPeriod: windowPeriod,
	}
}

// startCleanup periodically removes expired windows
func (rl *RateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	for range ticker.C {
		rl.cleanup()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for ip, w := range rl.windows {
		if now.Sub(w.FirstAt) > rl.windowPeriod {
			delete(rl.windows, ip)
		}
	}
}

// Allow records a request for an IP and reports whether it is within budget,
// along with the remaining allowance and retry delay when throttled
func (rl *RateLimiter) Allow(ip string) (bool, int, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.windows[ip]

	if !exists || now.Sub(w.FirstAt) > rl.windowPeriod {
		rl.windows[ip] = &requestWindow{Count: 1, FirstAt: now}
		return true, rl.maxRequests - 1, 0
	}

	if w.Count >= rl.maxRequests {
		return false, 0, rl.windowPeriod - now.Sub(w.FirstAt)
	}

	w.Count++
	return true, rl.maxRequests - w.Count, 0
}

// RefreshRateLimitMiddleware throttles requests that force a fresh
// aggregation run. Cached reads pass through untouched.
func RefreshRateLimitMiddleware() gin.HandlerFunc {
	if refreshRateLimiter == nil {
		InitRefreshRateLimiter()
	}

	return func(c *gin.Context) {
		if c.Query("force_refresh") != "true" {
			c.Next()
			return
		}

		ip := c.ClientIP()
		allowed, remaining, retryAfter := refreshRateLimiter.Allow(ip)

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if !allowed {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many refresh requests, please retry later",
				"retry_after": int(retryAfter.Seconds()),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
