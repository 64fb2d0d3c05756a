// Package middleware provides HTTP middleware for the API endpoints.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	domainerror "github.com/finance-tracker/ledger/internal/domain/error"
	"github.com/finance-tracker/ledger/internal/integration/entrypoint/dto"
)

const defaultRateWindow = time.Minute

// callerWindow counts one caller's requests in the current fixed window.
type callerWindow struct {
	requests int
	endsAt   time.Time
}

// RateLimiter caps how often a caller may toggle sync, since every accepted
// toggle rebuilds the ledger store. Signed-in callers are counted per user,
// guests per client IP.
type RateLimiter struct {
	mu      sync.Mutex
	windows map[string]*callerWindow
	limit   int
	window  time.Duration
	now     func() time.Time
}

// NewRateLimiter allows limit requests per window. A non-positive limit
// turns limiting off.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = defaultRateWindow
	}
	return &RateLimiter{
		windows: make(map[string]*callerWindow),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// Middleware rejects requests over the limit with 429.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.limit > 0 && !rl.allow(callerKey(c)) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, dto.ErrorResponse{
				Error: "Too many requests. Please try again later.",
				Code:  string(domainerror.ErrCodeRateLimited),
			})
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if userID, ok := GetUserIDFromContext(c); ok {
		return "user:" + userID.String()
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = c.Request.RemoteAddr
	}
	return "ip:" + ip
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.After(w.endsAt) {
		rl.windows[key] = &callerWindow{requests: 1, endsAt: now.Add(rl.window)}
		return true
	}
	if w.requests >= rl.limit {
		return false
	}
	w.requests++
	return true
}

// Cleanup drops windows that have ended.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.After(w.endsAt) {
			delete(rl.windows, key)
		}
	}
}
