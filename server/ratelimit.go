package server

import (
	"net/http"
	"sync"
	"time"
)

const (
	keyGenRateLimit  = 5
	keyGenRateWindow = time.Minute
)

// rateLimiter counts requests per user in a fixed window. State is
// in-memory: restarting the process resets the counters, which is acceptable
// for an abuse brake on token issuance.
type rateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	lock    sync.Mutex
	entries map[string]*rateEntry
}

type rateEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		entries: make(map[string]*rateEntry),
	}
}

// Allow reports whether key may make another request, counting this one.
func (rl *rateLimiter) Allow(key string) bool {
	rl.lock.Lock()
	defer rl.lock.Unlock()

	now := rl.now()
	entry, ok := rl.entries[key]
	if !ok || now.Sub(entry.windowStart) >= rl.window {
		rl.entries[key] = &rateEntry{windowStart: now, count: 1}
		return true
	}

	if entry.count >= rl.limit {
		return false
	}
	entry.count++
	return true
}

// RateLimitMiddleware rejects callers that exceed the per-user window with
// 429. Must run after an auth middleware so the user ID is in context.
func (s *Server) RateLimitMiddleware(limiter *rateLimiter) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			userID, ok := userIDFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required")
				return
			}
			if !limiter.Allow(userID) {
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next(w, r)
		}
	}
}
