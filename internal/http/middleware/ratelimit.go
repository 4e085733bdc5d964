package middleware

import (
	"net/http"
	"sync"
	"time"
)

// RateLimiter throttles callers by IP with a token bucket per address.
// The auth endpoints sit behind it so a caller cannot hammer the
// verification-code flow.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientBucket
	refill  float64 // tokens added per second
	burst   int
}

type clientBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter allows refill requests/sec per IP, with bursts up to burst.
func NewRateLimiter(refill float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		refill:  refill,
		burst:   burst,
	}
	go rl.evictIdle()
	return rl
}

// Allow reports whether a request from ip may proceed, consuming a token
// when it does.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cb, ok := rl.clients[ip]
	if !ok {
		cb = &clientBucket{tokens: float64(rl.burst), seen: now}
		rl.clients[ip] = cb
	}

	cb.tokens += now.Sub(cb.seen).Seconds() * rl.refill
	if cb.tokens > float64(rl.burst) {
		cb.tokens = float64(rl.burst)
	}
	cb.seen = now

	if cb.tokens < 1 {
		return false
	}
	cb.tokens--
	return true
}

// evictIdle drops buckets for addresses that have gone quiet so the map
// does not grow without bound.
func (rl *RateLimiter) evictIdle() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		idleBefore := time.Now().Add(-10 * time.Minute)
		for ip, cb := range rl.clients {
			if cb.seen.Before(idleBefore) {
				delete(rl.clients, ip)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimit answers 429 Too Many Requests once a caller exhausts its bucket.
func RateLimit(refill float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(refill, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// chi's RealIP middleware rewrites the header upstream.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
