package middle

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mstgnz/signpay/infra/config"
	"github.com/mstgnz/signpay/infra/response"
)

// KeyFunc picks the bucket a request is counted in
type KeyFunc func(r *http.Request) string

// RateLimiter is a fixed window counter per key
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rate    int
	window  time.Duration
	done    chan struct{}
	stop    sync.Once
}

type bucket struct {
	count   int
	started time.Time
}

// NewRateLimiter creates a rate limiter allowing RATE_LIMIT_PER_MINUTE
// requests per key per minute (default 20)
func NewRateLimiter() *RateLimiter {
	rate := config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 20)
	if rate <= 0 {
		rate = 20
	}
	return NewRateLimiterWithRate(rate, time.Minute)
}

// NewRateLimiterWithRate creates a rate limiter allowing rate requests per window
func NewRateLimiterWithRate(rate int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate,
		window:  window,
		done:    make(chan struct{}),
	}

	go rl.evictLoop()

	return rl
}

// Allow counts one request for key and reports whether it is within the limit
func (rl *RateLimiter) Allow(key string) bool {
	_, ok := rl.take(key)
	return ok
}

// take counts one request and returns when the key's window ends
func (rl *RateLimiter) take(key string) (time.Time, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok || now.Sub(b.started) > rl.window {
		b = &bucket{started: now}
		rl.buckets[key] = b
	}

	resetAt := b.started.Add(rl.window)
	if b.count >= rl.rate {
		return resetAt, false
	}
	b.count++
	return resetAt, true
}

// Stop ends the background eviction
func (rl *RateLimiter) Stop() {
	rl.stop.Do(func() { close(rl.done) })
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-rl.done:
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.started) > rl.window*2 {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// RateLimitMiddleware rejects requests over the limit with 429 and a
// Retry-After header. A nil key counts requests per client IP.
func RateLimitMiddleware(rl *RateLimiter, key KeyFunc) func(http.Handler) http.Handler {
	if key == nil {
		key = ByClientIP
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resetAt, ok := rl.take(key(r))
			if !ok {
				retry := int(time.Until(resetAt).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				response.Error(w, http.StatusTooManyRequests, "Rate limit exceeded", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ByClientIP counts requests per client IP
func ByClientIP(r *http.Request) string {
	return GetClientIP(r)
}

// BySession counts requests per checkout session, falling back to the
// client IP before SessionMiddleware has run
func BySession(r *http.Request) string {
	if id := GetSessionID(r.Context()); id != "" {
		return "session:" + id
	}
	return GetClientIP(r)
}

// GetClientIP extracts the real client IP from the proxy headers or RemoteAddr
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}

	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.Trim(r.RemoteAddr, "[]")
	}
	if host == "::1" {
		return "127.0.0.1"
	}
	return host
}
