// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/emanuelef/yt-resolve-go/internal/domain"
)

// RateLimitConfig holds configuration for a per-IP limiter.
type RateLimitConfig struct {
	Name              string        // Used in log lines
	RequestsPerMinute int           // Sustained requests per minute per IP
	Burst             int           // Maximum burst size
	IdleTimeout       time.Duration // Buckets unused for this long are dropped
}

// Decision is the outcome of one rate limit check.
type Decision struct {
	Allowed    bool
	Remaining  int           // Whole tokens left after this request
	RetryAfter time.Duration // Wait before the next token, when denied
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter is a token bucket per client address.
type RateLimiter struct {
	name  string
	limit rate.Limit
	burst int
	rpm   int
	idle  time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	done     chan struct{}
	stopOnce sync.Once
	now      func() time.Time
}

// NewRateLimiter creates a RateLimiter and starts its idle sweep.
func NewRateLimiter(cfg *RateLimitConfig) *RateLimiter {
	c := RateLimitConfig{Name: "default", RequestsPerMinute: 30, Burst: 5}
	if cfg != nil {
		c = *cfg
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 10 * time.Minute
	}
	c.Burst = max(c.Burst, 1)

	rl := &RateLimiter{
		name:    c.Name,
		limit:   rate.Limit(float64(c.RequestsPerMinute) / 60),
		burst:   c.Burst,
		rpm:     c.RequestsPerMinute,
		idle:    c.IdleTimeout,
		buckets: make(map[string]*bucket),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go rl.sweepLoop()
	return rl
}

// Stop ends the idle sweep. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// Take spends one token for key, or reports how long until one is free.
func (rl *RateLimiter) Take(key string) Decision {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	r := b.limiter.ReserveN(now, 1)
	if !r.OK() {
		return Decision{RetryAfter: time.Minute}
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}
	}
	return Decision{
		Allowed:   true,
		Remaining: max(int(b.limiter.TokensAt(now)), 0),
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

func (rl *RateLimiter) sweepLoop() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.sweep(rl.now()); n > 0 {
				slog.Debug("Dropped idle rate limit buckets", "limiter", rl.name, "count", n)
			}
		case <-rl.done:
			return
		}
	}
}

// sweep drops buckets idle since before now-idle and returns how many.
func (rl *RateLimiter) sweep(now time.Time) int {
	cutoff := now.Add(-rl.idle)

	rl.mu.Lock()
	defer rl.mu.Unlock()
	n := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			n++
		}
	}
	return n
}

// RateLimitMiddleware answers 429 with Retry-After once a client's bucket
// is empty. Every response carries the X-RateLimit-* headers.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			d := rl.Take(ip)

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(rl.rpm))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if !d.Allowed {
				retry := retryAfterSeconds(d.RetryAfter)
				slog.Warn("Rate limit exceeded",
					"limiter", rl.name,
					"ip", ip,
					"path", r.URL.Path,
					"retry_after", retry,
				)
				h.Set("Retry-After", strconv.Itoa(retry))
				writeError(w, http.StatusTooManyRequests, "rate limit exceeded", "RATE_LIMIT")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// retryAfterSeconds rounds d up to whole seconds, at least 1.
func retryAfterSeconds(d time.Duration) int {
	return max(int(math.Ceil(d.Seconds())), 1)
}

// ClientIP returns the caller address. Proxy headers are expected to have
// been folded into RemoteAddr by chi's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(&domain.ErrorResponse{Error: message, Code: code})
}
