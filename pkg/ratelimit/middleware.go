package ratelimit

import (
	"net/http"
	"strconv"
)

// MiddlewareOption configures the rate limiting middleware.
type MiddlewareOption func(*middlewareConfig)

type middlewareConfig struct {
	reject http.Handler
}

// WithRejectHandler replaces the default plain text 429 response. The
// handler runs after the rate limit headers and Retry-After are set, and
// must write the 429 status itself.
func WithRejectHandler(h http.Handler) MiddlewareOption {
	return func(c *middlewareConfig) {
		c.reject = h
	}
}

// Middleware returns an HTTP middleware that enforces per-IP rate limiting.
// If limiter is nil, the middleware passes through without limiting.
func Middleware(limiter *PerIPLimiter, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		reject: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
		}),
	}
	for _, o := range opts {
		o(cfg)
	}

	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, remaining, resetOrRetry := limiter.Allow(limiter.ClientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.Burst()))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetOrRetry, 10))

			if allowed {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("Retry-After", strconv.FormatInt(resetOrRetry, 10))
			cfg.reject.ServeHTTP(w, r)
		})
	}
}
