package middleware

import (
	"net/http"
	"sync"

	"golang.org/x/time/rate"

	"github.com/atelier-labs/pencilbook/platform/go/tenant"
)

// RateLimitConfig controls the per-tenant token bucket.
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// RateLimitByTenant applies a token-bucket limiter keyed by tenant id (falling
// back to remote address when no tenant header is present). Exceeding callers
// receive 429 and should retry with backoff.
func RateLimitByTenant(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := &rateLimiter{cfg: cfg}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(tenant.Header)
			if key == "" {
				key = r.RemoteAddr
			}
			if !l.getLimiter(key).Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type rateLimiter struct {
	limiters sync.Map
	cfg      RateLimitConfig
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(l.cfg.RPS), burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}
