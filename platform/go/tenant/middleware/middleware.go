package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-labs/pencilbook/platform/go/tenant"
)

// Resolver defines the minimal lookup capability required to admit a tenant.
// Implemented by the tenant registry service.
type Resolver interface {
	IsActive(ctx context.Context, tenantID uuid.UUID) (bool, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid a registry hit per request; zero disables caching.
	CacheTTL time.Duration
}

// RequireTenant reads the X-Tenant-ID header, validates the tenant against the
// registry, and attaches the tenant id to the request context. Requests without
// a valid, active tenant never reach the handlers behind it.
func RequireTenant(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *admissionCache
	if cfg.CacheTTL > 0 {
		cache = newAdmissionCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get(tenant.Header)
			if raw == "" {
				http.Error(w, "tenant required", http.StatusUnauthorized)
				return
			}

			tid, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid tenant id", http.StatusUnauthorized)
				return
			}

			if !cache.hit(tid) {
				active, err := resolver.IsActive(r.Context(), tid)
				if err != nil || !active {
					http.Error(w, "unknown tenant", http.StatusUnauthorized)
					return
				}
				cache.put(tid)
			}

			ctx := tenant.WithID(r.Context(), tid)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// admissionCache remembers recently admitted tenants for a bounded TTL.
type admissionCache struct {
	mu  sync.Mutex
	ttl time.Duration
	m   map[uuid.UUID]time.Time
}

func newAdmissionCache(ttl time.Duration) *admissionCache {
	return &admissionCache{ttl: ttl, m: make(map[uuid.UUID]time.Time)}
}

func (c *admissionCache) hit(id uuid.UUID) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	deadline, ok := c.m[id]
	if !ok {
		return false
	}
	if time.Now().After(deadline) {
		delete(c.m, id)
		return false
	}
	return true
}

func (c *admissionCache) put(id uuid.UUID) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.m[id] = time.Now().Add(c.ttl)
	c.mu.Unlock()
}
