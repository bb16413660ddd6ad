package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the caller's tenant identifier.
const Header = "X-Tenant-ID"

type ctxKey struct{}

// WithID returns a derived context carrying the tenant identifier.
// Middleware attaches it once the tenant has been validated against the registry.
func WithID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext extracts the tenant identifier and a boolean indicating presence.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	return id, ok
}

// MustFromContext extracts the tenant identifier, panicking if absent.
// Only for handlers mounted behind the tenant middleware.
func MustFromContext(ctx context.Context) uuid.UUID {
	id, ok := FromContext(ctx)
	if !ok {
		panic("tenant id missing from context")
	}
	return id
}
