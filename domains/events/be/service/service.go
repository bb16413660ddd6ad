// Package service exposes read access to the append-only booking event log.
package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	bookings "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
)

// ErrNotFound means the aggregate has no history visible to the tenant.
var ErrNotFound = errors.New("no events for booking")

// Repository is the event log reader contract.
type Repository interface {
	// ListByAggregate returns one booking's events with version > fromVersion,
	// in version order.
	ListByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID, fromVersion int64) ([]bookings.Event, error)
	// ListByTenant returns a tenant's most recent events in append order.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]bookings.Event, error)
	// ListAfterCursor returns events with id > cursor across tenants, in id
	// order. Consumed by the relay.
	ListAfterCursor(ctx context.Context, cursor int64, limit int) ([]bookings.Event, error)
}

// Service answers event history queries under the tenant guard.
type Service struct {
	repo Repository
}

// New constructs the event log service.
func New(repo Repository) *Service {
	if repo == nil {
		panic("events repo is required")
	}
	return &Service{repo: repo}
}

// History returns a booking's events after fromVersion. An aggregate with no
// visible events yields ErrNotFound, whether it never existed or belongs to
// another tenant.
func (s *Service) History(ctx context.Context, tenantID, aggregateID uuid.UUID, fromVersion int64) ([]bookings.Event, error) {
	events, err := s.repo.ListByAggregate(ctx, tenantID, aggregateID, fromVersion)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 && fromVersion == 0 {
		return nil, ErrNotFound
	}
	return events, nil
}

// Recent returns the tenant's latest events across all bookings.
func (s *Service) Recent(ctx context.Context, tenantID uuid.UUID, limit int) ([]bookings.Event, error) {
	return s.repo.ListByTenant(ctx, tenantID, limit)
}
