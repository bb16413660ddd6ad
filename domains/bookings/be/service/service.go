package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-labs/pencilbook/platform/go/metrics"
)

// DefaultHoldTTL bounds how long an unconverted hold blocks its owner's plans.
const DefaultHoldTTL = 30 * time.Minute

// ResourceDirectory is the collaborator lookup for bookable resources.
type ResourceDirectory interface {
	Exists(ctx context.Context, tenantID, resourceID uuid.UUID) (bool, error)
}

// Repository is the booking store contract. Implementations must make
// ApplyTransition's conflict check and write atomic per (tenant, resource) and
// must persist the booking mutation and its event in one unit of work.
type Repository interface {
	// Create inserts a new hold at version 1 together with its created event.
	Create(ctx context.Context, b Booking, ev Event) (Booking, error)
	// Get loads a booking by id, returning ErrTenantMismatch when it exists
	// under a different tenant and ErrNotFound when it does not exist.
	Get(ctx context.Context, tenantID, id uuid.UUID) (Booking, error)
	// ApplyTransition performs the check-then-write critical section.
	ApplyTransition(ctx context.Context, p TransitionApply) (Booking, error)
	// ListActiveOverlapping returns active bookings overlapping [start, end),
	// excluding excludeID when non-nil.
	ListActiveOverlapping(ctx context.Context, tenantID, resourceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]Booking, error)
	// ListExpiredHolds returns holds whose expiry deadline has passed, oldest first.
	ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]Booking, error)
}

// TransitionApply carries one mutation through the store's critical section.
type TransitionApply struct {
	TenantID        uuid.UUID
	BookingID       uuid.UUID
	ResourceID      uuid.UUID
	Start           time.Time
	End             time.Time
	Target          Status
	ExpectedVersion int64
	// CheckConflict is set for transitions into an active status; the store
	// must hold the per-resource lock across the overlap check and the write.
	CheckConflict bool
	Event         Event
}

// Config tunes the engine.
type Config struct {
	// HoldTTL is the default lifetime of a new hold; zero means DefaultHoldTTL.
	HoldTTL time.Duration
}

// Service is the booking engine: tenant guard, state machine, conflict checks.
type Service struct {
	repo      Repository
	resources ResourceDirectory
	payloads  *PayloadValidator
	metrics   *metrics.Metrics
	holdTTL   time.Duration
	now       func() time.Time
}

// New constructs the engine with required dependencies.
func New(repo Repository, resources ResourceDirectory, m *metrics.Metrics, cfg Config) (*Service, error) {
	if repo == nil {
		panic("bookings repo is required")
	}
	if resources == nil {
		panic("resource directory is required")
	}
	if m == nil {
		panic("metrics are required")
	}

	payloads, err := NewPayloadValidator()
	if err != nil {
		return nil, err
	}

	ttl := cfg.HoldTTL
	if ttl <= 0 {
		ttl = DefaultHoldTTL
	}

	return &Service{
		repo:      repo,
		resources: resources,
		payloads:  payloads,
		metrics:   m,
		holdTTL:   ttl,
		now:       time.Now,
	}, nil
}

// CreateInput represents a booking request. Bookings are always created as holds.
type CreateInput struct {
	TenantID   uuid.UUID
	ResourceID uuid.UUID
	GroupID    *uuid.UUID
	Start      time.Time
	End        time.Time
	// HoldTTL overrides the engine default when positive.
	HoldTTL   time.Duration
	CreatedBy *string
}

// Create registers a new hold. Holds do not block other bookings, so no
// conflict check or resource lock is needed here; conversion to pencil or
// confirmed is where exclusion is enforced.
func (s *Service) Create(ctx context.Context, input CreateInput) (Booking, error) {
	if err := validateRange(input.Start, input.End); err != nil {
		return Booking{}, err
	}

	ok, err := s.resources.Exists(ctx, input.TenantID, input.ResourceID)
	if err != nil {
		return Booking{}, err
	}
	if !ok {
		return Booking{}, ErrResourceNotFound
	}

	ttl := input.HoldTTL
	if ttl <= 0 {
		ttl = s.holdTTL
	}

	now := s.now().UTC()
	expiry := now.Add(ttl)

	b := Booking{
		ID:            uuid.New(),
		TenantID:      input.TenantID,
		ResourceID:    input.ResourceID,
		GroupID:       input.GroupID,
		Start:         input.Start.UTC(),
		End:           input.End.UTC(),
		Status:        StatusHold,
		HoldExpiresAt: &expiry,
		Version:       1,
		CreatedBy:     input.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ev, err := s.createdEvent(b)
	if err != nil {
		return Booking{}, err
	}

	created, err := s.repo.Create(ctx, b, ev)
	if err != nil {
		return Booking{}, err
	}

	s.metrics.BookingsCreated.Inc()
	return created, nil
}

// TransitionInput represents a status change request against a known version.
type TransitionInput struct {
	TenantID        uuid.UUID
	BookingID       uuid.UUID
	Target          Status
	ExpectedVersion int64
	Actor           *string
	Reason          *string
}

// Transition applies one legal state machine edge. Transitions into an active
// status run through the store's per-resource critical section; transitions
// into a terminal status only need the version check.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (Booking, error) {
	// Rejected before the record is loaded, so the error names only the target.
	if !input.Target.Valid() || input.Target == StatusHold {
		return Booking{}, illegalTarget(input.Target)
	}

	current, err := s.repo.Get(ctx, input.TenantID, input.BookingID)
	if err != nil {
		return Booking{}, err
	}

	if err := ValidateTransition(current.Status, input.Target); err != nil {
		s.observeTransition(input.Target, "illegal")
		return Booking{}, err
	}
	if current.Version != input.ExpectedVersion {
		s.observeTransition(input.Target, "version_conflict")
		return Booking{}, ErrVersionConflict
	}

	ev, err := s.transitionEvent(current, input.Target, input.Actor, input.Reason)
	if err != nil {
		return Booking{}, err
	}

	updated, err := s.repo.ApplyTransition(ctx, TransitionApply{
		TenantID:        input.TenantID,
		BookingID:       input.BookingID,
		ResourceID:      current.ResourceID,
		Start:           current.Start,
		End:             current.End,
		Target:          input.Target,
		ExpectedVersion: input.ExpectedVersion,
		CheckConflict:   input.Target.Active(),
		Event:           ev,
	})
	if err != nil {
		s.observeTransition(input.Target, outcomeFor(err))
		return Booking{}, err
	}

	s.observeTransition(input.Target, "accepted")
	return updated, nil
}

// AvailabilityInput is a read-only conflict probe for a candidate interval.
type AvailabilityInput struct {
	TenantID   uuid.UUID
	ResourceID uuid.UUID
	Start      time.Time
	End        time.Time
}

// Availability reports whether the interval is free and which active bookings
// collide with it.
type Availability struct {
	Available bool
	Conflicts []Booking
}

// CheckAvailability runs the overlap check without committing anything. The
// answer is advisory: only a transition's critical section can make it final.
func (s *Service) CheckAvailability(ctx context.Context, input AvailabilityInput) (Availability, error) {
	if err := validateRange(input.Start, input.End); err != nil {
		return Availability{}, err
	}

	ok, err := s.resources.Exists(ctx, input.TenantID, input.ResourceID)
	if err != nil {
		return Availability{}, err
	}
	if !ok {
		return Availability{}, ErrResourceNotFound
	}

	conflicts, err := s.repo.ListActiveOverlapping(ctx, input.TenantID, input.ResourceID, input.Start, input.End, uuid.Nil)
	if err != nil {
		return Availability{}, err
	}

	return Availability{Available: len(conflicts) == 0, Conflicts: conflicts}, nil
}

// Get returns a booking, enforcing the tenant guard.
func (s *Service) Get(ctx context.Context, tenantID, id uuid.UUID) (Booking, error) {
	return s.repo.Get(ctx, tenantID, id)
}

// ExpiredHolds lists holds whose deadline has passed; consumed by the sweeper.
func (s *Service) ExpiredHolds(ctx context.Context, limit int) ([]Booking, error) {
	return s.repo.ListExpiredHolds(ctx, s.now().UTC(), limit)
}

func (s *Service) observeTransition(target Status, outcome string) {
	s.metrics.Transitions.WithLabelValues(string(target), outcome).Inc()
	if outcome == "conflict" {
		s.metrics.ConflictsTotal.Inc()
	}
}

func outcomeFor(err error) string {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		return "conflict"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrBusy):
		return "busy"
	default:
		return "error"
	}
}

func validateRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return ErrInvalidRange
	}
	return nil
}
