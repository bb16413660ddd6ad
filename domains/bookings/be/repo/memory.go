package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/atelier-labs/pencilbook/domains/bookings/be/service"
)

type lockKey struct {
	tenantID   uuid.UUID
	resourceID uuid.UUID
}

// MemoryRepository is an in-process booking store with the same semantics as
// the Postgres one: per (tenant, resource) critical sections with a bounded
// wait, compare-and-swap on the version column, and an event appended in the
// same mutation. It also exposes the event log for in-process readers.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings map[uuid.UUID]service.Booking
	events   []service.Event
	nextID   int64

	locksMu  sync.Mutex
	locks    map[lockKey]chan struct{}
	lockWait time.Duration
}

// NewMemoryRepository constructs an empty store. lockWait bounds how long a
// transition waits for a contended resource before returning ErrBusy; zero
// means DefaultLockTimeout.
func NewMemoryRepository(lockWait time.Duration) *MemoryRepository {
	if lockWait <= 0 {
		lockWait = DefaultLockTimeout
	}
	return &MemoryRepository{
		bookings: make(map[uuid.UUID]service.Booking),
		locks:    make(map[lockKey]chan struct{}),
		lockWait: lockWait,
		nextID:   1,
	}
}

func (r *MemoryRepository) Create(ctx context.Context, b service.Booking, ev service.Event) (service.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.bookings[b.ID] = b
	r.appendEventLocked(ev, b.Version)
	return b, nil
}

func (r *MemoryRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.bookings[id]
	if !ok {
		return service.Booking{}, service.ErrNotFound
	}
	if b.TenantID != tenantID {
		return service.Booking{}, service.ErrTenantMismatch
	}
	return b, nil
}

func (r *MemoryRepository) ApplyTransition(ctx context.Context, p service.TransitionApply) (service.Booking, error) {
	if p.CheckConflict {
		release, err := r.acquire(ctx, lockKey{p.TenantID, p.ResourceID})
		if err != nil {
			return service.Booking{}, err
		}
		defer release()

		conflicts, err := r.ListActiveOverlapping(ctx, p.TenantID, p.ResourceID, p.Start, p.End, p.BookingID)
		if err != nil {
			return service.Booking{}, err
		}
		if len(conflicts) > 0 {
			return service.Booking{}, &service.ConflictError{Conflicts: conflicts}
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	b, ok := r.bookings[p.BookingID]
	if !ok {
		return service.Booking{}, service.ErrNotFound
	}
	if b.TenantID != p.TenantID {
		return service.Booking{}, service.ErrTenantMismatch
	}
	if b.Version != p.ExpectedVersion {
		return service.Booking{}, service.ErrVersionConflict
	}

	b.Status = p.Target
	b.HoldExpiresAt = nil
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	r.bookings[b.ID] = b

	r.appendEventLocked(p.Event, b.Version)
	return b, nil
}

func (r *MemoryRepository) ListActiveOverlapping(ctx context.Context, tenantID, resourceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]service.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Booking
	for _, b := range r.bookings {
		if b.TenantID != tenantID || b.ResourceID != resourceID || b.ID == excludeID {
			continue
		}
		if !b.Status.Active() {
			continue
		}
		if service.Overlaps(b.Start, b.End, start, end) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (r *MemoryRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]service.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Booking
	for _, b := range r.bookings {
		if b.Status != service.StatusHold || b.HoldExpiresAt == nil {
			continue
		}
		if !b.HoldExpiresAt.After(now) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HoldExpiresAt.Before(*out[j].HoldExpiresAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByAggregate returns a booking's history with version > fromVersion, in
// version order.
func (r *MemoryRepository) ListByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID, fromVersion int64) ([]service.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Event
	for _, ev := range r.events {
		if ev.AggregateID == aggregateID && ev.TenantID == tenantID && ev.Version > fromVersion {
			out = append(out, ev)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

// ListByTenant returns a tenant's events in append order, newest last.
func (r *MemoryRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]service.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Event
	for _, ev := range r.events {
		if ev.TenantID == tenantID {
			out = append(out, ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// ListAfterCursor returns events with id > cursor across all tenants, in id
// order. Used by the relay to tail the log.
func (r *MemoryRepository) ListAfterCursor(ctx context.Context, cursor int64, limit int) ([]service.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []service.Event
	for _, ev := range r.events {
		if ev.ID > cursor {
			out = append(out, ev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemoryRepository) appendEventLocked(ev service.Event, version int64) {
	ev.ID = r.nextID
	ev.Version = version
	ev.OccurredAt = time.Now().UTC()
	r.nextID++
	r.events = append(r.events, ev)
}

// acquire takes the per-pair critical section, waiting at most lockWait.
func (r *MemoryRepository) acquire(ctx context.Context, key lockKey) (func(), error) {
	r.locksMu.Lock()
	sem, ok := r.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		r.locks[key] = sem
	}
	r.locksMu.Unlock()

	timer := time.NewTimer(r.lockWait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-timer.C:
		return nil, service.ErrBusy
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

var _ service.Repository = (*MemoryRepository)(nil)
