package repo_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/atelier-labs/pencilbook/domains/bookings/be/repo"
	"github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	eventsrepo "github.com/atelier-labs/pencilbook/domains/events/be/repo"
	"github.com/atelier-labs/pencilbook/platform/go/persistence"
	"github.com/atelier-labs/pencilbook/platform/go/persistence/postgrestest"
)

type pgFixture struct {
	store  *repo.PostgresRepository
	events *eventsrepo.PostgresRepository

	tenantID   uuid.UUID
	resourceID uuid.UUID
}

func newPgFixtureWithPool(t *testing.T, pool *pgxpool.Pool) *pgFixture {
	t.Helper()

	return &pgFixture{
		store:      repo.NewPostgresRepository(pool, repo.Options{LockTimeout: 5 * time.Second}),
		events:     eventsrepo.NewPostgresRepository(pool),
		tenantID:   uuid.New(),
		resourceID: uuid.New(),
	}
}

func (f *pgFixture) newHold(start, end time.Time) (service.Booking, service.Event) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	expiry := now.Add(30 * time.Minute)

	b := service.Booking{
		ID:            uuid.New(),
		TenantID:      f.tenantID,
		ResourceID:    f.resourceID,
		Start:         start,
		End:           end,
		Status:        service.StatusHold,
		HoldExpiresAt: &expiry,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	data, _ := json.Marshal(map[string]string{"booking_id": b.ID.String()})
	ev := service.Event{
		AggregateID: b.ID,
		TenantID:    b.TenantID,
		Type:        service.EventTypeCreated,
		Data:        data,
	}
	return b, ev
}

func (f *pgFixture) transitionEvent(b service.Booking, target service.Status) service.Event {
	data, _ := json.Marshal(map[string]string{
		"booking_id":  b.ID.String(),
		"from_status": string(b.Status),
		"to_status":   string(target),
	})
	return service.Event{
		AggregateID: b.ID,
		TenantID:    b.TenantID,
		Type:        service.EventTypePencilled,
		Data:        data,
	}
}

func slot(h int) (time.Time, time.Time) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return base.Add(time.Duration(h) * time.Hour), base.Add(time.Duration(h+2) * time.Hour)
}

func TestPostgresRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test, skipped in -short")
	}

	pool := postgrestest.NewPool(t)
	ctx := context.Background()

	t.Run("create and get roundtrip", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(10)
		b, ev := f.newHold(start, end)

		created, err := f.store.Create(ctx, b, ev)
		require.NoError(t, err)
		require.Equal(t, b.ID, created.ID)
		require.EqualValues(t, 1, created.Version)

		got, err := f.store.Get(ctx, f.tenantID, b.ID)
		require.NoError(t, err)
		require.Equal(t, service.StatusHold, got.Status)
		require.True(t, got.Start.Equal(start))
		require.True(t, got.End.Equal(end))

		history, err := f.events.ListByAggregate(ctx, f.tenantID, b.ID, 0)
		require.NoError(t, err)
		require.Len(t, history, 1)
		require.EqualValues(t, 1, history[0].Version)

		_, err = f.store.Get(ctx, uuid.New(), b.ID)
		require.ErrorIs(t, err, service.ErrTenantMismatch)

		_, err = f.store.Get(ctx, f.tenantID, uuid.New())
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("transition bumps version and appends event", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(20)
		b, ev := f.newHold(start, end)
		_, err := f.store.Create(ctx, b, ev)
		require.NoError(t, err)

		updated, err := f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID:        f.tenantID,
			BookingID:       b.ID,
			ResourceID:      f.resourceID,
			Start:           start,
			End:             end,
			Target:          service.StatusPencil,
			ExpectedVersion: 1,
			CheckConflict:   true,
			Event:           f.transitionEvent(b, service.StatusPencil),
		})
		require.NoError(t, err)
		require.Equal(t, service.StatusPencil, updated.Status)
		require.EqualValues(t, 2, updated.Version)
		require.Nil(t, updated.HoldExpiresAt)

		history, err := f.events.ListByAggregate(ctx, f.tenantID, b.ID, 0)
		require.NoError(t, err)
		require.Len(t, history, 2)
		require.EqualValues(t, 2, history[1].Version)
	})

	t.Run("stale version is disambiguated", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(30)
		b, ev := f.newHold(start, end)
		_, err := f.store.Create(ctx, b, ev)
		require.NoError(t, err)

		apply := service.TransitionApply{
			TenantID:        f.tenantID,
			BookingID:       b.ID,
			ResourceID:      f.resourceID,
			Start:           start,
			End:             end,
			Target:          service.StatusPencil,
			ExpectedVersion: 9,
			CheckConflict:   true,
			Event:           f.transitionEvent(b, service.StatusPencil),
		}
		_, err = f.store.ApplyTransition(ctx, apply)
		require.ErrorIs(t, err, service.ErrVersionConflict)

		apply.TenantID = uuid.New()
		apply.ExpectedVersion = 1
		_, err = f.store.ApplyTransition(ctx, apply)
		require.ErrorIs(t, err, service.ErrTenantMismatch)

		apply.TenantID = f.tenantID
		apply.BookingID = uuid.New()
		_, err = f.store.ApplyTransition(ctx, apply)
		require.ErrorIs(t, err, service.ErrNotFound)
	})

	t.Run("overlap check blocks the loser", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		base := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
		at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

		winner, ev := f.newHold(at(10), at(12))
		_, err := f.store.Create(ctx, winner, ev)
		require.NoError(t, err)

		_, err = f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: winner.ID, ResourceID: f.resourceID,
			Start: at(10), End: at(12),
			Target: service.StatusConfirmed, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(winner, service.StatusConfirmed),
		})
		require.NoError(t, err)

		loser, ev := f.newHold(at(11), at(13))
		_, err = f.store.Create(ctx, loser, ev)
		require.NoError(t, err)

		_, err = f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: loser.ID, ResourceID: f.resourceID,
			Start: at(11), End: at(13),
			Target: service.StatusPencil, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(loser, service.StatusPencil),
		})
		var conflict *service.ConflictError
		require.ErrorAs(t, err, &conflict)
		require.Len(t, conflict.Conflicts, 1)
		require.Equal(t, winner.ID, conflict.Conflicts[0].ID)

		// The adjacent slot stays bookable.
		adjacent, ev := f.newHold(at(12), at(13))
		_, err = f.store.Create(ctx, adjacent, ev)
		require.NoError(t, err)

		_, err = f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: adjacent.ID, ResourceID: f.resourceID,
			Start: at(12), End: at(13),
			Target: service.StatusConfirmed, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(adjacent, service.StatusConfirmed),
		})
		require.NoError(t, err)
	})

	t.Run("exclusion constraint backstops unchecked writes", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

		first, ev := f.newHold(at(10), at(12))
		_, err := f.store.Create(ctx, first, ev)
		require.NoError(t, err)
		_, err = f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: first.ID, ResourceID: f.resourceID,
			Start: at(10), End: at(12),
			Target: service.StatusConfirmed, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(first, service.StatusConfirmed),
		})
		require.NoError(t, err)

		// A write that skips the overlap check still cannot commit an overlap.
		second, ev := f.newHold(at(11), at(13))
		_, err = f.store.Create(ctx, second, ev)
		require.NoError(t, err)
		_, err = f.store.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: second.ID, ResourceID: f.resourceID,
			Start: at(11), End: at(13),
			Target: service.StatusPencil, ExpectedVersion: 1, CheckConflict: false,
			Event: f.transitionEvent(second, service.StatusPencil),
		})
		var conflict *service.ConflictError
		require.ErrorAs(t, err, &conflict)
	})

	t.Run("expired holds are listed oldest first", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(40)

		now := time.Now().UTC()
		b, ev := f.newHold(start, end)
		past := now.Add(-time.Hour)
		b.HoldExpiresAt = &past
		_, err := f.store.Create(ctx, b, ev)
		require.NoError(t, err)

		fresh, ev := f.newHold(start.Add(3*time.Hour), end.Add(3*time.Hour))
		_, err = f.store.Create(ctx, fresh, ev)
		require.NoError(t, err)

		holds, err := f.store.ListExpiredHolds(ctx, now, 10)
		require.NoError(t, err)

		ids := make(map[uuid.UUID]bool, len(holds))
		for _, h := range holds {
			ids[h.ID] = true
		}
		require.True(t, ids[b.ID])
		require.False(t, ids[fresh.ID])
	})

	t.Run("contended resource reports busy within the lock timeout", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(60)
		b, ev := f.newHold(start, end)
		_, err := f.store.Create(ctx, b, ev)
		require.NoError(t, err)

		// Another session holds the pair's advisory lock for the whole test.
		holder, err := pool.Begin(ctx)
		require.NoError(t, err)
		defer func() { _ = holder.Rollback(ctx) }()
		_, err = holder.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", persistence.ResourceLockKey(f.tenantID, f.resourceID))
		require.NoError(t, err)

		impatient := repo.NewPostgresRepository(pool, repo.Options{LockTimeout: 100 * time.Millisecond})
		_, err = impatient.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: b.ID, ResourceID: f.resourceID,
			Start: start, End: end,
			Target: service.StatusPencil, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(b, service.StatusPencil),
		})
		require.ErrorIs(t, err, service.ErrBusy)

		// Once the holder lets go the same transition succeeds.
		require.NoError(t, holder.Rollback(ctx))
		updated, err := impatient.ApplyTransition(ctx, service.TransitionApply{
			TenantID: f.tenantID, BookingID: b.ID, ResourceID: f.resourceID,
			Start: start, End: end,
			Target: service.StatusPencil, ExpectedVersion: 1, CheckConflict: true,
			Event: f.transitionEvent(b, service.StatusPencil),
		})
		require.NoError(t, err)
		require.Equal(t, service.StatusPencil, updated.Status)
	})

	t.Run("concurrent confirms elect one winner", func(t *testing.T) {
		f := newPgFixtureWithPool(t, pool)
		start, end := slot(50)

		const contenders = 8
		holds := make([]service.Booking, contenders)
		for i := range holds {
			b, ev := f.newHold(start, end)
			_, err := f.store.Create(ctx, b, ev)
			require.NoError(t, err)
			holds[i] = b
		}

		var wg sync.WaitGroup
		results := make([]error, contenders)
		for i := range holds {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = f.store.ApplyTransition(ctx, service.TransitionApply{
					TenantID: f.tenantID, BookingID: holds[i].ID, ResourceID: f.resourceID,
					Start: start, End: end,
					Target: service.StatusConfirmed, ExpectedVersion: 1, CheckConflict: true,
					Event: f.transitionEvent(holds[i], service.StatusConfirmed),
				})
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range results {
			if err == nil {
				wins++
				continue
			}
			var conflict *service.ConflictError
			require.ErrorAs(t, err, &conflict)
		}
		require.Equal(t, 1, wins)
	})
}
