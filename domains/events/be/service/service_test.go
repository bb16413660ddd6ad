package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	bookingsrepo "github.com/atelier-labs/pencilbook/domains/bookings/be/repo"
	bookings "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/events/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
)

type openDirectory struct{}

func (openDirectory) Exists(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func seedBooking(t *testing.T, engine *bookings.Service, tenantID uuid.UUID) bookings.Booking {
	t.Helper()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b, err := engine.Create(context.Background(), bookings.CreateInput{
		TenantID:   tenantID,
		ResourceID: uuid.New(),
		Start:      start,
		End:        start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	for _, target := range []bookings.Status{bookings.StatusPencil, bookings.StatusConfirmed} {
		b, err = engine.Transition(context.Background(), bookings.TransitionInput{
			TenantID:        tenantID,
			BookingID:       b.ID,
			Target:          target,
			ExpectedVersion: b.Version,
		})
		require.NoError(t, err)
	}
	return b
}

func TestHistoryReturnsOrderedEvents(t *testing.T) {
	store := bookingsrepo.NewMemoryRepository(time.Second)
	engine, err := bookings.New(store, openDirectory{}, metrics.NewWith(prometheus.NewRegistry()), bookings.Config{})
	require.NoError(t, err)

	svc := service.New(store)
	tenantID := uuid.New()
	b := seedBooking(t, engine, tenantID)

	events, err := svc.History(context.Background(), tenantID, b.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i, ev := range events {
		require.EqualValues(t, i+1, ev.Version)
	}
	require.Equal(t, bookings.EventTypeCreated, events[0].Type)
	require.Equal(t, bookings.EventTypeConfirmed, events[2].Type)

	// Incremental reads resume after a known version.
	tail, err := svc.History(context.Background(), tenantID, b.ID, 2)
	require.NoError(t, err)
	require.Len(t, tail, 1)
	require.EqualValues(t, 3, tail[0].Version)
}

func TestHistoryHidesForeignTenants(t *testing.T) {
	store := bookingsrepo.NewMemoryRepository(time.Second)
	engine, err := bookings.New(store, openDirectory{}, metrics.NewWith(prometheus.NewRegistry()), bookings.Config{})
	require.NoError(t, err)

	svc := service.New(store)
	tenantID := uuid.New()
	b := seedBooking(t, engine, tenantID)

	_, err = svc.History(context.Background(), uuid.New(), b.ID, 0)
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.History(context.Background(), tenantID, uuid.New(), 0)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestRecentScopesToTenant(t *testing.T) {
	store := bookingsrepo.NewMemoryRepository(time.Second)
	engine, err := bookings.New(store, openDirectory{}, metrics.NewWith(prometheus.NewRegistry()), bookings.Config{})
	require.NoError(t, err)

	svc := service.New(store)
	tenantA := uuid.New()
	tenantB := uuid.New()
	seedBooking(t, engine, tenantA)
	seedBooking(t, engine, tenantB)

	events, err := svc.Recent(context.Background(), tenantA, 10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, ev := range events {
		require.Equal(t, tenantA, ev.TenantID)
	}
}
