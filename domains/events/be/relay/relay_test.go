package relay_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	bookingsrepo "github.com/atelier-labs/pencilbook/domains/bookings/be/repo"
	bookings "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/events/be/relay"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
)

type openDirectory struct{}

func (openDirectory) Exists(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

type relayFixture struct {
	relay  *relay.Relay
	engine *bookings.Service
	client *redis.Client

	tenantID uuid.UUID
}

func newRelayFixture(t *testing.T) *relayFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := bookingsrepo.NewMemoryRepository(time.Second)
	m := metrics.NewWith(prometheus.NewRegistry())
	engine, err := bookings.New(store, openDirectory{}, m, bookings.Config{})
	require.NoError(t, err)

	r := relay.New(store, client, zaptest.NewLogger(t), m, relay.Config{BatchSize: 10})
	return &relayFixture{relay: r, engine: engine, client: client, tenantID: uuid.New()}
}

func (f *relayFixture) createAndPencil(t *testing.T) bookings.Booking {
	t.Helper()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	b, err := f.engine.Create(context.Background(), bookings.CreateInput{
		TenantID:   f.tenantID,
		ResourceID: uuid.New(),
		Start:      start,
		End:        start.Add(time.Hour),
	})
	require.NoError(t, err)

	b, err = f.engine.Transition(context.Background(), bookings.TransitionInput{
		TenantID:        f.tenantID,
		BookingID:       b.ID,
		Target:          bookings.StatusPencil,
		ExpectedVersion: b.Version,
	})
	require.NoError(t, err)
	return b
}

func TestPollPublishesEventsInOrder(t *testing.T) {
	f := newRelayFixture(t)
	b := f.createAndPencil(t)

	require.NoError(t, f.relay.Poll(context.Background()))

	msgs, err := f.client.XRange(context.Background(), relay.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	require.Equal(t, bookings.EventTypeCreated, msgs[0].Values["type"])
	require.Equal(t, bookings.EventTypePencilled, msgs[1].Values["type"])
	require.Equal(t, b.ID.String(), msgs[0].Values["booking_id"])
	require.Equal(t, f.tenantID.String(), msgs[0].Values["tenant_id"])
	require.Equal(t, "1", msgs[0].Values["version"])
	require.Equal(t, "2", msgs[1].Values["version"])
}

func TestPollAdvancesCursor(t *testing.T) {
	f := newRelayFixture(t)
	f.createAndPencil(t)

	require.NoError(t, f.relay.Poll(context.Background()))

	// Nothing new: a second poll publishes nothing.
	require.NoError(t, f.relay.Poll(context.Background()))
	msgs, err := f.client.XRange(context.Background(), relay.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	// New activity resumes after the stored cursor.
	f.createAndPencil(t)
	require.NoError(t, f.relay.Poll(context.Background()))
	msgs, err = f.client.XRange(context.Background(), relay.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 4)

	cursor, err := f.client.Get(context.Background(), relay.DefaultCursorKey).Result()
	require.NoError(t, err)
	require.Equal(t, "4", cursor)
}

func TestPollRespectsBatchSize(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := bookingsrepo.NewMemoryRepository(time.Second)
	m := metrics.NewWith(prometheus.NewRegistry())
	engine, err := bookings.New(store, openDirectory{}, m, bookings.Config{})
	require.NoError(t, err)

	r := relay.New(store, client, zaptest.NewLogger(t), m, relay.Config{BatchSize: 3})

	tenantID := uuid.New()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_, err := engine.Create(context.Background(), bookings.CreateInput{
			TenantID:   tenantID,
			ResourceID: uuid.New(),
			Start:      start.Add(time.Duration(i) * time.Hour),
			End:        start.Add(time.Duration(i+1) * time.Hour),
		})
		require.NoError(t, err)
	}

	require.NoError(t, r.Poll(context.Background()))
	msgs, err := client.XRange(context.Background(), relay.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	require.NoError(t, r.Poll(context.Background()))
	msgs, err = client.XRange(context.Background(), relay.DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, msgs, 5)
}
