package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	bookings "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/events/be/service"
)

// PostgresRepository reads the booking_events table. The table is append-only;
// this repository never writes to it.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository; assumes migrations already created the tables.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("postgres pool is required")
	}
	return &PostgresRepository{pool: pool}
}

const eventColumns = `event_id, aggregate_id, tenant_id, event_type, event_data, event_version, occurred_at`

func (r *PostgresRepository) ListByAggregate(ctx context.Context, tenantID, aggregateID uuid.UUID, fromVersion int64) ([]bookings.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+` FROM booking_events
        WHERE aggregate_id = $1 AND tenant_id = $2 AND event_version > $3
        ORDER BY event_version`, aggregateID, tenantID, fromVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit int) ([]bookings.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+` FROM booking_events
        WHERE tenant_id = $1
        ORDER BY event_id DESC
        LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := collectEvents(rows)
	if err != nil {
		return nil, err
	}

	// Newest-last for the caller.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (r *PostgresRepository) ListAfterCursor(ctx context.Context, cursor int64, limit int) ([]bookings.Event, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT `+eventColumns+` FROM booking_events
        WHERE event_id > $1
        ORDER BY event_id
        LIMIT $2`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectEvents(rows)
}

func collectEvents(rows pgx.Rows) ([]bookings.Event, error) {
	var events []bookings.Event
	for rows.Next() {
		var ev bookings.Event
		if err := rows.Scan(&ev.ID, &ev.AggregateID, &ev.TenantID, &ev.Type, &ev.Data, &ev.Version, &ev.OccurredAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

var _ service.Repository = (*PostgresRepository)(nil)
