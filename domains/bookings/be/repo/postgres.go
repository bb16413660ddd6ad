package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
	"github.com/atelier-labs/pencilbook/platform/go/persistence"
)

const (
	// DefaultLockTimeout bounds the wait for the per-resource advisory lock so a
	// hot resource degrades to Busy instead of stalling callers.
	DefaultLockTimeout = 2 * time.Second

	sqlstateLockNotAvailable  = "55P03"
	sqlstateExclusionViolated = "23P01"
	sqlstateUniqueViolated    = "23505"
)

// Options tunes the Postgres booking store.
type Options struct {
	// LockTimeout overrides DefaultLockTimeout when positive.
	LockTimeout time.Duration
	// Metrics, when set, records lock wait times.
	Metrics *metrics.Metrics
}

// PostgresRepository implements the booking store on pgx. The check-then-write
// critical section is serialized per (tenant, resource) with a transaction
// scoped advisory lock; the schema's range-exclusion constraint backs the same
// invariant at commit time.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	metrics     *metrics.Metrics
}

// NewPostgresRepository constructs a repository; assumes migrations already created the tables.
func NewPostgresRepository(pool *pgxpool.Pool, opts Options) *PostgresRepository {
	if pool == nil {
		panic("postgres pool is required")
	}

	timeout := opts.LockTimeout
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}

	return &PostgresRepository{pool: pool, lockTimeout: timeout, metrics: opts.Metrics}
}

const bookingColumns = `booking_id, tenant_id, resource_id, group_id, start_time, end_time,
    status, hold_expires_at, version, created_by, created_at, updated_at`

func (r *PostgresRepository) Create(ctx context.Context, b service.Booking, ev service.Event) (service.Booking, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return service.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	query := fmt.Sprintf(`
        INSERT INTO bookings (%s)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING %s`, bookingColumns, bookingColumns)

	created, err := scanBooking(tx.QueryRow(ctx, query,
		b.ID, b.TenantID, b.ResourceID, b.GroupID, b.Start, b.End,
		string(b.Status), b.HoldExpiresAt, b.Version, b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	))
	if err != nil {
		return service.Booking{}, mapPgError(err)
	}

	ev.Version = created.Version
	if err := appendEvent(ctx, tx, ev); err != nil {
		return service.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return service.Booking{}, mapPgError(err)
	}
	return created, nil
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE booking_id = $1`, bookingColumns)

	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Booking{}, service.ErrNotFound
		}
		return service.Booking{}, err
	}
	if b.TenantID != tenantID {
		return service.Booking{}, service.ErrTenantMismatch
	}
	return b, nil
}

func (r *PostgresRepository) ApplyTransition(ctx context.Context, p service.TransitionApply) (service.Booking, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return service.Booking{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	if p.CheckConflict {
		if err := r.lockResource(ctx, tx, p.TenantID, p.ResourceID); err != nil {
			return service.Booking{}, err
		}

		conflicts, err := listActiveOverlappingTx(ctx, tx, p.TenantID, p.ResourceID, p.Start, p.End, p.BookingID)
		if err != nil {
			return service.Booking{}, err
		}
		if len(conflicts) > 0 {
			return service.Booking{}, &service.ConflictError{Conflicts: conflicts}
		}
	}

	// Compare-and-swap on the expected version; hold_expires_at is cleared on
	// every edge since no transition targets hold.
	update := fmt.Sprintf(`
        UPDATE bookings
        SET status = $1, hold_expires_at = NULL, version = version + 1, updated_at = now()
        WHERE booking_id = $2 AND tenant_id = $3 AND version = $4
        RETURNING %s`, bookingColumns)

	updated, err := scanBooking(tx.QueryRow(ctx, update,
		string(p.Target), p.BookingID, p.TenantID, p.ExpectedVersion,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Booking{}, r.disambiguateStaleWrite(ctx, tx, p)
		}
		return service.Booking{}, mapPgError(err)
	}

	ev := p.Event
	ev.Version = updated.Version
	if err := appendEvent(ctx, tx, ev); err != nil {
		return service.Booking{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return service.Booking{}, mapPgError(err)
	}
	return updated, nil
}

func (r *PostgresRepository) ListActiveOverlapping(ctx context.Context, tenantID, resourceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]service.Booking, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM bookings
        WHERE tenant_id = $1 AND resource_id = $2
          AND status IN ('pencil', 'confirmed')
          AND start_time < $4 AND end_time > $3
          AND booking_id <> $5
        ORDER BY start_time`, bookingColumns)

	rows, err := r.pool.Query(ctx, query, tenantID, resourceID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func (r *PostgresRepository) ListExpiredHolds(ctx context.Context, now time.Time, limit int) ([]service.Booking, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM bookings
        WHERE status = 'hold' AND hold_expires_at <= $1
        ORDER BY hold_expires_at
        LIMIT $2`, bookingColumns)

	rows, err := r.pool.Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

// lockResource serializes check-then-write sequences for one (tenant, resource)
// pair. The lock is transaction scoped, so commit or rollback releases it.
func (r *PostgresRepository) lockResource(ctx context.Context, tx pgx.Tx, tenantID, resourceID uuid.UUID) error {
	timeout := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", r.lockTimeout.Milliseconds())
	if _, err := tx.Exec(ctx, timeout); err != nil {
		return fmt.Errorf("set lock timeout: %w", err)
	}

	started := time.Now()
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, persistence.ResourceLockKey(tenantID, resourceID))
	if r.metrics != nil {
		r.metrics.LockWaitSeconds.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

// disambiguateStaleWrite runs after a zero-row CAS update to tell the caller
// which precondition failed.
func (r *PostgresRepository) disambiguateStaleWrite(ctx context.Context, tx pgx.Tx, p service.TransitionApply) error {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE booking_id = $1`, bookingColumns)

	b, err := scanBooking(tx.QueryRow(ctx, query, p.BookingID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrNotFound
		}
		return err
	}
	if b.TenantID != p.TenantID {
		return service.ErrTenantMismatch
	}
	return service.ErrVersionConflict
}

func listActiveOverlappingTx(ctx context.Context, tx pgx.Tx, tenantID, resourceID uuid.UUID, start, end time.Time, excludeID uuid.UUID) ([]service.Booking, error) {
	query := fmt.Sprintf(`
        SELECT %s FROM bookings
        WHERE tenant_id = $1 AND resource_id = $2
          AND status IN ('pencil', 'confirmed')
          AND start_time < $4 AND end_time > $3
          AND booking_id <> $5
        ORDER BY start_time`, bookingColumns)

	rows, err := tx.Query(ctx, query, tenantID, resourceID, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBookings(rows)
}

func appendEvent(ctx context.Context, tx pgx.Tx, ev service.Event) error {
	query := `
        INSERT INTO booking_events (aggregate_id, tenant_id, event_type, event_data, event_version, occurred_at)
        VALUES ($1, $2, $3, $4, $5, now())`

	if _, err := tx.Exec(ctx, query, ev.AggregateID, ev.TenantID, ev.Type, ev.Data, ev.Version); err != nil {
		return mapPgError(err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (service.Booking, error) {
	var (
		b      service.Booking
		status string
	)
	err := row.Scan(
		&b.ID, &b.TenantID, &b.ResourceID, &b.GroupID, &b.Start, &b.End,
		&status, &b.HoldExpiresAt, &b.Version, &b.CreatedBy, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return service.Booking{}, err
	}
	b.Status = service.Status(status)
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]service.Booking, error) {
	var bookings []service.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// mapPgError translates SQLSTATEs into the engine's error taxonomy. The
// exclusion constraint is a backstop: with the advisory lock discipline the
// overlap query reports conflicts first, so a 23P01 here carries no details.
func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateLockNotAvailable:
			return service.ErrBusy
		case sqlstateExclusionViolated:
			return &service.ConflictError{}
		case sqlstateUniqueViolated:
			if pgErr.ConstraintName == "booking_events_aggregate_version_unique" {
				return service.ErrVersionConflict
			}
		}
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
