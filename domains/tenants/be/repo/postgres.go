package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-labs/pencilbook/domains/tenants/be/service"
)

// PostgresRepository implements the tenant registry against the tenants table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository; assumes migrations already created the table.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("postgres pool is required")
	}
	return &PostgresRepository{pool: pool}
}

const tenantColumns = "tenant_id, slug, display_name, status, created_at"

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	query := fmt.Sprintf(`
        INSERT INTO tenants (%s) VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, tenantColumns, tenantColumns)

	row := r.pool.QueryRow(ctx, query, t.ID, t.Slug, t.DisplayName, string(t.Status), t.CreatedAt)
	out, err := scanTenant(row)
	if err != nil {
		return service.Tenant{}, mapConflict(err)
	}
	return out, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants WHERE tenant_id = $1`, tenantColumns)
	out, err := scanTenant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return out, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]service.Tenant, error) {
	query := fmt.Sprintf(`SELECT %s FROM tenants ORDER BY created_at`, tenantColumns)
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenants []service.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (r *PostgresRepository) SetStatus(ctx context.Context, id uuid.UUID, status service.TenantStatus) (service.Tenant, error) {
	query := fmt.Sprintf(`UPDATE tenants SET status = $2 WHERE tenant_id = $1 RETURNING %s`, tenantColumns)
	out, err := scanTenant(r.pool.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (service.Tenant, error) {
	var (
		t      service.Tenant
		status string
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.DisplayName, &status, &t.CreatedAt); err != nil {
		return service.Tenant{}, err
	}
	t.Status = service.TenantStatus(status)
	return t, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrNotFound
	}
	return err
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && strings.EqualFold(pgErr.ConstraintName, "tenants_slug_unique") {
			return service.ErrConflictSlug
		}
	}
	return err
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
