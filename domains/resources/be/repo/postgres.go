package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-labs/pencilbook/domains/resources/be/service"
)

// PostgresRepository implements the resource registry against the resources table.
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

const resourceColumns = "resource_id, tenant_id, display_name, active, created_at"

func (r *PostgresRepository) Create(ctx context.Context, res service.Resource) (service.Resource, error) {
	query := fmt.Sprintf(`
        INSERT INTO resources (%s) VALUES ($1, $2, $3, $4, $5)
        RETURNING %s`, resourceColumns, resourceColumns)

	return scanResource(r.pool.QueryRow(ctx, query, res.ID, res.TenantID, res.DisplayName, res.Active, res.CreatedAt))
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (service.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE tenant_id = $1 AND resource_id = $2`, resourceColumns)
	res, err := scanResource(r.pool.QueryRow(ctx, query, tenantID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Resource{}, service.ErrNotFound
		}
		return service.Resource{}, err
	}
	return res, nil
}

func (r *PostgresRepository) List(ctx context.Context, tenantID uuid.UUID) ([]service.Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources WHERE tenant_id = $1 ORDER BY created_at`, resourceColumns)
	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var resources []service.Resource
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, res)
	}
	return resources, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (service.Resource, error) {
	var res service.Resource
	if err := row.Scan(&res.ID, &res.TenantID, &res.DisplayName, &res.Active, &res.CreatedAt); err != nil {
		return service.Resource{}, err
	}
	return res, nil
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
