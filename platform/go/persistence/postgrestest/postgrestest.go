// Package postgrestest spins up a disposable Postgres for integration tests.
package postgrestest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/atelier-labs/pencilbook/platform/go/persistence"
)

// NewPool starts a postgres container, applies the embedded DDL, and returns a
// connected pool. The container and pool are cleaned up with the test. Callers
// should skip in -short mode before calling.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("pencilbook"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("container connection string: %v", err)
	}

	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: connString})
	if err != nil {
		t.Fatalf("create test pool: %v", err)
	}
	t.Cleanup(func() { persistence.ClosePool(pool) })

	if err := persistence.Bootstrap(ctx, pool); err != nil {
		t.Fatalf("apply schema: %v", err)
	}

	return pool
}
