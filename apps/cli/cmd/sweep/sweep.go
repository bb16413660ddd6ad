// Package sweep runs hold expiry passes from the command line.
package sweep

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	bookingsrepo "github.com/atelier-labs/pencilbook/domains/bookings/be/repo"
	bookingsservice "github.com/atelier-labs/pencilbook/domains/bookings/be/service"
	"github.com/atelier-labs/pencilbook/domains/bookings/be/sweeper"
	resourcesrepo "github.com/atelier-labs/pencilbook/domains/resources/be/repo"
	resourcesservice "github.com/atelier-labs/pencilbook/domains/resources/be/service"
	platformlogging "github.com/atelier-labs/pencilbook/platform/go/logging"
	"github.com/atelier-labs/pencilbook/platform/go/metrics"
	"github.com/atelier-labs/pencilbook/platform/go/persistence"
)

// Command runs a single hold expiry pass, for operators and cron jobs. The API
// server runs the same sweep on a timer; this is the manual trigger.
func Command() *cobra.Command {
	var (
		databaseURL string
		batchSize   int
	)

	c := &cobra.Command{
		Use:   "sweep",
		Short: "Cancel expired holds once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			logger, err := platformlogging.NewLogger(platformlogging.Config{Component: "cli-sweep", Level: "info"})
			if err != nil {
				log.Fatalf("init zap logger: %v", err)
			}
			defer func() {
				_ = logger.Sync()
			}()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			m := metrics.New()

			resourceService := resourcesservice.New(resourcesrepo.NewPostgresRepository(pool))
			bookingRepo := bookingsrepo.NewPostgresRepository(pool, bookingsrepo.Options{Metrics: m})
			bookingService, err := bookingsservice.New(bookingRepo, resourceService, m, bookingsservice.Config{})
			if err != nil {
				return fmt.Errorf("init booking engine: %w", err)
			}

			s := sweeper.New(bookingService, logger, m, sweeper.Config{BatchSize: batchSize})
			s.Sweep(ctx)

			fmt.Fprintln(cmd.OutOrStdout(), "Sweep complete.")
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().IntVar(&batchSize, "batch-size", sweeper.DefaultBatchSize, "Maximum holds cancelled in this pass")
	_ = c.MarkFlagRequired("database-url")

	return c
}
