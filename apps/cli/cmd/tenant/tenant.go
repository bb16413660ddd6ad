// Package tenant manages the tenant registry from the command line.
package tenant

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	tenantsrepo "github.com/atelier-labs/pencilbook/domains/tenants/be/repo"
	tenantsservice "github.com/atelier-labs/pencilbook/domains/tenants/be/service"
	"github.com/atelier-labs/pencilbook/platform/go/persistence"
)

// Command groups tenant registry operations.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage the tenant registry",
	}

	cmd.AddCommand(createCommand(), listCommand(), disableCommand())
	return cmd
}

func createCommand() *cobra.Command {
	var (
		databaseURL string
		slug        string
		displayName string
	)

	c := &cobra.Command{
		Use:   "create",
		Short: "Register a tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))

			input := tenantsservice.CreateInput{Slug: slug}
			if displayName != "" {
				input.DisplayName = &displayName
			}

			t, err := svc.Create(ctx, input)
			if err != nil {
				return fmt.Errorf("create tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant created: %s (%s)\n", t.Slug, t.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&slug, "slug", "", "Unique tenant slug")
	c.Flags().StringVar(&displayName, "display-name", "", "Human readable tenant name")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("slug")

	return c
}

func listCommand() *cobra.Command {
	var databaseURL string

	c := &cobra.Command{
		Use:   "list",
		Short: "List registered tenants",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))

			tenants, err := svc.List(ctx)
			if err != nil {
				return fmt.Errorf("list tenants: %w", err)
			}

			for _, t := range tenants {
				name := ""
				if t.DisplayName != nil {
					name = *t.DisplayName
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", t.ID, t.Slug, t.Status, name)
			}
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	_ = c.MarkFlagRequired("database-url")

	return c
}

func disableCommand() *cobra.Command {
	var (
		databaseURL string
		tenantID    string
	)

	c := &cobra.Command{
		Use:   "disable",
		Short: "Disable a tenant, rejecting its requests at admission",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			id, err := uuid.Parse(tenantID)
			if err != nil {
				return fmt.Errorf("invalid tenant id: %w", err)
			}

			pool, err := persistence.NewPool(ctx, persistence.PoolConfig{ConnString: databaseURL})
			if err != nil {
				return fmt.Errorf("init pool: %w", err)
			}
			defer persistence.ClosePool(pool)

			svc := tenantsservice.New(tenantsrepo.NewPostgresRepository(pool))

			t, err := svc.Disable(ctx, id)
			if err != nil {
				return fmt.Errorf("disable tenant: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Tenant disabled: %s (%s)\n", t.Slug, t.ID)
			return nil
		},
	}

	c.Flags().StringVar(&databaseURL, "database-url", "", "PostgreSQL connection string")
	c.Flags().StringVar(&tenantID, "tenant-id", "", "Tenant UUID")
	_ = c.MarkFlagRequired("database-url")
	_ = c.MarkFlagRequired("tenant-id")

	return c
}
