package handlers

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"notedraft/internal/config"
	"notedraft/internal/persistence"
)

// NewMigrateCmd creates the migrate command for managing the database schema
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
		Long: `Apply or inspect database schema migrations.

Migrations are embedded in the binary and applied in version order inside
a transaction each. The pgvector and pg_trgm extensions are created by the
initial migration, so the configured database role must be allowed to
CREATE EXTENSION.`,
	}

	cmd.AddCommand(newMigrateUpCmd())
	cmd.AddCommand(newMigrateStatusCmd())

	return cmd
}

func newMigrateUpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationManager(cmd.Context(), func(ctx context.Context, mgr *persistence.MigrationManager) error {
				if err := mgr.Migrate(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Println("✅ Database schema is up to date")
				return nil
			})
		},
	}
}

func newMigrateStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the status of every known migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrationManager(cmd.Context(), func(ctx context.Context, mgr *persistence.MigrationManager) error {
				status, err := mgr.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to read migration status: %w", err)
				}

				fmt.Println("Version  Applied  Description")
				for _, s := range status {
					mark := "no"
					if s.Applied {
						mark = "yes"
					}
					fmt.Printf("%-8d %-8s %s\n", s.Version, mark, s.Description)
				}
				return nil
			})
		},
	}
}

// withMigrationManager opens the configured database and runs fn with a
// migration manager over it.
func withMigrationManager(ctx context.Context, fn func(context.Context, *persistence.MigrationManager) error) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Database.ConnectionString == "" {
		return fmt.Errorf("database connection string not configured (set DATABASE_URL or database.url)")
	}

	db, err := persistence.NewPostgresDB(cfg.Database.ConnectionString)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	return fn(ctx, persistence.NewMigrationManager(db))
}
