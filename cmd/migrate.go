package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/config"
	"github.com/agileresearchservices/chat-in-a-box-sub001/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply document store migrations",
	Long: `Apply the embedded SQL migrations to the configured PostgreSQL
database. Creates the pgvector extension and the docs table. Safe to
run repeatedly; already-applied migrations are skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.PostgresHost == "" {
		return fmt.Errorf("postgres_host is not configured")
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	if err := database.Migrate(cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}
