package main

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the vacancies and queries tables in PostgreSQL",
	Long:  "Applies the PostgreSQL schema. Safe to run repeatedly. SQLite stores create their tables on open.",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.StoreDriver != config.DriverPostgres {
		return fmt.Errorf("migrate needs STORE_DRIVER=%s, got %q", config.DriverPostgres, cfg.StoreDriver)
	}

	pool, err := db.NewPostgresPool(cmd.Context(), cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()

	if err := db.ApplyPostgresSchema(cmd.Context(), pool); err != nil {
		return err
	}
	log.Println("[ingest-service] Schema applied ✓")
	return nil
}
