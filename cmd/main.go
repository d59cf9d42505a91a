// jobmate-ingest-service
//
// Loads vacancies from hh.ru and trudvsem.ru into PostgreSQL (or SQLite for
// local work), upserting by (source, source_id) and writing one audit row to
// the queries table per run.
//
//	ingest run --text python --period 1     one-shot ingestion
//	ingest serve                            cron loop + health endpoints
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

const version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:          "ingest",
	Short:        "Vacancy ingestion service",
	Long:         "Fetches vacancies from hh.ru and trudvsem.ru, normalises them and upserts them into the vacancies table.",
	Version:      version,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
