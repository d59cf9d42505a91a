package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/scheduler"
	"jobmate/ingest-service/internal/scraper"
	"jobmate/ingest-service/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest one query from hh.ru and/or trudvsem.ru",
	Long:  "Runs one ingestion per selected source, sequentially, and prints how many vacancies were loaded, inserted and updated.",
	RunE:  runIngest,
}

var (
	runText   string
	runArea   string
	runPeriod int
	runSource string
)

func init() {
	runCmd.Flags().StringVarP(&runText, "text", "t", "python", "Free-text search query")
	runCmd.Flags().StringVarP(&runArea, "area", "a", "", "Area filter (accepted, not sent to either source)")
	runCmd.Flags().IntVarP(&runPeriod, "period", "p", 1, "Lookback period in days")
	runCmd.Flags().StringVarP(&runSource, "source", "s", "all", "Source to ingest: hh.ru, trudvsem or all")

	rootCmd.AddCommand(runCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	sources := scheduler.AllSources
	if runSource != "all" {
		sources = []string{runSource}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lock := flock.New(cfg.LockFile)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", cfg.LockFile, err)
	}
	if !locked {
		return fmt.Errorf("another ingest run holds %s", cfg.LockFile)
	}
	defer lock.Unlock()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	q := scraper.Query{Text: runText, Area: runArea, Period: runPeriod}
	results := make([]scraper.Result, 0, len(sources))
	for _, src := range sources {
		f := a.fetcher(src)
		if f == nil {
			return fmt.Errorf("unknown source %q", src)
		}
		results = append(results, a.worker.Run(ctx, f, q))
	}

	return report(cmd, results)
}

// report prints per-source and summed counts; it errors when any run failed.
func report(cmd *cobra.Command, results []scraper.Result) error {
	out := cmd.OutOrStdout()

	var (
		loaded int
		tally  store.Tally
		failed int
	)
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "%-9s failed: %v\n", r.Source, r.Err)
			continue
		}
		loaded += r.Quantity
		tally.Add(r.Tally)
		fmt.Fprintf(out, "%-9s loaded %d (inserted %d, updated %d) from %d page(s)\n",
			r.Source, r.Quantity, r.Tally.Inserted, r.Tally.Updated, r.Pages)
	}
	fmt.Fprintf(out, "Loaded: %d, inserted: %d, updated: %d\n", loaded, tally.Inserted, tally.Updated)

	if failed > 0 {
		return fmt.Errorf("%d of %d run(s) failed", failed, len(results))
	}
	return nil
}

