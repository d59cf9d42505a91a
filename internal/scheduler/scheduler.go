// Package scheduler wires up the cron job that periodically ingests every
// configured search query from every source.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/scraper"
)

// Runner executes one ingestion run; *scraper.Worker satisfies it.
type Runner interface {
	Run(ctx context.Context, f scraper.Fetcher, q scraper.Query) scraper.Result
}

// Scheduler wraps robfig/cron and manages the ingest loop.
type Scheduler struct {
	cron     *cron.Cron
	runner   Runner
	fetchers map[string]scraper.Fetcher
	queries  []config.SearchQuery
	spec     string // cron spec, e.g. "@every 6h"
	initial  sync.WaitGroup

	// OnResult, when set, is called after every run.
	OnResult func(scraper.Result)
}

// New creates a Scheduler that fires every intervalHours hours.
func New(runner Runner, fetchers []scraper.Fetcher, queries []config.SearchQuery, intervalHours int) *Scheduler {
	byName := make(map[string]scraper.Fetcher, len(fetchers))
	for _, f := range fetchers {
		byName[f.Source()] = f
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		runner:   runner,
		fetchers: byName,
		queries:  queries,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one cycle
// immediately so the store is populated without waiting for the first tick.
// A tick that fires while a cycle is still running is skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).
		Then(cron.FuncJob(func() { s.RunOnce(ctx) }))

	if _, err := s.cron.AddJob(s.spec, job); err != nil {
		return fmt.Errorf("cron.AddJob: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started, spec: %s", s.spec)

	s.initial.Add(1)
	go func() {
		defer s.initial.Done()
		job.Run()
	}()

	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.initial.Wait()
	log.Println("[scheduler] Cron stopped")
}

// RunOnce ingests every query from each of its sources, sequentially, and
// returns the results in execution order.
func (s *Scheduler) RunOnce(ctx context.Context) []scraper.Result {
	log.Printf("[scheduler] Ingest cycle started: %d queries", len(s.queries))

	var results []scraper.Result
	total := 0
	for _, q := range s.queries {
		for _, src := range s.sourcesFor(q) {
			if ctx.Err() != nil {
				log.Printf("[scheduler] Cycle interrupted: %v", ctx.Err())
				return results
			}

			f, ok := s.fetchers[src]
			if !ok {
				log.Printf("[scheduler] No fetcher for source %q, skipping", src)
				continue
			}

			res := s.runner.Run(ctx, f, scraper.Query{Text: q.Text, Area: q.Area, Period: q.Period})
			if res.Err != nil {
				log.Printf("[scheduler] %s %q failed: %v", src, q.Text, res.Err)
			} else {
				total += res.Quantity
			}
			if s.OnResult != nil {
				s.OnResult(res)
			}
			results = append(results, res)
		}
	}

	log.Printf("[scheduler] Ingest cycle complete: %d vacancies", total)
	return results
}

// sourcesFor returns q's sources, or every registered source when q names none.
func (s *Scheduler) sourcesFor(q config.SearchQuery) []string {
	if len(q.Sources) > 0 {
		return q.Sources
	}
	return AllSources
}

// AllSources is the order sources are ingested in when a query names none.
var AllSources = []string{model.SourceHH, model.SourceTrudvsem}
