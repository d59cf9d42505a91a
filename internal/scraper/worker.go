// Package scraper implements vacancy fetching, normalisation and ingestion.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"jobmate/ingest-service/internal/audit"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/store"
)

// Failed is the Result.Quantity of a run that did not complete.
const Failed = -1

var validate = validator.New()

// Query is one search request against a source.
type Query struct {
	Text string `validate:"required,max=50"`
	// Area is accepted for callers' convenience; neither source request uses it.
	Area string
	// Period is the lookback window in days.
	Period int `validate:"min=1,max=30"`
}

// Validate checks the query's field constraints.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	return nil
}

// Result summarises one ingestion run.
type Result struct {
	RunID    string
	Source   string
	Quantity int
	Pages    int
	Tally    store.Tally
	Err      error
}

// Worker runs ingestion for one source at a time: it fetches every page
// sequentially, upserts each vacancy and writes one audit row per run.
type Worker struct {
	records store.RecordStore
	audit   *audit.Logger

	// Now is the clock used for the audit date window. Defaults to time.Now.
	Now func() time.Time
}

// NewWorker constructs a Worker.
func NewWorker(records store.RecordStore, auditLog *audit.Logger) *Worker {
	return &Worker{records: records, audit: auditLog, Now: time.Now}
}

// Run executes one ingestion run. It always records exactly one audit row.
// On failure Result.Quantity is Failed and Result.Err explains why.
func (w *Worker) Run(ctx context.Context, f Fetcher, q Query) Result {
	res := Result{RunID: uuid.NewString(), Source: f.Source()}
	log := slog.With("runId", res.RunID, "source", res.Source, "text", q.Text)
	log.Info("ingestion started", "period", q.Period)

	saver := store.NewSaver(w.records)
	saved, err := w.ingest(ctx, f, q, saver, &res)
	res.Tally = saver.Tally()

	run := model.IngestionRun{
		RunID:    res.RunID,
		Text:     q.Text,
		Source:   res.Source,
		Quantity: saved,
	}
	run.DateFrom, run.DateTo = Window(w.Now(), q.Period)
	if err != nil {
		run.Error = err.Error()
	}

	// The audit row is written even when ctx was cancelled mid-run.
	if auditErr := w.audit.Record(context.WithoutCancel(ctx), run); auditErr != nil {
		err = errors.Join(err, auditErr)
	}

	if err != nil {
		res.Quantity = Failed
		res.Err = err
		log.Error("ingestion failed", "saved", saved, "err", err)
		return res
	}

	res.Quantity = saved
	log.Info("ingestion done", "pages", res.Pages, "saved", saved,
		"inserted", res.Tally.Inserted, "updated", res.Tally.Updated)
	return res
}

// ingest walks the pages. A page 0 failure aborts the run; later page
// failures are skipped.
func (w *Worker) ingest(ctx context.Context, f Fetcher, q Query, saver *store.Saver, res *Result) (int, error) {
	if err := q.Validate(); err != nil {
		return 0, err
	}

	first, err := f.FetchPage(ctx, q, 0)
	if err != nil {
		return 0, fmt.Errorf("%s: can't load data: %w", f.Source(), err)
	}
	res.Pages = first.Pages

	saved, err := saveAll(ctx, saver, first.Items)
	if err != nil {
		return saved, err
	}

	for page := 1; page < first.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return saved, fmt.Errorf("stopped before page %d: %w", page, err)
		}

		p, err := f.FetchPage(ctx, q, page)
		if err != nil {
			slog.Warn("page skipped", "source", f.Source(), "page", page, "err", err)
			continue
		}

		n, err := saveAll(ctx, saver, p.Items)
		saved += n
		if err != nil {
			return saved, err
		}
	}

	return saved, nil
}

func saveAll(ctx context.Context, saver *store.Saver, items []model.Vacancy) (int, error) {
	for i := range items {
		if _, err := saver.Save(ctx, &items[i]); err != nil {
			return i, err
		}
	}
	return len(items), nil
}

// Window returns the audited date range of a run: (today - period, today - 1),
// as UTC midnights.
func Window(now time.Time, period int) (from, to time.Time) {
	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -period), today.AddDate(0, 0, -1)
}
