package main

import (
	"context"
	"fmt"
	"log"

	"jobmate/ingest-service/internal/audit"
	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/scraper"
	"jobmate/ingest-service/internal/store"
)

// app holds the wired dependencies shared by every command.
type app struct {
	cfg      *config.Config
	worker   *scraper.Worker
	fetchers []scraper.Fetcher
	closers  []func()
}

// newApp connects the record store and, when configured, Redis.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	records, err := a.openStore(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	var pub audit.Publisher
	if cfg.RedisURL != "" {
		log.Println("[ingest-service] Connecting to Redis…")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		pub = audit.NewRedisPublisher(rdb)
		log.Println("[ingest-service] Redis connected ✓")
	}

	a.worker = scraper.NewWorker(records, audit.NewLogger(records, pub))

	hhOpts := scraper.FetcherOptions{
		BaseURL:   cfg.HHBaseURL,
		UserAgent: cfg.HHUserAgent,
		Timeout:   cfg.FetchTimeout,
		RPS:       cfg.FetchRPS,
	}
	tvOpts := hhOpts
	tvOpts.BaseURL = cfg.TrudvsemBaseURL
	a.fetchers = []scraper.Fetcher{
		scraper.NewHHFetcher(hhOpts),
		scraper.NewTrudvsemFetcher(tvOpts),
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) (store.RecordStore, error) {
	switch a.cfg.StoreDriver {
	case config.DriverSQLite:
		log.Printf("[ingest-service] Opening SQLite %s…", a.cfg.SQLitePath)
		handle, err := db.OpenSQLite(ctx, a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		a.closers = append(a.closers, func() { _ = handle.Close() })
		return store.NewSQLiteStore(ctx, handle)

	default:
		log.Println("[ingest-service] Connecting to PostgreSQL…")
		pool, err := db.NewPostgresPool(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Println("[ingest-service] PostgreSQL connected ✓")
		return store.NewPostgresStore(pool), nil
	}
}

// fetcher returns the fetcher for source, or nil.
func (a *app) fetcher(source string) scraper.Fetcher {
	for _, f := range a.fetchers {
		if f.Source() == source {
			return f
		}
	}
	return nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
