package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/grpcserver"
	"jobmate/ingest-service/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scheduled ingestion with HTTP and gRPC health endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	queries, err := config.LoadQueries(cfg.QueriesFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── Stores / Redis ──────────────────────────────────────────────────────
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	// ── Health ──────────────────────────────────────────────────────────────
	grpcSrv := grpcserver.NewServer(scheduler.AllSources...)
	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	httpSrv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// ── Scheduler ───────────────────────────────────────────────────────────
	sched := scheduler.New(a.worker, a.fetchers, queries, cfg.ScrapeIntervalHours)
	sched.OnResult = grpcSrv.ReportRun

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Printf("[ingest-service] v%s HTTP listening on :%s", version, cfg.Port)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Printf("[ingest-service] gRPC health listening on :%s", cfg.GRPCPort)
		return grpcSrv.Serve(grpcLis)
	})

	g.Go(func() error {
		if err := sched.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	// ── Graceful shutdown ───────────────────────────────────────────────────
	g.Go(func() error {
		<-gctx.Done()
		log.Println("[ingest-service] Shutting down…")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[ingest-service] HTTP shutdown error: %v", err)
		}
		grpcSrv.Stop()
		return nil
	})

	err = g.Wait()
	log.Println("[ingest-service] Stopped.")
	return err
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "ok",
		"service": "ingest-service",
		"version": version,
	})
}
