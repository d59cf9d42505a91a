// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing or malformed, Load errors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Store drivers accepted in STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var validate = validator.New()

// Config holds all runtime configuration for the ingest service.
type Config struct {
	Port                string `validate:"required,numeric"`
	GRPCPort            string `validate:"required,numeric"`
	StoreDriver         string `validate:"oneof=postgres sqlite"`
	DatabaseURL         string `validate:"required_if=StoreDriver postgres"`
	SQLitePath          string `validate:"required_if=StoreDriver sqlite"`
	RedisURL            string // optional; enables run events
	HHBaseURL           string `validate:"omitempty,url"`
	TrudvsemBaseURL     string `validate:"omitempty,url"`
	HHUserAgent         string
	FetchRPS            float64       `validate:"gt=0"`
	FetchTimeout        time.Duration `validate:"gt=0"`
	ScrapeIntervalHours int           `validate:"min=1"`
	QueriesFile         string        // optional YAML; see LoadQueries
	LockFile            string        `validate:"required"`
}

// Load reads environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getenv("INGEST_PORT", "8083"),
		GRPCPort:        getenv("INGEST_GRPC_PORT", "9083"),
		StoreDriver:     getenv("STORE_DRIVER", DriverPostgres),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SQLitePath:      getenv("SQLITE_PATH", "vacancies.db"),
		RedisURL:        os.Getenv("REDIS_URL"),
		HHBaseURL:       os.Getenv("HH_BASE_URL"),
		TrudvsemBaseURL: os.Getenv("TRUDVSEM_BASE_URL"),
		HHUserAgent:     getenv("HH_USER_AGENT", "jobmate-ingest/1.0"),
		QueriesFile:     os.Getenv("QUERIES_FILE"),
		LockFile:        getenv("LOCK_FILE", filepath.Join(os.TempDir(), "jobmate-ingest.lock")),
	}

	var err error
	if cfg.FetchRPS, err = floatEnv("FETCH_RPS", 2); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = durationEnv("FETCH_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.ScrapeIntervalHours = 6
	if s := os.Getenv("SCRAPE_INTERVAL_HOURS"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 1 {
			return nil, fmt.Errorf("SCRAPE_INTERVAL_HOURS must be a positive integer, got %q", s)
		}
		cfg.ScrapeIntervalHours = v
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func floatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, s)
	}
	return v, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s must be a duration such as 15s, got %q", key, s)
	}
	return v, nil
}
