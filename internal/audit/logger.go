// Package audit records one queries row per ingestion run and announces it
// to subscribers.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/ingest-service/internal/model"
)

// EventIngestRun is the Redis channel a finished run is published on.
const EventIngestRun = "EVENT_INGEST_RUN"

// Column widths of the queries table.
const (
	maxTextLen  = 50
	maxErrorLen = 255
)

// Appender persists audit rows.
type Appender interface {
	AppendRun(ctx context.Context, run model.IngestionRun) error
}

// Publisher fans out run events.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// Logger appends audit rows and publishes them.
type Logger struct {
	runs Appender
	pub  Publisher

	// Now stamps CreatedAt when the caller left it zero. Defaults to time.Now.
	Now func() time.Time
}

// NewLogger returns a Logger. pub may be nil.
func NewLogger(runs Appender, pub Publisher) *Logger {
	return &Logger{runs: runs, pub: pub, Now: time.Now}
}

// Record appends run. A failed append is returned to the caller; a failed
// publish is only logged.
func (l *Logger) Record(ctx context.Context, run model.IngestionRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = l.Now()
	}
	run.Text = truncate(run.Text, maxTextLen)
	run.Error = truncate(run.Error, maxErrorLen)

	if err := l.runs.AppendRun(ctx, run); err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}

	if l.pub == nil {
		return nil
	}
	event, err := json.Marshal(struct {
		Type string `json:"type"`
		model.IngestionRun
	}{Type: EventIngestRun, IngestionRun: run})
	if err != nil {
		slog.Warn("marshal run event failed", "runId", run.RunID, "err", err)
		return nil
	}
	if err := l.pub.Publish(ctx, EventIngestRun, event); err != nil {
		slog.Warn("publish "+EventIngestRun+" failed", "runId", run.RunID, "err", err)
	}
	return nil
}

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	rdb *redis.Client
}

// NewRedisPublisher wraps rdb.
func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.rdb.Publish(ctx, channel, payload).Err()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
