package audit_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ingest-service/internal/audit"
	"jobmate/ingest-service/internal/model"
)

type fakeAppender struct {
	runs []model.IngestionRun
	err  error
}

func (f *fakeAppender) AppendRun(_ context.Context, run model.IngestionRun) error {
	if f.err != nil {
		return f.err
	}
	f.runs = append(f.runs, run)
	return nil
}

type fakePublisher struct {
	channel string
	payload []byte
	err     error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, payload []byte) error {
	f.channel = channel
	f.payload = payload
	return f.err
}

var fixedNow = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func newLogger(runs audit.Appender, pub audit.Publisher) *audit.Logger {
	l := audit.NewLogger(runs, pub)
	l.Now = func() time.Time { return fixedNow }
	return l
}

func TestRecord_StampsCreatedAtAndPublishes(t *testing.T) {
	runs := &fakeAppender{}
	pub := &fakePublisher{}

	err := newLogger(runs, pub).Record(context.Background(), model.IngestionRun{
		RunID: "r1", Text: "python", Source: model.SourceHH, Quantity: 2,
	})
	require.NoError(t, err)

	require.Len(t, runs.runs, 1)
	assert.Equal(t, fixedNow, runs.runs[0].CreatedAt)

	assert.Equal(t, audit.EventIngestRun, pub.channel)
	var event map[string]any
	require.NoError(t, json.Unmarshal(pub.payload, &event))
	assert.Equal(t, audit.EventIngestRun, event["type"])
	assert.Equal(t, "r1", event["runId"])
	assert.Equal(t, float64(2), event["quantity"])
}

func TestRecord_KeepsCallerCreatedAt(t *testing.T) {
	runs := &fakeAppender{}
	created := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, newLogger(runs, nil).Record(context.Background(), model.IngestionRun{CreatedAt: created}))
	assert.Equal(t, created, runs.runs[0].CreatedAt)
}

func TestRecord_TruncatesError(t *testing.T) {
	runs := &fakeAppender{}
	long := strings.Repeat("ошибка ", 100)

	require.NoError(t, newLogger(runs, nil).Record(context.Background(), model.IngestionRun{Error: long}))

	got := runs.runs[0].Error
	assert.Equal(t, 255, len([]rune(got)))
	assert.True(t, strings.HasPrefix(long, got))
}

func TestRecord_PublishFailureIsNotFatal(t *testing.T) {
	runs := &fakeAppender{}
	pub := &fakePublisher{err: errors.New("redis: connection refused")}

	err := newLogger(runs, pub).Record(context.Background(), model.IngestionRun{RunID: "r2"})

	assert.NoError(t, err)
	assert.Len(t, runs.runs, 1)
}

func TestRecord_AppendFailureIsReturned(t *testing.T) {
	runs := &fakeAppender{err: errors.New("table missing")}
	pub := &fakePublisher{}

	err := newLogger(runs, pub).Record(context.Background(), model.IngestionRun{RunID: "r3"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "r3")
	assert.ErrorIs(t, err, runs.err)
	assert.Empty(t, pub.channel, "nothing is published for an unrecorded run")
}

func TestRecord_TruncatesText(t *testing.T) {
	runs := &fakeAppender{}
	text := strings.Repeat("п", 51)

	require.NoError(t, newLogger(runs, nil).Record(context.Background(), model.IngestionRun{Text: text}))

	assert.Equal(t, 50, len([]rune(runs.runs[0].Text)))
}
