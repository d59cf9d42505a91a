package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ingest-service/internal/config"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/scraper"
)

type call struct {
	source string
	text   string
	period int
}

type fakeRunner struct {
	mu    sync.Mutex
	calls []call
	fail  map[string]bool
}

func (r *fakeRunner) Run(_ context.Context, f scraper.Fetcher, q scraper.Query) scraper.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{f.Source(), q.Text, q.Period})
	if r.fail[f.Source()] {
		return scraper.Result{Source: f.Source(), Quantity: scraper.Failed, Err: errors.New("upstream down")}
	}
	return scraper.Result{Source: f.Source(), Quantity: 3}
}

type stubFetcher string

func (s stubFetcher) Source() string { return string(s) }

func (s stubFetcher) FetchPage(context.Context, scraper.Query, int) (scraper.Page, error) {
	return scraper.Page{}, nil
}

var bothFetchers = []scraper.Fetcher{stubFetcher(model.SourceHH), stubFetcher(model.SourceTrudvsem)}

func TestNew_CronInterval(t *testing.T) {
	s := New(&fakeRunner{}, bothFetchers, nil, 6)
	assert.Equal(t, "@every 6h", s.spec)
}

func TestRunOnce_DefaultsToEverySource(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, bothFetchers, []config.SearchQuery{
		{Text: "python", Period: 1},
		{Text: "golang", Period: 3, Sources: []string{model.SourceTrudvsem}},
	}, 6)

	results := s.RunOnce(context.Background())

	assert.Equal(t, []call{
		{model.SourceHH, "python", 1},
		{model.SourceTrudvsem, "python", 1},
		{model.SourceTrudvsem, "golang", 3},
	}, runner.calls)
	assert.Len(t, results, 3)
}

func TestRunOnce_FailureDoesNotStopCycle(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{model.SourceHH: true}}
	s := New(runner, bothFetchers, config.DefaultQueries(), 6)

	var reported []scraper.Result
	s.OnResult = func(r scraper.Result) { reported = append(reported, r) }

	results := s.RunOnce(context.Background())

	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
	assert.Equal(t, results, reported)
}

func TestRunOnce_SkipsUnknownSource(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, []scraper.Fetcher{stubFetcher(model.SourceHH)}, config.DefaultQueries(), 6)

	results := s.RunOnce(context.Background())

	require.Len(t, results, 1)
	assert.Equal(t, model.SourceHH, results[0].Source)
}

func TestRunOnce_CancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, bothFetchers, config.DefaultQueries(), 6)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, s.RunOnce(ctx))
	assert.Empty(t, runner.calls)
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{}
	s := New(runner, bothFetchers, config.DefaultQueries(), 24)

	done := make(chan struct{})
	var once sync.Once
	s.OnResult = func(scraper.Result) { once.Do(func() { close(done) }) }

	require.NoError(t, s.Start(context.Background()))
	<-done
	s.Stop()

	runner.mu.Lock()
	defer runner.mu.Unlock()
	assert.NotEmpty(t, runner.calls, "Start runs one cycle immediately")
}
