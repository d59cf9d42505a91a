package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"jobmate/ingest-service/internal/model"
)

const (
	pageSize           = 50
	defaultHTTPTimeout = 15 * time.Second
	defaultRPS         = 2
)

// Page is one decoded page of a source's search results.
// Pages is the total page count reported by the source.
type Page struct {
	Items []model.Vacancy
	Pages int
}

// Fetcher retrieves one page of search results from a vacancy source.
type Fetcher interface {
	Source() string
	FetchPage(ctx context.Context, q Query, page int) (Page, error)
}

// FetcherOptions configures the HTTP side of a Fetcher.
// Zero values fall back to the package defaults.
type FetcherOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	RPS       float64
}

// FetchError is returned when a page could not be loaded or decoded.
type FetchError struct {
	Source     string
	Page       int
	StatusCode int
	Cause      error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s page %d: status %d: %v", e.Source, e.Page, e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("%s page %d: %v", e.Source, e.Page, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

// httpGetter is the transport shared by both source fetchers.
type httpGetter struct {
	source    string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func newHTTPGetter(source string, opts FetcherOptions) httpGetter {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = defaultRPS
	}
	return httpGetter{
		source:    source,
		userAgent: opts.UserAgent,
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// getJSON issues one GET and decodes a 2xx JSON body into out.
func (g httpGetter) getJSON(ctx context.Context, page int, reqURL string, out any) error {
	fail := func(status int, err error) error {
		return &FetchError{Source: g.source, Page: page, StatusCode: status, Cause: err}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return fail(0, fmt.Errorf("rate limiter: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if g.userAgent != "" {
		req.Header.Set("User-Agent", g.userAgent)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fail(0, fmt.Errorf("http GET: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fail(resp.StatusCode, fmt.Errorf("unexpected response: %s", truncate(string(body), 200)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("json unmarshal: %w", err))
	}
	return nil
}

// decodeItems decodes and normalizes each raw item on its own. An item that
// does not fit its source's shape is logged and skipped.
func decodeItems[T any](source string, page int, raws []json.RawMessage, normalize func(T) model.Vacancy) []model.Vacancy {
	items := make([]model.Vacancy, 0, len(raws))
	for i, raw := range raws {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			slog.Warn("item skipped", "source", source, "page", page, "index", i, "err", err)
			continue
		}
		items = append(items, normalize(item))
	}
	return items
}
