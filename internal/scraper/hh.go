package scraper

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
	"strings"

	"jobmate/ingest-service/internal/model"
)

// DefaultHHBaseURL is the hh.ru vacancy search endpoint.
const DefaultHHBaseURL = "https://api.hh.ru/vacancies"

// HHFetcher pages through the hh.ru vacancy search.
type HHFetcher struct {
	baseURL string
	http    httpGetter
}

// NewHHFetcher constructs a fetcher for hh.ru.
func NewHHFetcher(opts FetcherOptions) *HHFetcher {
	base := opts.BaseURL
	if base == "" {
		base = DefaultHHBaseURL
	}
	return &HHFetcher{
		baseURL: strings.TrimRight(base, "/"),
		http:    newHTTPGetter(model.SourceHH, opts),
	}
}

// Source implements Fetcher.
func (f *HHFetcher) Source() string { return model.SourceHH }

// hhResponse mirrors the hh.ru search envelope.
type hhResponse struct {
	Items []json.RawMessage `json:"items"`
	Pages int               `json:"pages"`
}

// HHVacancy mirrors a single hh.ru search item.
type HHVacancy struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Area         hhNamed     `json:"area"`
	Salary       *hhSalary   `json:"salary"`
	Type         hhNamed     `json:"type"`
	Address      *hhAddress  `json:"address"`
	PublishedAt  string      `json:"published_at"`
	AlternateURL string      `json:"alternate_url"`
	URL          string      `json:"url"`
	Employer     *hhEmployer `json:"employer"`
	Snippet      hhSnippet   `json:"snippet"`
	Experience   hhNamed     `json:"experience"`
	Employment   hhNamed     `json:"employment"`
}

type hhNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type hhSalary struct {
	From     *int64  `json:"from"`
	To       *int64  `json:"to"`
	Currency *string `json:"currency"`
}

type hhAddress struct {
	City  *string  `json:"city"`
	Raw   *string  `json:"raw"`
	Metro *hhMetro `json:"metro"`
}

type hhMetro struct {
	StationName string `json:"station_name"`
}

type hhEmployer struct {
	ID   *string `json:"id"`
	Name string  `json:"name"`
}

type hhSnippet struct {
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
}

// FetchPage loads one page of up to 50 vacancies published within the
// query's period.
func (f *HHFetcher) FetchPage(ctx context.Context, q Query, page int) (Page, error) {
	params := url.Values{}
	params.Set("per_page", strconv.Itoa(pageSize))
	params.Set("page", strconv.Itoa(page))
	params.Set("period", strconv.Itoa(q.Period))
	params.Set("text", q.Text)

	var resp hhResponse
	if err := f.http.getJSON(ctx, page, f.baseURL+"?"+params.Encode(), &resp); err != nil {
		return Page{}, err
	}

	items := decodeItems(model.SourceHH, page, resp.Items, NormalizeHH)
	return Page{Items: items, Pages: resp.Pages}, nil
}
