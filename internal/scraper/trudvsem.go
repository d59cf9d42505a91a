package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/ingest-service/internal/model"
)

// DefaultTrudvsemBaseURL is the trudvsem.ru open-data vacancy endpoint.
const DefaultTrudvsemBaseURL = "http://opendata.trudvsem.ru/api/v1/vacancies"

// TrudvsemFetcher pages through the trudvsem.ru open-data API.
type TrudvsemFetcher struct {
	baseURL string
	http    httpGetter

	// Now is the clock used to compute modifiedFrom. Defaults to time.Now.
	Now func() time.Time
}

// NewTrudvsemFetcher constructs a fetcher for trudvsem.ru.
func NewTrudvsemFetcher(opts FetcherOptions) *TrudvsemFetcher {
	base := opts.BaseURL
	if base == "" {
		base = DefaultTrudvsemBaseURL
	}
	return &TrudvsemFetcher{
		baseURL: strings.TrimRight(base, "/"),
		http:    newHTTPGetter(model.SourceTrudvsem, opts),
		Now:     time.Now,
	}
}

// Source implements Fetcher.
func (f *TrudvsemFetcher) Source() string { return model.SourceTrudvsem }

// trudvsemResponse mirrors the open-data envelope. Results is nil when the
// API answers with an error document instead of a result set.
type trudvsemResponse struct {
	Results *struct {
		Vacancies []struct {
			Vacancy json.RawMessage `json:"vacancy"`
		} `json:"vacancies"`
	} `json:"results"`
	Meta struct {
		Total int `json:"total"`
	} `json:"meta"`
}

// TrudvsemVacancy mirrors a single open-data vacancy object.
type TrudvsemVacancy struct {
	ID           flexString           `json:"id"`
	JobName      string               `json:"job-name"`
	Region       *trudvsemRegion      `json:"region"`
	SalaryMin    *float64             `json:"salary_min"`
	SalaryMax    *float64             `json:"salary_max"`
	Currency     *string              `json:"currency"`
	Addresses    json.RawMessage      `json:"addresses"`
	CreationDate string               `json:"creation-date"`
	VacURL       string               `json:"vac_url"`
	Company      *trudvsemCompany     `json:"company"`
	Requirement  *trudvsemRequirement `json:"requirement"`
	Duty         *string              `json:"duty"`
	Employment   string               `json:"employment"`
}

type trudvsemRegion struct {
	Name       *string     `json:"name"`
	RegionCode *flexString `json:"region_code"`
}

type trudvsemCompany struct {
	CompanyCode *flexString `json:"companycode"`
	Name        string      `json:"name"`
}

type trudvsemRequirement struct {
	Education     *string    `json:"education"`
	Qualification *string    `json:"qualification"`
	Experience    flexString `json:"experience"`
}

var errNoResults = errors.New("response has no results")

// FetchPage loads one page of vacancies modified since the start of the
// query's period. The API counts offset in pages, not records.
func (f *TrudvsemFetcher) FetchPage(ctx context.Context, q Query, page int) (Page, error) {
	params := url.Values{}
	params.Set("text", q.Text)
	params.Set("offset", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(pageSize))
	params.Set("modifiedFrom", modifiedFrom(f.Now(), q.Period))

	var resp trudvsemResponse
	if err := f.http.getJSON(ctx, page, f.baseURL+"?"+params.Encode(), &resp); err != nil {
		return Page{}, err
	}
	if resp.Results == nil {
		return Page{}, &FetchError{Source: f.Source(), Page: page, Cause: errNoResults}
	}

	raws := make([]json.RawMessage, 0, len(resp.Results.Vacancies))
	for _, item := range resp.Results.Vacancies {
		raws = append(raws, item.Vacancy)
	}
	items := decodeItems(model.SourceTrudvsem, page, raws, func(raw TrudvsemVacancy) model.Vacancy {
		return NormalizeTrudvsem(raw, f.baseURL)
	})
	return Page{Items: items, Pages: pageCount(resp.Meta.Total, pageSize)}, nil
}

// modifiedFrom renders midnight UTC of (today - period) as ISO-8601.
func modifiedFrom(now time.Time, period int) string {
	from, _ := Window(now, period)
	return from.Format("2006-01-02") + "T00:00:00Z"
}

func pageCount(total, limit int) int {
	if total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
