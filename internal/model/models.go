// Package model defines shared data structures for the ingest service.
package model

import "time"

// Source tags stored in vacancies.source and queries.source.
const (
	SourceHH       = "hh.ru"
	SourceTrudvsem = "trudvsem"
)

// StatusUnknown is stored when a source has no employment-type classification.
const StatusUnknown = "?"

// Vacancy is a normalised listing. (Source, SourceID) is the business key;
// ID is the surrogate key assigned by the store on first insert.
type Vacancy struct {
	ID             int64   `json:"id,omitempty"`
	Source         string  `json:"source"`
	SourceID       string  `json:"sourceId"`
	Name           string  `json:"name"`
	Area           string  `json:"area"`
	SalaryFrom     *int64  `json:"salaryFrom"`
	SalaryTo       *int64  `json:"salaryTo"`
	SalaryCurrency *string `json:"salaryCurrency"`
	Status         string  `json:"status"`
	AddressCity    *string `json:"addressCity"`
	AddressStreet  *string `json:"addressStreet"`
	AddressMetro   *string `json:"addressMetro"`
	PublishedAt    string  `json:"publishedAt"`
	URL            string  `json:"url"`
	URLAPI         string  `json:"urlApi"`
	EmployerID     *string `json:"employerId"`
	Requirement    *string `json:"requirement"`
	Responsibility *string `json:"responsibility"`
	Experience     string  `json:"experience"`
	Employment     string  `json:"employment"`
}

// IngestionRun mirrors a queries row: one audit entry per job invocation.
type IngestionRun struct {
	RunID     string    `json:"runId"`
	UserID    int       `json:"userId"`
	Text      string    `json:"text"`
	DateFrom  time.Time `json:"dateFrom"`
	DateTo    time.Time `json:"dateTo"`
	Source    string    `json:"source"`
	Quantity  int       `json:"quantity"`
	Error     string    `json:"error"`
	CreatedAt time.Time `json:"createdAt"`
}

// Succeeded reports whether the run finished without an error.
func (r IngestionRun) Succeeded() bool { return r.Error == "" }
