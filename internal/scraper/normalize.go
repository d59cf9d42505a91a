package scraper

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"jobmate/ingest-service/internal/model"
)

const (
	maxStreetLen   = 255
	maxCurrencyLen = 3
)

// NormalizeHH maps an hh.ru search item onto a Vacancy. Absent salary,
// address and employer objects yield nil fields.
func NormalizeHH(raw HHVacancy) model.Vacancy {
	v := model.Vacancy{
		Source:         model.SourceHH,
		SourceID:       raw.ID,
		Name:           raw.Name,
		Area:           raw.Area.Name,
		Status:         raw.Type.Name,
		PublishedAt:    raw.PublishedAt,
		URL:            raw.AlternateURL,
		URLAPI:         raw.URL,
		Requirement:    raw.Snippet.Requirement,
		Responsibility: raw.Snippet.Responsibility,
		Experience:     raw.Experience.Name,
		Employment:     raw.Employment.Name,
	}

	if s := raw.Salary; s != nil {
		v.SalaryFrom = s.From
		v.SalaryTo = s.To
		v.SalaryCurrency = s.Currency
	}

	if a := raw.Address; a != nil {
		v.AddressCity = a.City
		if a.Raw != nil {
			v.AddressStreet = ptr(truncate(*a.Raw, maxStreetLen))
		}
		if a.Metro != nil {
			v.AddressMetro = ptr(a.Metro.StationName)
		}
	}

	if raw.Employer != nil && raw.Employer.ID != nil {
		v.EmployerID = ptr(*raw.Employer.ID)
	}

	return v
}

// NormalizeTrudvsem maps an open-data vacancy onto a Vacancy. baseURL is the
// search endpoint the detail URL is derived from.
func NormalizeTrudvsem(raw TrudvsemVacancy, baseURL string) model.Vacancy {
	id := string(raw.ID)

	var companyCode string
	v := model.Vacancy{
		Source:         model.SourceTrudvsem,
		SourceID:       id,
		Name:           raw.JobName,
		Area:           trudvsemArea(raw.Region),
		SalaryFrom:     wholeNumber(raw.SalaryMin),
		SalaryTo:       wholeNumber(raw.SalaryMax),
		Status:         model.StatusUnknown,
		AddressStreet:  trudvsemStreet(raw.Addresses),
		PublishedAt:    raw.CreationDate,
		URL:            raw.VacURL,
		Responsibility: raw.Duty,
		Employment:     raw.Employment,
	}

	if raw.Currency != nil {
		v.SalaryCurrency = ptr(truncate(*raw.Currency, maxCurrencyLen))
	}

	if raw.Company != nil && raw.Company.CompanyCode != nil {
		companyCode = string(*raw.Company.CompanyCode)
		v.EmployerID = ptr(companyCode)
	}
	v.URLAPI = fmt.Sprintf("%s/vacancy/%s/%s", strings.TrimRight(baseURL, "/"), companyCode, id)

	var education, qualification string
	if r := raw.Requirement; r != nil {
		education = deref(r.Education)
		qualification = deref(r.Qualification)
		v.Experience = string(r.Experience)
	}
	v.Requirement = ptr(education + "/" + qualification)

	return v
}

func trudvsemArea(r *trudvsemRegion) string {
	switch {
	case r == nil:
		return ""
	case r.Name != nil:
		return *r.Name
	case r.RegionCode != nil:
		return string(*r.RegionCode)
	default:
		return ""
	}
}

// trudvsemStreet returns the first address location when addresses is an
// object. The list-shaped variant carries no usable street.
func trudvsemStreet(raw json.RawMessage) *string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil
	}

	var obj struct {
		Address []struct {
			Location *string `json:"location"`
		} `json:"address"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	if len(obj.Address) == 0 || obj.Address[0].Location == nil {
		return nil
	}
	return ptr(truncate(*obj.Address[0].Location, maxStreetLen))
}

// flexString accepts a JSON string or number. trudvsem is inconsistent about
// which one it sends for ids and experience.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(b)
	}
	return nil
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func wholeNumber(f *float64) *int64 {
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func ptr[T any](v T) *T { return &v }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
