package store

import "jobmate/ingest-service/internal/model"

// vacancyColumns lists every non-key column in the order of vacancyArgs.
const vacancyColumns = `source, source_id, name, area, salary_from, salary_to, salary_currency,
	status, address_city, address_street, address_metro, published_at, url, url_api,
	employer_id, requirement, responsibility, experience, employment`

// vacancyColumnsPublishedText is vacancyColumns with a NULL published_at read back as ''.
const vacancyColumnsPublishedText = `source, source_id, name, area, salary_from, salary_to, salary_currency,
	status, address_city, address_street, address_metro, COALESCE(published_at, ''),
	url, url_api, employer_id, requirement, responsibility, experience, employment`

func vacancyArgs(v *model.Vacancy) []any {
	return []any{
		v.Source, v.SourceID, v.Name, v.Area,
		v.SalaryFrom, v.SalaryTo, v.SalaryCurrency, v.Status,
		v.AddressCity, v.AddressStreet, v.AddressMetro,
		v.PublishedAt, v.URL, v.URLAPI,
		v.EmployerID, v.Requirement, v.Responsibility,
		v.Experience, v.Employment,
	}
}

// scanTargets matches "id, " + vacancyColumnsPublishedText.
func scanTargets(v *model.Vacancy) []any {
	return []any{
		&v.ID,
		&v.Source, &v.SourceID, &v.Name, &v.Area,
		&v.SalaryFrom, &v.SalaryTo, &v.SalaryCurrency, &v.Status,
		&v.AddressCity, &v.AddressStreet, &v.AddressMetro,
		&v.PublishedAt, &v.URL, &v.URLAPI,
		&v.EmployerID, &v.Requirement, &v.Responsibility,
		&v.Experience, &v.Employment,
	}
}
