package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"jobmate/ingest-service/internal/model"
)

// PostgresStore persists vacancies and runs in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const pgVacancyValues = `$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11,
	NULLIF($12, ''), $13, $14, $15, $16, $17, $18, $19`

// FindByKey implements RecordStore.
func (s *PostgresStore) FindByKey(ctx context.Context, source, sourceID string) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM vacancies WHERE source = $1 AND source_id = $2`,
		source, sourceID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("findByKey query: %w", err)
	}
	return id, true, nil
}

// Insert implements RecordStore.
func (s *PostgresStore) Insert(ctx context.Context, v *model.Vacancy) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vacancies (`+vacancyColumns+`)
		 VALUES (`+pgVacancyValues+`)
		 RETURNING id`,
		vacancyArgs(v)...,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert vacancy: %w", err)
	}
	return id, nil
}

// UpdateByID implements RecordStore.
func (s *PostgresStore) UpdateByID(ctx context.Context, id int64, v *model.Vacancy) error {
	args := append(vacancyArgs(v), id)
	tag, err := s.pool.Exec(ctx,
		`UPDATE vacancies SET
		   source = $1, source_id = $2, name = $3, area = $4,
		   salary_from = $5, salary_to = $6, salary_currency = $7, status = $8,
		   address_city = $9, address_street = $10, address_metro = $11,
		   published_at = NULLIF($12, ''), url = $13, url_api = $14,
		   employer_id = $15, requirement = $16, responsibility = $17,
		   experience = $18, employment = $19
		 WHERE id = $20`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("update vacancy: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert implements Upserter with a single INSERT … ON CONFLICT statement.
// xmax is zero only for a row created by this statement.
func (s *PostgresStore) Upsert(ctx context.Context, v *model.Vacancy) (Outcome, error) {
	var inserted bool
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vacancies (`+vacancyColumns+`)
		 VALUES (`+pgVacancyValues+`)
		 ON CONFLICT (source, source_id) DO UPDATE SET
		   name            = EXCLUDED.name,
		   area            = EXCLUDED.area,
		   salary_from     = EXCLUDED.salary_from,
		   salary_to       = EXCLUDED.salary_to,
		   salary_currency = EXCLUDED.salary_currency,
		   status          = EXCLUDED.status,
		   address_city    = EXCLUDED.address_city,
		   address_street  = EXCLUDED.address_street,
		   address_metro   = EXCLUDED.address_metro,
		   published_at    = EXCLUDED.published_at,
		   url             = EXCLUDED.url,
		   url_api         = EXCLUDED.url_api,
		   employer_id     = EXCLUDED.employer_id,
		   requirement     = EXCLUDED.requirement,
		   responsibility  = EXCLUDED.responsibility,
		   experience      = EXCLUDED.experience,
		   employment      = EXCLUDED.employment
		 RETURNING id, (xmax = 0)`,
		vacancyArgs(v)...,
	).Scan(&v.ID, &inserted)
	if err != nil {
		return 0, fmt.Errorf("upsert vacancy: %w", err)
	}
	if inserted {
		return Inserted, nil
	}
	return Updated, nil
}

// Get returns the stored vacancy for (source, sourceID), or nil when absent.
func (s *PostgresStore) Get(ctx context.Context, source, sourceID string) (*model.Vacancy, error) {
	var v model.Vacancy
	err := s.pool.QueryRow(ctx,
		`SELECT id, `+vacancyColumnsPublishedText+`
		 FROM vacancies WHERE source = $1 AND source_id = $2`,
		source, sourceID,
	).Scan(scanTargets(&v)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vacancy: %w", err)
	}
	return &v, nil
}

// AppendRun implements RecordStore.
func (s *PostgresStore) AppendRun(ctx context.Context, run model.IngestionRun) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO queries (run_id, user_id, text, date_from, date_to, source, quantity, error, created_at)
		 VALUES ($1::text::uuid, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.RunID, run.UserID, run.Text, run.DateFrom, run.DateTo,
		run.Source, run.Quantity, run.Error, run.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}
