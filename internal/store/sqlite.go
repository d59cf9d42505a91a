package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"jobmate/ingest-service/internal/model"
)

//go:embed schema_sqlite.sql
var sqliteSchema string

// SQLiteStore persists vacancies and runs in a local SQLite file. It expects
// a single-connection pool so that each upsert transaction is serialized.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the tables if needed and returns a store backed by db.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteVacancyValues = `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?`

const sqliteUpdate = `UPDATE vacancies SET
	source = ?, source_id = ?, name = ?, area = ?,
	salary_from = ?, salary_to = ?, salary_currency = ?, status = ?,
	address_city = ?, address_street = ?, address_metro = ?,
	published_at = NULLIF(?, ''), url = ?, url_api = ?,
	employer_id = ?, requirement = ?, responsibility = ?,
	experience = ?, employment = ?
	WHERE id = ?`

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FindByKey implements RecordStore.
func (s *SQLiteStore) FindByKey(ctx context.Context, source, sourceID string) (int64, bool, error) {
	return findByKey(ctx, s.db, source, sourceID)
}

// Insert implements RecordStore.
func (s *SQLiteStore) Insert(ctx context.Context, v *model.Vacancy) (int64, error) {
	return insert(ctx, s.db, v)
}

// UpdateByID implements RecordStore.
func (s *SQLiteStore) UpdateByID(ctx context.Context, id int64, v *model.Vacancy) error {
	return updateByID(ctx, s.db, id, v)
}

// Upsert implements Upserter: lookup and write share one transaction.
func (s *SQLiteStore) Upsert(ctx context.Context, v *model.Vacancy) (outcome Outcome, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	id, found, err := findByKey(ctx, tx, v.Source, v.SourceID)
	if err != nil {
		return 0, err
	}
	if found {
		if err = updateByID(ctx, tx, id, v); err != nil {
			return 0, err
		}
		v.ID = id
		outcome = Updated
	} else {
		if id, err = insert(ctx, tx, v); err != nil {
			return 0, err
		}
		v.ID = id
		outcome = Inserted
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return outcome, nil
}

// Get returns the stored vacancy for (source, sourceID), or nil when absent.
func (s *SQLiteStore) Get(ctx context.Context, source, sourceID string) (*model.Vacancy, error) {
	var v model.Vacancy
	err := s.db.QueryRowContext(ctx,
		`SELECT id, `+vacancyColumnsPublishedText+`
		 FROM vacancies WHERE source = ? AND source_id = ?`,
		source, sourceID,
	).Scan(scanTargets(&v)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vacancy: %w", err)
	}
	return &v, nil
}

// CountVacancies returns the number of stored rows for source.
func (s *SQLiteStore) CountVacancies(ctx context.Context, source string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vacancies WHERE source = ?`, source,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count vacancies: %w", err)
	}
	return n, nil
}

// AppendRun implements RecordStore.
func (s *SQLiteStore) AppendRun(ctx context.Context, run model.IngestionRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO queries (run_id, user_id, text, date_from, date_to, source, quantity, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.RunID, run.UserID, run.Text,
		run.DateFrom.Format(time.DateOnly), run.DateTo.Format(time.DateOnly),
		run.Source, run.Quantity, run.Error, run.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("append run: %w", err)
	}
	return nil
}

// Runs returns every audit row, oldest first.
func (s *SQLiteStore) Runs(ctx context.Context) ([]model.IngestionRun, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, user_id, text, date_from, date_to, source, quantity, error, created_at
		 FROM queries ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.IngestionRun
	for rows.Next() {
		var (
			r                         model.IngestionRun
			dateFrom, dateTo, created string
		)
		if err := rows.Scan(&r.RunID, &r.UserID, &r.Text, &dateFrom, &dateTo,
			&r.Source, &r.Quantity, &r.Error, &created); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.DateFrom, _ = time.Parse(time.DateOnly, dateFrom)
		r.DateTo, _ = time.Parse(time.DateOnly, dateTo)
		r.CreatedAt, _ = time.Parse(time.RFC3339, created)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

func findByKey(ctx context.Context, q queryer, source, sourceID string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		`SELECT id FROM vacancies WHERE source = ? AND source_id = ?`,
		source, sourceID,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("findByKey query: %w", err)
	}
	return id, true, nil
}

func insert(ctx context.Context, q queryer, v *model.Vacancy) (int64, error) {
	res, err := q.ExecContext(ctx,
		`INSERT INTO vacancies (`+vacancyColumns+`) VALUES (`+sqliteVacancyValues+`)`,
		vacancyArgs(v)...,
	)
	if err != nil {
		return 0, fmt.Errorf("insert vacancy: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert vacancy: %w", err)
	}
	return id, nil
}

func updateByID(ctx context.Context, q queryer, id int64, v *model.Vacancy) error {
	res, err := q.ExecContext(ctx, sqliteUpdate, append(vacancyArgs(v), id)...)
	if err != nil {
		return fmt.Errorf("update vacancy: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
