// Package store persists normalised vacancies and ingestion audit rows.
package store

import (
	"context"
	"errors"
	"fmt"

	"jobmate/ingest-service/internal/model"
)

// ErrNotFound is returned when an update targets a vacancy id that does not exist.
var ErrNotFound = errors.New("vacancy not found")

// Outcome reports what a save did to the stored row.
type Outcome int

const (
	Inserted Outcome = iota + 1
	Updated
)

func (o Outcome) String() string {
	switch o {
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	}
	return "unknown"
}

// RecordStore is the persistence contract the ingestion pipeline relies on.
type RecordStore interface {
	// FindByKey returns the surrogate id of the row for (source, sourceID).
	FindByKey(ctx context.Context, source, sourceID string) (id int64, found bool, err error)
	Insert(ctx context.Context, v *model.Vacancy) (int64, error)
	// UpdateByID overwrites every column of row id with v.
	UpdateByID(ctx context.Context, id int64, v *model.Vacancy) error
	AppendRun(ctx context.Context, run model.IngestionRun) error
}

// Upserter is implemented by stores that resolve insert-or-update in a
// single atomic step. Upsert sets v.ID.
type Upserter interface {
	Upsert(ctx context.Context, v *model.Vacancy) (Outcome, error)
}

// Tally counts save outcomes for one job invocation.
type Tally struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// Total is the number of vacancies saved.
func (t Tally) Total() int { return t.Inserted + t.Updated }

// Add accumulates other into t.
func (t *Tally) Add(other Tally) {
	t.Inserted += other.Inserted
	t.Updated += other.Updated
}

func (t *Tally) count(o Outcome) {
	switch o {
	case Inserted:
		t.Inserted++
	case Updated:
		t.Updated++
	}
}

// Saver upserts vacancies keyed by (source, source_id) and tallies the
// outcomes. A Saver belongs to a single invocation and is not safe for
// concurrent use.
type Saver struct {
	records RecordStore
	tally   Tally
}

// NewSaver returns a Saver writing to records.
func NewSaver(records RecordStore) *Saver {
	return &Saver{records: records}
}

// Save inserts v when no row exists for its key, otherwise overwrites the
// existing row in place. v.ID is set to the stored row's id.
func (s *Saver) Save(ctx context.Context, v *model.Vacancy) (Outcome, error) {
	outcome, err := s.save(ctx, v)
	if err != nil {
		return 0, fmt.Errorf("save %s/%s: %w", v.Source, v.SourceID, err)
	}
	s.tally.count(outcome)
	return outcome, nil
}

func (s *Saver) save(ctx context.Context, v *model.Vacancy) (Outcome, error) {
	if u, ok := s.records.(Upserter); ok {
		return u.Upsert(ctx, v)
	}

	id, found, err := s.records.FindByKey(ctx, v.Source, v.SourceID)
	if err != nil {
		return 0, err
	}
	if !found {
		id, err := s.records.Insert(ctx, v)
		if err != nil {
			return 0, err
		}
		v.ID = id
		return Inserted, nil
	}

	v.ID = id
	if err := s.records.UpdateByID(ctx, id, v); err != nil {
		return 0, err
	}
	return Updated, nil
}

// Tally returns the outcomes counted so far.
func (s *Saver) Tally() Tally { return s.tally }
