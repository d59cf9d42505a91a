package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ingest-service/internal/db"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	ctx := context.Background()
	handle, err := db.OpenSQLite(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = handle.Close() })

	s, err := store.NewSQLiteStore(ctx, handle)
	require.NoError(t, err)
	return s
}

func ptr[T any](v T) *T { return &v }

func sampleVacancy(source, id string) model.Vacancy {
	return model.Vacancy{
		Source:         source,
		SourceID:       id,
		Name:           "Python developer",
		Area:           "Москва",
		SalaryFrom:     ptr(int64(150000)),
		SalaryTo:       ptr(int64(250000)),
		SalaryCurrency: ptr("RUR"),
		Status:         "Полная занятость",
		AddressCity:    ptr("Москва"),
		AddressStreet:  ptr("Тверская"),
		AddressMetro:   ptr("Пушкинская"),
		PublishedAt:    "2024-03-05T10:00:00+0300",
		URL:            "https://hh.ru/vacancy/" + id,
		URLAPI:         "https://api.hh.ru/vacancies/" + id,
		EmployerID:     ptr("1740"),
		Requirement:    ptr("Go, SQL"),
		Responsibility: ptr("Build services"),
		Experience:     "От 1 года до 3 лет",
		Employment:     "Полная занятость",
	}
}

// lookupOnly hides SQLiteStore's Upsert so Saver takes the find-then-write path.
type lookupOnly struct {
	store.RecordStore
}

func TestSQLiteStore_UpsertInsertsThenOverwrites(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	v := sampleVacancy(model.SourceHH, "42")
	outcome, err := s.Upsert(ctx, &v)
	require.NoError(t, err)
	assert.Equal(t, store.Inserted, outcome)
	firstID := v.ID
	require.NotZero(t, firstID)

	changed := sampleVacancy(model.SourceHH, "42")
	changed.Name = "Senior Python developer"
	changed.SalaryFrom = nil
	changed.AddressMetro = nil
	outcome, err = s.Upsert(ctx, &changed)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)
	assert.Equal(t, firstID, changed.ID)

	got, err := s.Get(ctx, model.SourceHH, "42")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, firstID, got.ID)
	assert.Equal(t, "Senior Python developer", got.Name)
	assert.Nil(t, got.SalaryFrom, "overwrite clears fields absent in the new record")
	assert.Nil(t, got.AddressMetro)
	assert.Equal(t, int64(250000), *got.SalaryTo)
	assert.Equal(t, "2024-03-05T10:00:00+0300", got.PublishedAt)

	n, err := s.CountVacancies(ctx, model.SourceHH)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_KeyIncludesSource(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	hh := sampleVacancy(model.SourceHH, "7")
	tv := sampleVacancy(model.SourceTrudvsem, "7")
	_, err := s.Upsert(ctx, &hh)
	require.NoError(t, err)
	outcome, err := s.Upsert(ctx, &tv)
	require.NoError(t, err)

	assert.Equal(t, store.Inserted, outcome)
	assert.NotEqual(t, hh.ID, tv.ID)
}

func TestSQLiteStore_EmptyPublishedAtStoredAsNull(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	v := sampleVacancy(model.SourceTrudvsem, "x")
	v.PublishedAt = ""
	_, err := s.Upsert(ctx, &v)
	require.NoError(t, err)

	got, err := s.Get(ctx, model.SourceTrudvsem, "x")
	require.NoError(t, err)
	assert.Equal(t, "", got.PublishedAt)
}

func TestSQLiteStore_PublishedAtStoredVerbatim(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	for i, raw := range []string{"2024-03-05T10:00:00+0300", "05.03.2024", "not a date"} {
		v := sampleVacancy(model.SourceTrudvsem, string(rune('a'+i)))
		v.PublishedAt = raw
		_, err := s.Upsert(ctx, &v)
		require.NoError(t, err)

		got, err := s.Get(ctx, model.SourceTrudvsem, v.SourceID)
		require.NoError(t, err)
		assert.Equal(t, raw, got.PublishedAt)
	}
}

func TestSQLiteStore_GetMissing(t *testing.T) {
	got, err := newSQLiteStore(t).Get(context.Background(), model.SourceHH, "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteStore_UpdateByIDMissing(t *testing.T) {
	v := sampleVacancy(model.SourceHH, "1")
	err := newSQLiteStore(t).UpdateByID(context.Background(), 999, &v)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestSaver_LookupPath(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	saver := store.NewSaver(lookupOnly{s})

	first := sampleVacancy(model.SourceHH, "1")
	second := sampleVacancy(model.SourceHH, "2")
	again := sampleVacancy(model.SourceHH, "1")
	again.Name = "changed"

	for _, v := range []*model.Vacancy{&first, &second, &again} {
		_, err := saver.Save(ctx, v)
		require.NoError(t, err)
	}

	assert.Equal(t, store.Tally{Inserted: 2, Updated: 1}, saver.Tally())
	assert.Equal(t, 3, saver.Tally().Total())
	assert.Equal(t, first.ID, again.ID)

	got, err := s.Get(ctx, model.SourceHH, "1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Name)
}

func TestSaver_UsesUpserter(t *testing.T) {
	ctx := context.Background()
	saver := store.NewSaver(newSQLiteStore(t))

	v := sampleVacancy(model.SourceHH, "1")
	outcome, err := saver.Save(ctx, &v)
	require.NoError(t, err)
	assert.Equal(t, store.Inserted, outcome)

	v2 := sampleVacancy(model.SourceHH, "1")
	outcome, err = saver.Save(ctx, &v2)
	require.NoError(t, err)
	assert.Equal(t, store.Updated, outcome)
	assert.Equal(t, "updated", outcome.String())
}

func TestSaver_WrapsErrorWithKey(t *testing.T) {
	saver := store.NewSaver(failingStore{})
	v := sampleVacancy(model.SourceTrudvsem, "abc")

	_, err := saver.Save(context.Background(), &v)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "trudvsem/abc")
	assert.Equal(t, store.Tally{}, saver.Tally())
}

type failingStore struct{}

func (failingStore) FindByKey(context.Context, string, string) (int64, bool, error) {
	return 0, false, errors.New("db down")
}
func (failingStore) Insert(context.Context, *model.Vacancy) (int64, error) { return 0, nil }
func (failingStore) UpdateByID(context.Context, int64, *model.Vacancy) error {
	return nil
}
func (failingStore) AppendRun(context.Context, model.IngestionRun) error { return nil }

func TestSQLiteStore_AppendRunAndRuns(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	created := time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC)
	want := []model.IngestionRun{
		{
			RunID: "a", Text: "python", Source: model.SourceHH, Quantity: 2,
			DateFrom: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			CreatedAt: created,
		},
		{
			RunID: "b", Text: "python", Source: model.SourceTrudvsem, Quantity: 0,
			DateFrom: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			DateTo:   time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
			Error:     "trudvsem: can't load data: status 500",
			CreatedAt: created,
		},
	}
	for _, r := range want {
		require.NoError(t, s.AppendRun(ctx, r))
	}

	got, err := s.Runs(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.True(t, got[0].Succeeded())
	assert.False(t, got[1].Succeeded())
}

func TestTally_Add(t *testing.T) {
	total := store.Tally{Inserted: 1}
	total.Add(store.Tally{Inserted: 2, Updated: 3})
	assert.Equal(t, store.Tally{Inserted: 3, Updated: 3}, total)
}
