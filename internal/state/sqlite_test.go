package state

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo-astro/lexo/internal/testutil"
	"github.com/lexo-astro/lexo/pkg/record"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := Open(context.Background(), ":memory:", testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleRecords() []record.Record {
	return []record.Record{
		{"pl_hostname": "HD 209458", "pl_letter": "b", "pl_pnum": json.Number("1")},
		{"pl_hostname": "WASP-12", "pl_letter": "b", "pl_orbper": json.Number("1.0914203")},
		{"pl_hostname": "Kepler-7", "pl_letter": "b", "pl_trandep": nil},
	}
}

func TestSQLiteStore_OpenMigrates(t *testing.T) {
	store := setupTestStore(t)

	version, err := store.MigrationVersion()
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)

	for _, table := range []string{"fetches", "records"} {
		rows, err := store.db.Query("SELECT 1 FROM " + table + " LIMIT 1")
		require.NoError(t, err, "table %s does not exist", table)
		rows.Close()
	}

	// Migrating twice is a no-op.
	require.NoError(t, store.Migrate())
}

func TestSQLiteStore_SaveLoad(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	fixed := time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC)
	store.Clock = func() time.Time { return fixed }

	f, err := store.SaveTable(ctx, "exoplanets", "http://archive.test", sampleRecords())
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, 3, f.Rows)
	assert.Equal(t, fixed, f.FetchedAt)

	recs, got, err := store.LoadTable(ctx, "exoplanets")
	require.NoError(t, err)
	assert.Equal(t, f, *got)
	require.Len(t, recs, 3)

	assert.Equal(t, "HD 209458", recs[0]["pl_hostname"])
	assert.Equal(t, "WASP-12", recs[1]["pl_hostname"])
	assert.Equal(t, "Kepler-7", recs[2]["pl_hostname"])
	assert.Equal(t, json.Number("1.0914203"), recs[1]["pl_orbper"], "numbers keep their text")
	v, present := recs[2]["pl_trandep"]
	assert.True(t, present, "null columns survive")
	assert.Nil(t, v)
}

func TestSQLiteStore_SaveReplaces(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first, err := store.SaveTable(ctx, "cumulative", "a", sampleRecords())
	require.NoError(t, err)
	second, err := store.SaveTable(ctx, "cumulative", "b", sampleRecords()[:1])
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	recs, f, err := store.LoadTable(ctx, "cumulative")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, "b", f.Source)

	var orphans int
	require.NoError(t, store.db.QueryRow("SELECT COUNT(*) FROM records WHERE fetch_id = ?", first.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestSQLiteStore_NotCached(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, _, err := store.LoadTable(ctx, "exoplanets")
	assert.ErrorIs(t, err, ErrNotCached)
	_, err = store.LatestFetch(ctx, "exoplanets")
	assert.ErrorIs(t, err, ErrNotCached)
}

func TestSQLiteStore_EmptyTable(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	_, err := store.SaveTable(ctx, "aliastable", "x", nil)
	require.NoError(t, err)
	recs, f, err := store.LoadTable(ctx, "aliastable")
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, f.Rows)
}

func TestSQLiteStore_ListAndDelete(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, table := range []string{"names", "exoplanets", "cumulative"} {
		_, err := store.SaveTable(ctx, table, "src", sampleRecords())
		require.NoError(t, err)
	}

	fetches, err := store.ListFetches(ctx)
	require.NoError(t, err)
	require.Len(t, fetches, 3)
	assert.Equal(t, "cumulative", fetches[0].Table)
	assert.Equal(t, "exoplanets", fetches[1].Table)
	assert.Equal(t, "names", fetches[2].Table)

	deleted, err := store.DeleteTable(ctx, "exoplanets")
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = store.DeleteTable(ctx, "exoplanets")
	require.NoError(t, err)
	assert.False(t, deleted)

	_, _, err = store.LoadTable(ctx, "exoplanets")
	assert.ErrorIs(t, err, ErrNotCached)
	fetches, err = store.ListFetches(ctx)
	require.NoError(t, err)
	assert.Len(t, fetches, 2)
}

func TestSQLiteStore_PersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	store, err := Open(ctx, path, nil)
	require.NoError(t, err)
	_, err = store.SaveTable(ctx, "exoplanets", "src", sampleRecords())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(ctx, path, nil)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, path, reopened.Path())

	recs, _, err := reopened.LoadTable(ctx, "exoplanets")
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestFetchAge(t *testing.T) {
	f := Fetch{FetchedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 48*time.Hour, f.Age(time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC)))
}

func TestSaveTableRollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("disk I/O error")
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM records").WithArgs("exoplanets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM fetches").WithArgs("exoplanets").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO fetches").WillReturnError(boom)
	mock.ExpectRollback()

	store := New(db, testutil.NewTestLogger(t))
	_, err = store.SaveTable(context.Background(), "exoplanets", "src", sampleRecords())
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failed to record exoplanets fetch")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLatestFetchQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("database is locked")
	mock.ExpectQuery("SELECT id, table_name, source, row_count, fetched_at FROM fetches").
		WithArgs("names").
		WillReturnError(boom)

	store := New(db, nil)
	_, _, err = store.LoadTable(context.Background(), "names")
	require.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotCached)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadTableBadTimestamp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM fetches").
		WithArgs("names").
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "source", "row_count", "fetched_at"}).
			AddRow("id-1", "names", "src", 1, "yesterday"))

	store := New(db, nil)
	_, err = store.LatestFetch(context.Background(), "names")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized timestamp")
}

func TestLoadTableCorruptRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM fetches").
		WithArgs("cumulative").
		WillReturnRows(sqlmock.NewRows([]string{"id", "table_name", "source", "row_count", "fetched_at"}).
			AddRow("id-1", "cumulative", "src", 2, "2024-01-01T00:00:00Z"))
	mock.ExpectQuery("SELECT body FROM records").
		WithArgs("id-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).
			AddRow(`{"kepoi_name":"K00002.01","kepid":10666592}`).
			AddRow(`{"kepoi_name":`))

	store := New(db, nil)
	_, _, err = store.LoadTable(context.Background(), "cumulative")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode cumulative record 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClosedStore(t *testing.T) {
	store := &SQLiteStore{}
	_, err := store.SaveTable(context.Background(), "names", "", nil)
	assert.ErrorIs(t, err, errNotOpen)
	assert.ErrorIs(t, store.Migrate(), errNotOpen)
	assert.NoError(t, store.Close())
}
