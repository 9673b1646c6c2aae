package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/lexo-astro/lexo/pkg/record"
)

// SQLiteStore is the table cache.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	logger *slog.Logger

	// Clock stamps new fetches. Defaults to time.Now.
	Clock func() time.Time
}

// Open opens (or creates) the cache at path and applies pending migrations.
// Use ":memory:" for an in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// One connection: SQLite has a single writer and ":memory:" databases
	// are per connection.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}
	if path != ":memory:" {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	s := New(db, logger)
	s.path = path
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already open, migrated database.
func New(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SQLiteStore{db: db, logger: logger}
}

// Path returns the database path given to Open.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) now() time.Time {
	if s.Clock != nil {
		return s.Clock().UTC()
	}
	return time.Now().UTC()
}

// generateID creates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// SaveTable replaces the cached copy of table with recs in one transaction.
func (s *SQLiteStore) SaveTable(ctx context.Context, table, source string, recs []record.Record) (Fetch, error) {
	if s.db == nil {
		return Fetch{}, errNotOpen
	}

	bodies := make([]string, len(recs))
	for i, rec := range recs {
		data, err := json.Marshal(rec)
		if err != nil {
			return Fetch{}, fmt.Errorf("failed to encode %s row %d: %w", table, i, err)
		}
		bodies[i] = string(data)
	}

	f := Fetch{
		ID:        generateID(),
		Table:     table,
		Source:    source,
		Rows:      len(recs),
		FetchedAt: s.now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Fetch{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE fetch_id IN (SELECT id FROM fetches WHERE table_name = ?)", table); err != nil {
		return Fetch{}, fmt.Errorf("failed to clear %s records: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM fetches WHERE table_name = ?", table); err != nil {
		return Fetch{}, fmt.Errorf("failed to clear %s fetch: %w", table, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO fetches (id, table_name, source, row_count, fetched_at) VALUES (?, ?, ?, ?, ?)",
		f.ID, f.Table, f.Source, f.Rows, f.FetchedAt.Format(time.RFC3339Nano)); err != nil {
		return Fetch{}, fmt.Errorf("failed to record %s fetch: %w", table, err)
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO records (fetch_id, ordinal, body) VALUES (?, ?, ?)")
	if err != nil {
		return Fetch{}, fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, body := range bodies {
		if _, err := stmt.ExecContext(ctx, f.ID, i, body); err != nil {
			return Fetch{}, fmt.Errorf("failed to insert %s row %d: %w", table, i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Fetch{}, fmt.Errorf("failed to commit %s: %w", table, err)
	}
	s.logger.Debug("cached table", "table", table, "rows", f.Rows, "fetch_id", f.ID)
	return f, nil
}

// LatestFetch returns the fetch backing the cached copy of table.
func (s *SQLiteStore) LatestFetch(ctx context.Context, table string) (*Fetch, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	row := s.db.QueryRowContext(ctx,
		"SELECT id, table_name, source, row_count, fetched_at FROM fetches WHERE table_name = ?", table)
	f, err := scanFetch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotCached, table)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s fetch: %w", table, err)
	}
	return f, nil
}

// LoadTable returns the cached rows of table in their original order.
func (s *SQLiteStore) LoadTable(ctx context.Context, table string) ([]record.Record, *Fetch, error) {
	f, err := s.LatestFetch(ctx, table)
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx, "SELECT body FROM records WHERE fetch_id = ? ORDER BY ordinal", f.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query %s records: %w", table, err)
	}
	defer rows.Close()

	recs := make([]record.Record, 0, f.Rows)
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, nil, fmt.Errorf("failed to scan %s record: %w", table, err)
		}
		rec, err := record.Decode([]byte(body))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode %s record %d: %w", table, len(recs), err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to iterate %s records: %w", table, err)
	}
	return recs, f, nil
}

// ListFetches returns the fetch of every cached table, ordered by table name.
func (s *SQLiteStore) ListFetches(ctx context.Context) ([]Fetch, error) {
	if s.db == nil {
		return nil, errNotOpen
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, table_name, source, row_count, fetched_at FROM fetches ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("failed to list fetches: %w", err)
	}
	defer rows.Close()

	var out []Fetch
	for rows.Next() {
		f, err := scanFetch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

// DeleteTable drops the cached copy of table. It reports whether anything
// was removed.
func (s *SQLiteStore) DeleteTable(ctx context.Context, table string) (bool, error) {
	if s.db == nil {
		return false, errNotOpen
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM records WHERE fetch_id IN (SELECT id FROM fetches WHERE table_name = ?)", table); err != nil {
		return false, fmt.Errorf("failed to delete %s records: %w", table, err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM fetches WHERE table_name = ?", table)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s fetch: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to count deleted fetches: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit delete of %s: %w", table, err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFetch(sc scanner) (*Fetch, error) {
	var (
		f         Fetch
		fetchedAt string
	)
	if err := sc.Scan(&f.ID, &f.Table, &f.Source, &f.Rows, &fetchedAt); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return nil, fmt.Errorf("unrecognized timestamp %q: %w", fetchedAt, err)
	}
	f.FetchedAt = t
	return &f, nil
}
