// Package state caches raw catalog tables in a local SQLite database.
//
// Each cached table is the rows of its most recent fetch, stored as JSON
// text in their original order, plus one fetch row describing where and
// when they were downloaded.
package state

import (
	"errors"
	"time"
)

// ErrNotCached is returned when a table has never been saved.
var ErrNotCached = errors.New("table not cached")

var errNotOpen = errors.New("database not opened")

// Fetch describes one cached download of a table.
type Fetch struct {
	ID        string    `json:"id" yaml:"id"`
	Table     string    `json:"table" yaml:"table"`
	Source    string    `json:"source" yaml:"source"`
	Rows      int       `json:"rows" yaml:"rows"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Age returns how long ago the fetch happened relative to now.
func (f Fetch) Age(now time.Time) time.Duration {
	return now.Sub(f.FetchedAt)
}
