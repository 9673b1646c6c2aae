// Package catalog serves archive tables from the local cache, downloading
// them when the cached copy is missing or older than the configured age.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/state"
	"github.com/lexo-astro/lexo/pkg/record"
)

// Store is the cache the catalog reads and refreshes.
type Store interface {
	SaveTable(ctx context.Context, table, source string, recs []record.Record) (state.Fetch, error)
	LoadTable(ctx context.Context, table string) ([]record.Record, *state.Fetch, error)
}

// Fetcher downloads tables from the archive.
type Fetcher interface {
	URL(table string) (string, error)
	Fetch(ctx context.Context, table string) ([]record.Record, error)
}

// ErrOffline is returned when a download is required but disabled.
var ErrOffline = errors.New("offline mode: table must be fetched first")

// Catalog loads tables.
type Catalog struct {
	Store  Store
	Client Fetcher
	// MaxAge is how long a cached copy is served before refetching. Zero
	// means cached copies never go stale.
	MaxAge time.Duration
	// Offline serves cached copies regardless of age and never downloads.
	Offline bool
	Now     func() time.Time
	Logger  *slog.Logger
}

func (c *Catalog) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Catalog) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

func (c *Catalog) fresh(f *state.Fetch) bool {
	return c.MaxAge <= 0 || f.Age(c.now()) <= c.MaxAge
}

// Load returns table from the cache when fresh, downloading and caching it
// otherwise. When the download fails and a stale copy exists, the stale
// copy is served and a warning logged.
func (c *Catalog) Load(ctx context.Context, table string) (*Table, error) {
	if !archive.ValidTable(table) {
		return nil, fmt.Errorf("%w: %q", archive.ErrInvalidTable, table)
	}
	log := c.logger().With("table", table)

	recs, f, err := c.Store.LoadTable(ctx, table)
	cached := err == nil
	if err != nil && !errors.Is(err, state.ErrNotCached) {
		return nil, fmt.Errorf("load cached %s: %w", table, err)
	}

	if cached && (c.Offline || c.fresh(f)) {
		log.Debug("serving cached table", "rows", len(recs), "fetched_at", f.FetchedAt)
		return NewTable(table, recs, f, !c.fresh(f)), nil
	}
	if c.Offline || c.Client == nil {
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrOffline, err)
		}
		return nil, fmt.Errorf("%w: %s", ErrOffline, table)
	}

	t, ferr := c.download(ctx, table)
	if ferr == nil {
		return t, nil
	}
	if cached && ctx.Err() == nil {
		log.Warn("fetch failed, serving stale cache", "error", ferr, "age", f.Age(c.now()).Round(time.Second))
		return NewTable(table, recs, f, true), nil
	}
	return nil, ferr
}

// Refresh downloads table and replaces its cached copy regardless of age.
func (c *Catalog) Refresh(ctx context.Context, table string) (*Table, error) {
	if !archive.ValidTable(table) {
		return nil, fmt.Errorf("%w: %q", archive.ErrInvalidTable, table)
	}
	if c.Offline || c.Client == nil {
		return nil, fmt.Errorf("%w: %s", ErrOffline, table)
	}
	return c.download(ctx, table)
}

func (c *Catalog) download(ctx context.Context, table string) (*Table, error) {
	log := c.logger().With("table", table)

	source, err := c.Client.URL(table)
	if err != nil {
		return nil, err
	}
	log.Info("downloading table")
	recs, err := c.Client.Fetch(ctx, table)
	if err != nil {
		return nil, err
	}

	f, err := c.Store.SaveTable(ctx, table, source, recs)
	if err != nil {
		// The download is still usable for this run.
		log.Warn("failed to cache table", "error", err)
		return NewTable(table, recs, &state.Fetch{Table: table, Source: source, Rows: len(recs), FetchedAt: c.now()}, false), nil
	}
	log.Info("cached table", "rows", f.Rows)
	return NewTable(table, recs, &f, false), nil
}
