package commands

import (
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/internal/state"
)

// NewTablesCommand creates the tables command.
func NewTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "Show the cached archive tables",
		Long: `List the archive tables held in the local cache with their row counts and
download times. Tables older than --cache-ttl are marked stale and are
downloaded again on next use unless --offline is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			fetches, err := cmdCtx.Store.ListFetches(cmd.Context())
			if err != nil {
				return err
			}
			return renderTables(cmdCtx.Renderer, tableStatuses(fetches, cmdCtx.Cfg.CacheTTL, clock()))
		},
	}
}

func tableStatuses(fetches []state.Fetch, ttl time.Duration, now time.Time) []output.TableStatus {
	out := make([]output.TableStatus, len(fetches))
	for i, f := range fetches {
		out[i] = output.TableStatus{
			Table:     f.Table,
			Rows:      f.Rows,
			FetchedAt: f.FetchedAt.UTC(),
			Age:       humanize.RelTime(f.FetchedAt, now, "ago", "from now"),
			Stale:     ttl > 0 && f.Age(now) > ttl,
			Source:    f.Source,
		}
	}
	return out
}

func renderTables(r *output.Renderer, tables []output.TableStatus) error {
	if done, err := r.Structured(tables); done {
		return err
	}

	r.Header(1, "Cached tables")
	if len(tables) == 0 {
		r.Muted("No cached tables. Run 'lexo fetch' to download them.")
		return nil
	}

	rows := make([][]string, len(tables))
	for i, t := range tables {
		status := "fresh"
		if t.Stale {
			status = "stale"
		}
		rows[i] = []string{t.Table, humanize.Comma(int64(t.Rows)), t.FetchedAt.Format(time.DateTime), t.Age, status}
	}
	r.Table([]string{"table", "rows", "fetched (UTC)", "age", "status"}, rows)
	return nil
}
