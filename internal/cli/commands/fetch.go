package commands

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/cli/output"
)

// defaultFetchTables are refreshed by a bare "lexo fetch". The alias table
// is queried per object and is not cached wholesale.
var defaultFetchTables = []string{
	archive.TableExoplanets,
	archive.TableMultiExoPars,
	archive.TableCumulative,
	archive.TableNames,
}

// NewFetchCommand creates the fetch command.
func NewFetchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch [table...]",
		Short: "Download archive tables into the local cache",
		Long: `Download archive tables and replace their cached copies, regardless of age.

Without arguments every lookup table is refreshed. Tables are downloaded
concurrently, up to --workers at a time; one failed download does not stop
the others.`,
		Example: `  lexo fetch
  lexo fetch exoplanets cumulative`,
		ValidArgs: archive.Tables(),
		RunE: func(cmd *cobra.Command, args []string) error {
			tables := args
			if len(tables) == 0 {
				tables = defaultFetchTables
			}
			for _, t := range tables {
				if !archive.ValidTable(t) {
					return fmt.Errorf("%w: %q", archive.ErrInvalidTable, t)
				}
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			results := make([]output.FetchResult, len(tables))
			g, gctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(cmdCtx.Cfg.Workers)
			for i, table := range tables {
				g.Go(func() error {
					results[i].Table = table
					tbl, err := cmdCtx.Catalog.Refresh(gctx, table)
					if err != nil {
						cmdCtx.Logger.Debug("fetch failed", "table", table, "error", err)
						results[i].Error = err.Error()
						return nil
					}
					results[i].Rows = tbl.Len()
					return nil
				})
			}
			_ = g.Wait()

			return renderFetchResults(cmdCtx.Renderer, results)
		},
	}
	return cmd
}

func renderFetchResults(r *output.Renderer, results []output.FetchResult) error {
	failed := 0
	for _, res := range results {
		if res.Error != "" {
			failed++
		}
	}

	if done, err := r.Structured(results); done {
		if err != nil {
			return err
		}
	} else {
		for _, res := range results {
			if res.Error != "" {
				r.StatusLine(res.Table, "error", res.Error)
				continue
			}
			r.StatusLine(res.Table, "success", fmt.Sprintf("(%s rows)", humanize.Comma(int64(res.Rows))))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d tables failed to download", failed, len(results))
	}
	return nil
}
