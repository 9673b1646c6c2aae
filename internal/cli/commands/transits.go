package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/cli/output"
)

// NewTransitsCommand creates the transits command.
func NewTransitsCommand() *cobra.Command {
	var (
		table string
		opts  transitOptions
	)

	cmd := &cobra.Command{
		Use:   "transits <name...>",
		Short: "Predict upcoming transits of a planet",
		Long: `Predict the transits of a planet inside a time window.

Each transit is printed as a one-sigma window: earliest, likeliest and latest
midpoint in UTC. The window opens --start days after the reference instant
(--at, default now) and spans the number of whole orbital periods that fit
in --days.`,
		Example: `  lexo transits WASP-12 b
  lexo transits K00002.01 --table cumulative --days 30
  lexo transits "HD 209458 b" --at 2025-01-01 --start 7 --limit 0 -o json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := planetTable(table); err != nil {
				return err
			}
			req, err := opts.request()
			if err != nil {
				return err
			}

			cmdCtx, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			query := strings.Join(args, " ")
			tbl, p, score, err := lookupPlanet(cmd.Context(), cmdCtx.Catalog, table, query)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			warnStale(r, tbl)

			out, err := predict(p, req)
			if err != nil {
				return err
			}
			return renderTransitList(r, out, score, opts.limit)
		},
	}

	cmd.Flags().StringVar(&table, "table", archive.TableExoplanets, "Table to search (exoplanets|multiexopars|cumulative)")
	_ = cmd.RegisterFlagCompletionFunc("table", completeTables(planetTables()))
	opts.register(cmd)
	return cmd
}

func renderTransitList(r *output.Renderer, out output.TransitOutput, score, limit int) error {
	if done, err := r.Structured(out); done {
		return err
	}
	if score < exactScore {
		r.Muted(fmt.Sprintf("No exact match. Showing closest match: %s", out.Planet))
		r.Println()
	}
	r.Header(1, out.Planet)
	renderTransits(r, out, limit)
	return nil
}
