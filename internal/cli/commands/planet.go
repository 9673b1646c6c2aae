package commands

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/archive"
)

// NewPlanetCommand creates the planet command.
func NewPlanetCommand() *cobra.Command {
	var (
		table string
		opts  transitOptions
	)

	cmd := &cobra.Command{
		Use:   "planet <name...>",
		Short: "Show a planet, its host star and upcoming transits",
		Long: `Look up a planet by name and print its parameters, its host star and the
transits predicted for the coming year.

Names are matched fuzzily: case, punctuation and word order are ignored and
the closest planet is shown when no name matches exactly.

Output adapts to environment:
  - Terminal: Styled, colored output
  - Piped/Scripted: Markdown format (agent-friendly)

Use --output to override: auto, text, markdown, json, yaml`,
		Example: `  # Show a planet
  lexo planet HD 209458 b

  # Use the multi-parameter table
  lexo planet WASP-12 b --table multiexopars

  # List transits for the next 30 days, as JSON
  lexo planet "TRAPPIST-1 e" --days 30 -o json`,
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
			return renderPlanetReport(r, planetReport(r, query, tbl, p, score, req), opts.limit)
		},
	}

	cmd.Flags().StringVar(&table, "table", archive.TableExoplanets, "Table to search (exoplanets|multiexopars|cumulative)")
	_ = cmd.RegisterFlagCompletionFunc("table", completeTables(planetTables()))
	opts.register(cmd)
	return cmd
}
