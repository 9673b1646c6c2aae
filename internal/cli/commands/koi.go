package commands

import (
	"strings"

	"github.com/spf13/cobra"
)

// NewKOICommand creates the koi command.
func NewKOICommand() *cobra.Command {
	var opts transitOptions

	cmd := &cobra.Command{
		Use:   "koi <kepoi_name|kepler_name>",
		Short: "Show a Kepler Object of Interest",
		Long: `Look up a Kepler Object of Interest in the cumulative KOI table by its KOI
designation (K00002.01) or its Kepler planet name (Kepler-2 b).

Unlike planet, the lookup is exact: case, punctuation and word order are
ignored but the name must otherwise match.`,
		Example: `  lexo koi K00002.01
  lexo koi Kepler-2 b --days 60`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			tbl, rec, err := lookupKOI(cmd.Context(), cmdCtx, query)
			if err != nil {
				return err
			}
			p, err := normalize(tbl, rec)
			if err != nil {
				return err
			}
			r := cmdCtx.Renderer
			warnStale(r, tbl)
			return renderPlanetReport(r, planetReport(r, query, tbl, p, 100, req), opts.limit)
		},
	}

	opts.register(cmd)
	return cmd
}
