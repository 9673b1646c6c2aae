package commands

import (
	"fmt"
	"math"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/catalog"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/pkg/body"
	"github.com/lexo-astro/lexo/pkg/record"
)

// FindOptions holds options for the find command.
type FindOptions struct {
	Eq    string
	Min   float64
	Max   float64
	Limit int
}

// NewFindCommand creates the find command.
func NewFindCommand() *cobra.Command {
	opts := &FindOptions{}

	cmd := &cobra.Command{
		Use:   "find <table> <param>",
		Short: "List the rows of a table matching a column value",
		Long: `List the rows of an archive table whose column equals a value (--eq) or
lies in a numeric range (--min/--max, inclusive).

Rows of planet tables are shown as normalized planets; rows that cannot be
normalized are reported and skipped. Other tables print their raw columns.`,
		Example: `  # Planets with exactly three siblings
  lexo find exoplanets pl_pnum --eq 3

  # KOIs with periods between 1 and 2 days
  lexo find cumulative koi_period --min 1 --max 2`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFind(cmd, args[0], args[1], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Eq, "eq", "", "Match rows whose value equals this")
	cmd.Flags().Float64Var(&opts.Min, "min", math.Inf(-1), "Match rows whose value is at least this")
	cmd.Flags().Float64Var(&opts.Max, "max", math.Inf(1), "Match rows whose value is at most this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Rows listed in text and markdown output (0 lists all)")
	cmd.MarkFlagsMutuallyExclusive("eq", "min")
	cmd.MarkFlagsMutuallyExclusive("eq", "max")
	cmd.MarkFlagsOneRequired("eq", "min", "max")
	cmd.ValidArgsFunction = func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
		if len(args) == 0 {
			return archive.Tables(), cobra.ShellCompDirectiveNoFileComp
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return cmd
}

func runFind(cmd *cobra.Command, table, param string, opts *FindOptions) error {
	if !archive.ValidTable(table) {
		return fmt.Errorf("%w: %q", archive.ErrInvalidTable, table)
	}
	if opts.Min > opts.Max {
		return fmt.Errorf("--min %g is greater than --max %g", opts.Min, opts.Max)
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	tbl, err := cmdCtx.Catalog.Load(cmd.Context(), table)
	if err != nil {
		return err
	}
	r := cmdCtx.Renderer
	warnStale(r, tbl)

	var recs []record.Record
	if cmd.Flags().Changed("eq") {
		recs = tbl.Find(param, opts.Eq)
	} else {
		recs = tbl.FindInRange(param, opts.Min, opts.Max)
	}

	out := output.FindOutput{Table: tbl.Name, Param: param, Matches: len(recs)}
	if _, ok := tbl.Family(); ok {
		matched := catalog.NewTable(tbl.Name, recs, tbl.Fetch, tbl.Stale)
		results, err := matched.Planets(cmd.Context(), cmdCtx.Cfg.Workers)
		if err != nil {
			return err
		}
		out.Planets = body.Planets(results)
		for _, res := range results {
			if res.Err != nil {
				out.Errors = append(out.Errors, output.RecordError{Index: res.Index, Error: res.Err.Error()})
			}
		}
	} else {
		out.Records = recs
	}
	return renderFind(r, out, opts.Limit)
}

func renderFind(r *output.Renderer, out output.FindOutput, limit int) error {
	for _, e := range out.Errors {
		r.Warning(fmt.Sprintf("skipped row %d: %s", e.Index, e.Error))
	}
	if done, err := r.Structured(out); done {
		return err
	}

	r.Header(1, fmt.Sprintf("%s: %d rows match %s", out.Table, out.Matches, out.Param))
	if out.Matches == 0 {
		r.Muted("No matching rows")
		return nil
	}

	var header []string
	var rows [][]string
	if out.Records != nil {
		header, rows = recordRows(out.Records)
	} else {
		header = []string{"name", "period (d)", "radius (R_Jup)", "mass (M_Jup)", "depth (ppm)", "host"}
		for _, p := range out.Planets {
			rows = append(rows, []string{
				p.Name,
				formatValue(p.PeriodDays),
				formatValue(p.RadiusJupiter),
				formatValue(p.MassJupiter),
				formatValue(p.TransitDepthPPM),
				p.Star.Name,
			})
		}
	}

	total := len(rows)
	if limit > 0 && total > limit {
		rows = rows[:limit]
	}
	r.Table(header, rows)
	if rest := total - len(rows); rest > 0 {
		r.Muted(fmt.Sprintf("+ %d more rows", rest))
	}
	return nil
}

// recordRows lays raw records out under the sorted union of their columns.
func recordRows(recs []record.Record) ([]string, [][]string) {
	seen := map[string]bool{}
	var header []string
	for _, rec := range recs {
		for _, k := range rec.Keys() {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}
	sort.Strings(header)

	rows := make([][]string, len(recs))
	for i, rec := range recs {
		row := make([]string, len(header))
		for j, k := range header {
			if rec.Has(k) {
				row[j] = fmt.Sprint(rec.Get(k))
			}
		}
		rows[i] = row
	}
	return header, rows
}
