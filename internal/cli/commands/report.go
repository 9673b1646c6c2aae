package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/catalog"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/pkg/body"
	"github.com/lexo-astro/lexo/pkg/julian"
	"github.com/lexo-astro/lexo/pkg/measure"
	"github.com/lexo-astro/lexo/pkg/record"
	"github.com/lexo-astro/lexo/pkg/schema"
	"github.com/lexo-astro/lexo/pkg/transit"
)

// exactScore is the lowest fuzzy score reported as an exact match.
const exactScore = 99

const noData = "no data"

// transitOptions are the flags shared by the commands that predict transits.
type transitOptions struct {
	days  float64
	start float64
	limit int
	at    string
}

func (o *transitOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&o.days, "days", 365, "Prediction horizon in days")
	f.Float64Var(&o.start, "start", 0, "Open the prediction window this many days after the reference instant")
	f.IntVar(&o.limit, "limit", 10, "Transits listed in text and markdown output (0 lists all)")
	f.StringVar(&o.at, "at", "", "Reference instant: YYYY-MM-DD, RFC 3339 or a Julian date (default now)")
}

func (o transitOptions) request() (transit.Request, error) {
	now, err := parseInstant(o.at)
	if err != nil {
		return transit.Request{}, err
	}
	return transit.Request{NowJD: now, HorizonDays: o.days, StartOffsetDays: o.start}, nil
}

// parseInstant reads a Julian date or a calendar time in UTC. Empty means now.
func parseInstant(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return julian.Now(clock), nil
	}
	if jd, err := strconv.ParseFloat(s, 64); err == nil {
		return jd, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return julian.FromTime(t), nil
		}
	}
	return 0, fmt.Errorf("invalid instant %q: want YYYY-MM-DD, RFC 3339 or a Julian date", s)
}

// planetTable checks that table holds planet rows.
func planetTable(table string) error {
	if !archive.ValidTable(table) {
		return fmt.Errorf("%w: %q", archive.ErrInvalidTable, table)
	}
	if _, ok := schema.FamilyForTable(table); !ok {
		return fmt.Errorf("table %q has no planet rows (want one of %s)", table, strings.Join(planetTables(), ", "))
	}
	return nil
}

func planetTables() []string {
	out := make([]string, 0, 3)
	for _, f := range schema.Families() {
		out = append(out, f.Table())
	}
	return out
}

func completeTables(tables []string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return tables, cobra.ShellCompDirectiveNoFileComp
	}
}

// normalize builds the planet of rec using the family of its table.
func normalize(tbl *catalog.Table, rec record.Record) (body.Planet, error) {
	if f, ok := tbl.Family(); ok {
		return body.NormalizeAs(rec, f)
	}
	return body.Normalize(rec)
}

// lookupPlanet fuzzy-matches name among the rows of table.
func lookupPlanet(ctx context.Context, cat *catalog.Catalog, table, name string) (*catalog.Table, body.Planet, int, error) {
	tbl, err := cat.Load(ctx, table)
	if err != nil {
		return nil, body.Planet{}, 0, err
	}
	rec, score, err := tbl.FuzzyMatch(name)
	if err != nil {
		return nil, body.Planet{}, 0, err
	}
	p, err := normalize(tbl, rec)
	if err != nil {
		return nil, body.Planet{}, 0, err
	}
	return tbl, p, score, nil
}

// lookupKOI finds the exact KOI row for a KOI designation or Kepler name.
// The names table is consulted when the designation is not in the
// cumulative table itself.
func lookupKOI(ctx context.Context, cmdCtx *CommandContext, name string) (*catalog.Table, record.Record, error) {
	tbl, err := cmdCtx.Catalog.Load(ctx, archive.TableCumulative)
	if err != nil {
		return nil, nil, err
	}
	name = strings.TrimSpace(name)
	if recs := tbl.Find("kepoi_name", name); len(recs) > 0 {
		return tbl, recs[0], nil
	}

	names, err := cmdCtx.Catalog.Load(ctx, archive.TableNames)
	if err != nil {
		cmdCtx.Logger.Debug("names table unavailable", "error", err)
	} else if koi, err := catalog.ResolveKOI(names, name); err == nil {
		if recs := tbl.Find("kepoi_name", koi); len(recs) > 0 {
			return tbl, recs[0], nil
		}
	}

	if rec, err := tbl.Lookup(name); err == nil {
		return tbl, rec, nil
	}
	err = fmt.Errorf("%w: planet %q not found in %s", catalog.ErrNoMatch, name, tbl.Name)
	if hint := tbl.Suggest(name, 3); len(hint) > 0 {
		err = fmt.Errorf("%w (did you mean %s?)", err, strings.Join(hint, ", "))
	}
	return nil, nil, err
}

// predict runs the predictor and shapes its result for rendering.
func predict(p body.Planet, req transit.Request) (output.TransitOutput, error) {
	out := output.TransitOutput{
		Planet:      p.Name,
		StartJD:     req.Start(),
		HorizonDays: req.HorizonDays,
		Windows:     []output.TransitWindow{},
	}
	s, err := transit.Predict(p, req)
	if err != nil {
		return out, fmt.Errorf("%s: %w", p.Name, err)
	}
	out.Known = s.Known
	out.Total = s.Len()
	for i, w := range s.Windows() {
		out.Windows = append(out.Windows, output.TransitWindow{
			Number:      s.FirstN + i,
			EarliestJD:  w.Earliest,
			LikeliestJD: w.Likeliest,
			LatestJD:    w.Latest,
			Earliest:    julian.Format(w.Earliest),
			Likeliest:   julian.Format(w.Likeliest),
			Latest:      julian.Format(w.Latest),
		})
	}
	return out, nil
}

// planetReport assembles a lookup result. A prediction failure, such as an
// invalid period or an oversized window, is reported as a warning and leaves
// the transit section empty.
func planetReport(r *output.Renderer, query string, tbl *catalog.Table, p body.Planet, score int, req transit.Request) output.PlanetOutput {
	transits, err := predict(p, req)
	if err != nil {
		r.Warning(err.Error())
	}
	return output.PlanetOutput{
		Query:    query,
		Table:    tbl.Name,
		Score:    score,
		Stale:    tbl.Stale,
		Planet:   p,
		Transits: transits,
	}
}

func warnStale(r *output.Renderer, tbl *catalog.Table) {
	if !tbl.Stale || tbl.Fetch == nil {
		return
	}
	r.Warning(fmt.Sprintf("cached %s table is from %s; run 'lexo fetch %s' to refresh",
		tbl.Name, tbl.Fetch.FetchedAt.UTC().Format(time.DateOnly), tbl.Name))
}

// renderPlanetReport writes the planet, star and transit sections.
func renderPlanetReport(r *output.Renderer, rep output.PlanetOutput, limit int) error {
	if done, err := r.Structured(rep); done {
		return err
	}
	if rep.Score < exactScore {
		r.Muted("No exact match. Showing closest match.")
		r.Println()
	}

	p := rep.Planet
	s := p.Star
	r.Header(1, p.Name)

	r.Header(2, "Planet")
	if p.AltName != "" {
		r.KeyValue("Also known as", p.AltName)
	}
	r.KeyValue("Radius (R_Jup)", formatValue(p.RadiusJupiter))
	r.KeyValue("Mass (M_Jup)", formatValue(p.MassJupiter))
	r.KeyValue("Orbital period (d)", formatValue(p.PeriodDays))
	r.KeyValue("Semi-major axis (AU)", formatValue(p.SemimajorAxisAU))
	r.KeyValue("Eccentricity", formatValue(p.Eccentricity))
	r.KeyValue("Transit midpoint (JD)", formatValue(p.TransitMidJD))
	r.KeyValue("Transit duration (d)", formatValue(p.TransitDurationDays))
	r.KeyValue("Transit depth (ppm)", formatValue(p.TransitDepthPPM))
	r.KeyValue("TTV", formatFlag(p.HasTTV))
	r.KeyValue("Catalog", rep.Table)
	r.Println()

	r.Header(2, "Star")
	r.KeyValue("Name", s.Name)
	r.KeyValue("Radius (R_Sun)", formatValue(s.Radius))
	r.KeyValue("Mass (M_Sun)", formatValue(s.Mass))
	r.KeyValue("Temperature (K)", formatValue(s.EffectiveTemperature))
	r.KeyValue("Age (Gyr)", formatValue(s.Age))
	r.KeyValue("Luminosity (L_Sun)", formatValue(s.Luminosity))
	r.KeyValue("Metallicity (dex)", formatValue(s.Metallicity))
	r.KeyValue("Planets", formatValue(s.PlanetCount))
	r.KeyValue("Distance (pc)", formatValue(s.DistancePC))
	r.KeyValue("U mag", formatValue(s.UMag))
	r.KeyValue("B mag", formatValue(s.BMag))
	r.KeyValue("V mag", formatValue(s.VMag))
	r.Println()

	renderTransits(r, rep.Transits, limit)
	return nil
}

// renderTransits writes the transit table, truncated to limit rows.
func renderTransits(r *output.Renderer, t output.TransitOutput, limit int) {
	r.Header(2, "Upcoming transits (UTC)")
	if !t.Known || t.Total == 0 {
		r.Muted("No transit data")
		return
	}

	shown := t.Windows
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	rows := make([][]string, len(shown))
	for i, w := range shown {
		rows[i] = []string{w.Earliest, w.Likeliest, w.Latest}
	}
	r.Table([]string{"earliest", "likeliest", "latest"}, rows)

	if rest := t.Total - len(shown); rest > 0 {
		r.Muted(fmt.Sprintf("+ %d more transits in the next %s days", rest, strconv.FormatFloat(t.HorizonDays, 'f', -1, 64)))
	}
}

// formatValue renders a Value in fixed notation, dropping a zero
// uncertainty.
func formatValue(v measure.Value) string {
	m, ok := v.Get()
	if !ok {
		return noData
	}
	s := strconv.FormatFloat(m.Nominal, 'f', -1, 64)
	if m.Sigma == 0 {
		return s
	}
	return s + "+/-" + strconv.FormatFloat(m.Sigma, 'f', -1, 64)
}

func formatFlag(f body.Flag) string {
	if _, ok := f.Get(); !ok {
		return noData
	}
	return f.String()
}
