package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lexo-astro/lexo/internal/match"
	"github.com/lexo-astro/lexo/internal/state"
	"github.com/lexo-astro/lexo/pkg/body"
	"github.com/lexo-astro/lexo/pkg/measure"
	"github.com/lexo-astro/lexo/pkg/record"
	"github.com/lexo-astro/lexo/pkg/schema"
)

// ErrNoMatch is returned when no record answers a name lookup.
var ErrNoMatch = errors.New("no matching object")

// Table is a loaded archive table.
type Table struct {
	Name    string
	Records []record.Record
	Fetch   *state.Fetch
	// Stale is set when the rows are older than the catalog's MaxAge.
	Stale bool

	family    schema.Family
	hasFamily bool
}

// NewTable wraps recs. The schema family is taken from the table name when
// it is a family table.
func NewTable(name string, recs []record.Record, f *state.Fetch, stale bool) *Table {
	t := &Table{Name: name, Records: recs, Fetch: f, Stale: stale}
	t.family, t.hasFamily = schema.FamilyForTable(name)
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Records)
}

// Family returns the schema family of the table's rows, if it has one.
func (t *Table) Family() (schema.Family, bool) {
	return t.family, t.hasFamily
}

// Find returns the rows whose param equals value. Numbers compare by value,
// everything else by its text.
func (t *Table) Find(param string, value any) []record.Record {
	var out []record.Record
	for _, rec := range t.Records {
		if rec.Has(param) && equal(rec.Get(param), value) {
			out = append(out, rec)
		}
	}
	return out
}

func equal(a, b any) bool {
	fa, okA := measure.Float(a)
	fb, okB := measure.Float(b)
	if okA && okB {
		return fa == fb
	}
	return strings.TrimSpace(fmt.Sprint(a)) == strings.TrimSpace(fmt.Sprint(b))
}

// FindInRange returns the rows whose numeric param lies in [lo, hi]. Rows
// where param is missing or not numeric never match.
func (t *Table) FindInRange(param string, lo, hi float64) []record.Record {
	var out []record.Record
	for _, rec := range t.Records {
		v, ok := rec.Float(param)
		if ok && v >= lo && v <= hi {
			out = append(out, rec)
		}
	}
	return out
}

// Names returns the names a row is known by: its display name first, then
// any alternative designation.
func (t *Table) Names(rec record.Record) []string {
	if !t.hasFamily {
		for _, col := range []string{"kepoi_name", "kepler_name", "objname", "aliasdis"} {
			if s, ok := rec.String(col); ok {
				return []string{s}
			}
		}
		return nil
	}

	n := t.family.Names()
	var names []string
	add := func(s string) {
		for _, have := range names {
			if have == s {
				return
			}
		}
		names = append(names, s)
	}

	host, hasHost := rec.String(n.Host)
	letter, hasLetter := rec.String(n.Letter)
	if hasHost && hasLetter {
		add(host + " " + letter)
	}
	if full, ok := rec.String(n.Planet); ok {
		add(full)
	}
	if hasHost && len(names) == 0 {
		add(host)
	}
	if alt, ok := rec.String(n.Alt); ok {
		add(alt)
	}
	return names
}

// FuzzyMatch returns the row whose name is closest to name, with its score
// in [0, 100]. Every name of a row competes; ties go to the earlier row.
func (t *Table) FuzzyMatch(name string) (record.Record, int, error) {
	var (
		candidates []string
		owner      []int
	)
	for i, rec := range t.Records {
		for _, n := range t.Names(rec) {
			candidates = append(candidates, n)
			owner = append(owner, i)
		}
	}

	i, score := match.Best(name, candidates)
	if i < 0 {
		return nil, 0, fmt.Errorf("%w in %s: %q", ErrNoMatch, t.Name, name)
	}
	return t.Records[owner[i]], score, nil
}

// Suggest returns up to n names closest to name.
func (t *Table) Suggest(name string, n int) []string {
	var candidates []string
	for _, rec := range t.Records {
		candidates = append(candidates, t.Names(rec)...)
	}
	top := match.Top(name, candidates, n)
	out := make([]string, len(top))
	for i, c := range top {
		out[i] = c.Name
	}
	return out
}

// Lookup returns the first row one of whose names equals name, ignoring
// case, punctuation and word order.
func (t *Table) Lookup(name string) (record.Record, error) {
	want := match.Normalize(name)
	for _, rec := range t.Records {
		for _, n := range t.Names(rec) {
			if match.Normalize(n) == want {
				return rec, nil
			}
		}
	}
	return nil, fmt.Errorf("%w in %s: %q", ErrNoMatch, t.Name, name)
}

// Planets normalizes every row concurrently. Rows that fail carry their
// error in the corresponding Result.
func (t *Table) Planets(ctx context.Context, workers int) ([]body.Result, error) {
	return body.NormalizeBatch(ctx, t.Records, body.BatchOptions{Workers: workers})
}

// ResolveKOI maps a Kepler planet name or KOI designation to the KOI
// designation using the names table.
func ResolveKOI(names *Table, name string) (string, error) {
	want := match.Normalize(name)
	for _, rec := range names.Records {
		koi, ok := rec.String("kepoi_name")
		if !ok {
			continue
		}
		if match.Normalize(koi) == want {
			return koi, nil
		}
		if kepler, ok := rec.String("kepler_name"); ok && match.Normalize(kepler) == want {
			return koi, nil
		}
	}
	return "", fmt.Errorf("%w in %s: %q", ErrNoMatch, names.Name, name)
}
