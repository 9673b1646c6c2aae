// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/cli/config"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/internal/state"
	"github.com/lexo-astro/lexo/pkg/record"
)

// Fixtures returns a few archive rows for each lookup table. The last
// exoplanets row has no host name and fails normalization.
func Fixtures() map[string][]record.Record {
	return map[string][]record.Record{
		archive.TableExoplanets: {
			{
				"pl_hostname": "HD 209458", "pl_letter": "b", "pl_name": "HD 209458 b",
				"pl_orbper": 3.52474859, "pl_orbpererr1": 3.8e-7, "pl_orbpererr2": -3.8e-7,
				"pl_tranmid": 2452826.628521, "pl_tranmiderr1": 8.7e-5, "pl_tranmiderr2": -8.7e-5,
				"pl_trandur": 0.1277, "pl_radj": 1.38, "pl_radjerr1": 0.018, "pl_radjerr2": -0.018,
				"pl_bmassj": 0.69, "pl_trandep": 1.5, "pl_pnum": json.Number("1"), "pl_ttvflag": json.Number("0"),
				"st_teff": 6065.0, "st_dist": 48.3,
			},
			{
				"pl_hostname": "WASP-12", "pl_letter": "b", "pl_name": "WASP-12 b",
				"pl_orbper": 1.0914203, "pl_tranmid": 2456176.66826, "pl_trandur": 0.125,
				"pl_radj": 1.9, "pl_pnum": json.Number("1"),
			},
			{
				"pl_hostname": "Kepler-7", "pl_letter": "b", "pl_name": "Kepler-7 b",
				"pl_orbper": 4.885525, "pl_tranmid": 2454967.27687, "pl_pnum": json.Number("1"),
			},
			{"pl_letter": "c", "pl_orbper": 4.885525, "pl_pnum": json.Number("1")},
		},
		archive.TableMultiExoPars: {
			{"mpl_hostname": "WASP-12", "mpl_letter": "b", "mpl_orbper": 1.09142, "mpl_tranmid": 2456176.6683, "mpl_trandur": 0.125},
		},
		archive.TableCumulative: {
			{
				"kepid": json.Number("10666592"), "kepoi_name": "K00002.01", "kepler_name": "Kepler-2 b",
				"koi_period": 2.204735417, "koi_time0": 2454954.357462, "koi_duration": 3.88216,
				"koi_prad": 16.39, "koi_depth": 6740.6,
			},
			{
				"kepid": json.Number("10797460"), "kepoi_name": "K00752.01",
				"koi_period": 9.488035570, "koi_time0": 2454957.81, "koi_duration": 2.9575,
			},
		},
		archive.TableNames: {
			{"kepler_name": "Kepler-2 b", "kepoi_name": "K00002.01", "kepid": json.Number("10666592")},
			{"kepler_name": "Kepler-227 b", "kepoi_name": "K00752.01", "kepid": json.Number("10797460")},
		},
	}
}

// SeedCache writes tables into the cache file inside dataDir.
func SeedCache(t *testing.T, dataDir string, tables map[string][]record.Record) {
	t.Helper()
	ctx := context.Background()

	store, err := state.Open(ctx, filepath.Join(dataDir, config.CacheFile), nil)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	for name, recs := range tables {
		_, err := store.SaveTable(ctx, name, "fixture://"+name, recs)
		require.NoError(t, err)
	}
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererText creates a new test renderer in text mode (simulated TTY).
func NewTestRendererText() *TestRenderer {
	return NewTestRenderer(output.ModeText, true)
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation: balanced code
// fences and no empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}
	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
