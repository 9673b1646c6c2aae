package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo-astro/lexo/internal/archive"
	"github.com/lexo-astro/lexo/internal/catalog"
	"github.com/lexo-astro/lexo/internal/cli/config"
	"github.com/lexo-astro/lexo/internal/cli/output"
	"github.com/lexo-astro/lexo/internal/cli/testutil"
	"github.com/lexo-astro/lexo/pkg/measure"
	"github.com/lexo-astro/lexo/pkg/transit"
)

// seedEnv points the configuration at a data directory holding the fixture
// tables and disables downloads.
func seedEnv(t *testing.T, mode string) string {
	t.Helper()
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)

	dir := t.TempDir()
	testutil.SeedCache(t, dir, testutil.Fixtures())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEXO_DATA_DIR", dir)
	t.Setenv("LEXO_OFFLINE", "true")
	t.Setenv("LEXO_CACHE_TTL", "0s")
	t.Setenv("LEXO_OUTPUT", mode)
	return dir
}

func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// transitRows counts the markdown table rows holding transit dates.
func transitRows(out string) int {
	n := 0
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "| 2025-") {
			n++
		}
	}
	return n
}

func TestCommandMetadata(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{NewPlanetCommand(), "planet <name...>", []string{"table", "days", "start", "limit", "at"}},
		{NewKOICommand(), "koi <kepoi_name|kepler_name>", []string{"days", "start", "limit", "at"}},
		{NewTransitsCommand(), "transits <name...>", []string{"table", "days", "start", "limit", "at"}},
		{NewFetchCommand(), "fetch [table...]", nil},
		{NewTablesCommand(), "tables", nil},
		{NewFindCommand(), "find <table> <param>", []string{"eq", "min", "max", "limit"}},
		{NewREPLCommand(), "repl", []string{"days", "limit"}},
	}
	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestPlanetMarkdown(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewPlanetCommand(), "HD", "209458", "b", "--at", "2025-01-01", "--days", "30")
	require.NoError(t, err)

	testutil.AssertNoANSI(t, out)
	testutil.AssertValidMarkdown(t, out)
	assert.NotContains(t, out, "No exact match")
	assert.Contains(t, out, "# HD 209458 b")
	assert.Contains(t, out, "## Planet")
	assert.Contains(t, out, "- **Radius (R_Jup)**: 1.38+/-0.018")
	assert.Contains(t, out, "- **Transit depth (ppm)**: 15000")
	assert.Contains(t, out, "- **TTV**: no")
	assert.Contains(t, out, "- **Eccentricity**: no data")
	assert.Contains(t, out, "## Star")
	assert.Contains(t, out, "- **Distance (pc)**: 48.3")
	assert.Contains(t, out, "## Upcoming transits (UTC)")
	assert.Contains(t, out, "| earliest | likeliest | latest |")
	assert.Contains(t, out, "| 2025-01-")
	assert.NotContains(t, out, "more transits")
}

func TestPlanetClosestMatch(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewPlanetCommand(), "HD 209458", "--at", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "No exact match. Showing closest match.")
	assert.Contains(t, out, "# HD 209458 b")
}

func TestPlanetTransitLimit(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewPlanetCommand(), "wasp-12 B", "--at", "2025-01-01", "--days", "30", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, transitRows(out), "only the first rows are listed")
	assert.Contains(t, out, "+ 22 more transits in the next 30 days")
}

func TestPlanetWithoutDuration(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewPlanetCommand(), "Kepler-7 b", "--at", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Transit midpoint (JD)**: 2454967.27687")
	assert.Contains(t, out, "No transit data")
}

func TestPlanetJSON(t *testing.T) {
	seedEnv(t, "json")

	out, _, err := runCommand(t, NewPlanetCommand(), "WASP-12 b", "--at", "2025-01-01", "--days", "30", "--limit", "5")
	require.NoError(t, err)

	var rep struct {
		Score  int    `json:"score"`
		Table  string `json:"table"`
		Planet struct {
			Name       string  `json:"name"`
			PeriodDays measure.Value `json:"period_days"`
			HasTTV     *bool   `json:"has_ttv"`
			Family     string  `json:"family"`
		} `json:"planet"`
		Transits output.TransitOutput `json:"transits"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, "WASP-12 b", rep.Planet.Name)
	period, ok := rep.Planet.PeriodDays.Get()
	require.True(t, ok)
	assert.InDelta(t, 1.0914203, period.Nominal, 1e-12)
	assert.Nil(t, rep.Planet.HasTTV, "unknown flags are null")
	assert.Equal(t, "confirmed", rep.Planet.Family)
	assert.Equal(t, 100, rep.Score)
	assert.Equal(t, archive.TableExoplanets, rep.Table)
	assert.True(t, rep.Transits.Known)
	assert.Equal(t, 27, rep.Transits.Total)
	assert.Len(t, rep.Transits.Windows, 27, "structured output is never truncated")
}

func TestPlanetMultiParameterTable(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewPlanetCommand(), "WASP-12 b", "--table", archive.TableMultiExoPars, "--at", "2025-01-01")
	require.NoError(t, err)
	assert.Contains(t, out, "- **Catalog**: multiexopars")

	_, _, err = runCommand(t, NewPlanetCommand(), "WASP-12 b", "--table", archive.TableAlias)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no planet rows")
}

func TestPlanetOfflineWithoutCache(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEXO_DATA_DIR", t.TempDir())
	t.Setenv("LEXO_OFFLINE", "true")

	_, _, err := runCommand(t, NewPlanetCommand(), "WASP-12 b")
	assert.ErrorIs(t, err, catalog.ErrOffline)
}

func TestKOI(t *testing.T) {
	seedEnv(t, "markdown")

	t.Run("designation", func(t *testing.T) {
		out, _, err := runCommand(t, NewKOICommand(), "K00002.01", "--at", "2025-01-01")
		require.NoError(t, err)
		assert.Contains(t, out, "# K00002.01")
		assert.Contains(t, out, "- **Also known as**: Kepler-2 b")
		assert.Contains(t, out, "- **Name**: KIC 10666592")
		assert.NotContains(t, out, "No exact match")
	})

	t.Run("kepler name in cumulative", func(t *testing.T) {
		out, _, err := runCommand(t, NewKOICommand(), "kepler-2", "b")
		require.NoError(t, err)
		assert.Contains(t, out, "# K00002.01")
	})

	t.Run("kepler name via names table", func(t *testing.T) {
		out, _, err := runCommand(t, NewKOICommand(), "Kepler-227 b")
		require.NoError(t, err)
		assert.Contains(t, out, "# K00752.01")
	})

	t.Run("not found", func(t *testing.T) {
		_, _, err := runCommand(t, NewKOICommand(), "Kepler-999 z")
		require.ErrorIs(t, err, catalog.ErrNoMatch)
		assert.Contains(t, err.Error(), "not found in cumulative")
	})
}

func TestTransitsJSON(t *testing.T) {
	seedEnv(t, "json")

	out, _, err := runCommand(t, NewTransitsCommand(), "WASP-12 b", "--at", "2025-01-01", "--days", "10")
	require.NoError(t, err)

	var res output.TransitOutput
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "WASP-12 b", res.Planet)
	assert.Equal(t, 9, res.Total)
	require.Len(t, res.Windows, 9)
	for i := 1; i < len(res.Windows); i++ {
		assert.Equal(t, res.Windows[i-1].Number+1, res.Windows[i].Number)
		assert.Greater(t, res.Windows[i].LikeliestJD, res.Windows[i-1].LikeliestJD)
	}
	assert.Greater(t, res.Windows[0].LikeliestJD, res.StartJD)
}

func TestTransitsMarkdown(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewTransitsCommand(), "K00002.01", "--table", archive.TableCumulative, "--at", "2460676.5", "--days", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "# K00002.01")
	assert.Equal(t, 2, transitRows(out))

	_, _, err = runCommand(t, NewTransitsCommand(), "K00002.01", "--at", "yesterday")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid instant")
}

func TestTransitsHorizonTooLarge(t *testing.T) {
	seedEnv(t, "markdown")

	_, _, err := runCommand(t, NewTransitsCommand(), "WASP-12 b", "--at", "2025-01-01", "--days", "1e18")
	require.Error(t, err)
	assert.ErrorIs(t, err, transit.ErrHorizonTooLarge)
	assert.Contains(t, err.Error(), "WASP-12 b")
}

func TestPlanetHorizonTooLargeWarns(t *testing.T) {
	seedEnv(t, "markdown")

	out, errOut, err := runCommand(t, NewPlanetCommand(), "WASP-12 b", "--at", "2025-01-01", "--days", "1e18")
	require.NoError(t, err)
	assert.Contains(t, errOut, "prediction horizon too large")
	assert.Contains(t, out, "# WASP-12 b")
	assert.Contains(t, out, "No transit data")
}

func TestFind(t *testing.T) {
	seedEnv(t, "markdown")

	t.Run("range with a bad row", func(t *testing.T) {
		out, errOut, err := runCommand(t, NewFindCommand(), archive.TableExoplanets, "pl_orbper", "--min", "4", "--max", "5")
		require.NoError(t, err)
		assert.Contains(t, out, "exoplanets: 2 rows match pl_orbper")
		assert.Contains(t, out, "| Kepler-7 b |")
		assert.Contains(t, errOut, "skipped row 1")
		assert.Contains(t, errOut, "missing required field")
	})

	t.Run("equality on a raw table", func(t *testing.T) {
		out, _, err := runCommand(t, NewFindCommand(), archive.TableNames, "kepid", "--eq", "10666592")
		require.NoError(t, err)
		assert.Contains(t, out, "names: 1 rows match kepid")
		assert.Contains(t, out, "| kepid | kepler_name | kepoi_name |")
		assert.Contains(t, out, "K00002.01")
	})

	t.Run("no match", func(t *testing.T) {
		out, _, err := runCommand(t, NewFindCommand(), archive.TableExoplanets, "pl_orbper", "--min", "100")
		require.NoError(t, err)
		assert.Contains(t, out, "No matching rows")
	})

	t.Run("needs a filter", func(t *testing.T) {
		_, _, err := runCommand(t, NewFindCommand(), archive.TableExoplanets, "pl_orbper")
		require.Error(t, err)
	})

	t.Run("bad range", func(t *testing.T) {
		_, _, err := runCommand(t, NewFindCommand(), archive.TableExoplanets, "pl_orbper", "--min", "5", "--max", "4")
		require.Error(t, err)
	})
}

func TestFindJSON(t *testing.T) {
	seedEnv(t, "json")

	out, _, err := runCommand(t, NewFindCommand(), archive.TableExoplanets, "pl_pnum", "--eq", "1")
	require.NoError(t, err)

	var res struct {
		Matches int `json:"matches"`
		Planets []struct {
			Name string `json:"name"`
		} `json:"planets"`
		Errors []output.RecordError `json:"errors"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 4, res.Matches)
	require.Len(t, res.Planets, 3)
	assert.Equal(t, "HD 209458 b", res.Planets[0].Name)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 3, res.Errors[0].Index)
}

func TestTables(t *testing.T) {
	seedEnv(t, "markdown")

	out, _, err := runCommand(t, NewTablesCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# Cached tables")
	assert.Contains(t, out, "| exoplanets | 4 |")
	assert.Contains(t, out, "| names | 2 |")
	assert.Contains(t, out, "fresh")
	assert.Less(t, strings.Index(out, "| cumulative |"), strings.Index(out, "| names |"), "sorted by table")

	t.Setenv("LEXO_CACHE_TTL", "1ns")
	config.ResetConfig()
	out, _, err = runCommand(t, NewTablesCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "stale")
}

func TestTablesEmpty(t *testing.T) {
	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEXO_DATA_DIR", t.TempDir())
	t.Setenv("LEXO_OUTPUT", "markdown")

	out, _, err := runCommand(t, NewTablesCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No cached tables")
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("table") == archive.TableMultiExoPars {
			http.Error(w, "maintenance", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"pl_hostname":"TOI-700","pl_letter":"d","pl_orbper":37.42}]`))
	}))
	t.Cleanup(srv.Close)

	config.ResetConfig()
	t.Cleanup(config.ResetConfig)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LEXO_DATA_DIR", t.TempDir())
	t.Setenv("LEXO_ARCHIVE_URL", srv.URL)
	t.Setenv("LEXO_OUTPUT", "markdown")
	t.Setenv("LEXO_WORKERS", "2")

	out, _, err := runCommand(t, NewFetchCommand(), archive.TableExoplanets, archive.TableMultiExoPars)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 tables failed to download")
	assert.Contains(t, out, "[ok] exoplanets (1 rows)")
	assert.Contains(t, out, "[fail] multiexopars")

	// The successful table is now served from the cache.
	t.Setenv("LEXO_OFFLINE", "true")
	config.ResetConfig()
	out, _, err = runCommand(t, NewPlanetCommand(), "TOI-700 d")
	require.NoError(t, err)
	assert.Contains(t, out, "# TOI-700 d")
}

func TestFetchRejectsUnknownTable(t *testing.T) {
	seedEnv(t, "markdown")

	_, _, err := runCommand(t, NewFetchCommand(), "planets")
	assert.ErrorIs(t, err, archive.ErrInvalidTable)
}

func TestREPLSession(t *testing.T) {
	seedEnv(t, "markdown")

	cmd := &cobra.Command{Use: "repl"}
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetContext(context.Background())

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	require.NoError(t, err)
	defer cleanup()

	s := newREPLSession(cmdCtx, transitOptions{days: 30, limit: 3, at: "2025-01-01"})
	ctx := context.Background()

	assert.False(t, s.handle(ctx, "  "))
	assert.Empty(t, out.String())

	assert.False(t, s.handle(ctx, "wasp 12 b"))
	assert.Contains(t, out.String(), "# WASP-12 b")
	assert.Contains(t, out.String(), "+ 24 more transits")

	out.Reset()
	assert.False(t, s.handle(ctx, ".table multiexopars"))
	assert.Equal(t, archive.TableMultiExoPars, s.table)
	assert.False(t, s.handle(ctx, ".transits WASP-12 b"))
	assert.Contains(t, out.String(), "# WASP-12 b")

	out.Reset()
	assert.False(t, s.handle(ctx, ".koi K00752.01"))
	assert.Contains(t, out.String(), "# K00752.01")

	assert.False(t, s.handle(ctx, ".table aliastable"))
	assert.Equal(t, archive.TableMultiExoPars, s.table)
	assert.False(t, s.handle(ctx, ".koi"))
	assert.Contains(t, errOut.String(), "usage: .koi")
	assert.False(t, s.handle(ctx, ".bogus"))
	assert.Contains(t, errOut.String(), "unknown command: .bogus")

	out.Reset()
	assert.False(t, s.handle(ctx, ".help"))
	assert.Contains(t, out.String(), ".transits <name>")

	assert.True(t, s.handle(ctx, ".quit"))
	assert.True(t, s.handle(ctx, ".EXIT"))
}

func TestParseInstant(t *testing.T) {
	jd, err := parseInstant("2451545.0")
	require.NoError(t, err)
	assert.InDelta(t, 2451545.0, jd, 1e-9)

	jd, err = parseInstant("2000-01-01T12:00:00Z")
	require.NoError(t, err)
	assert.InDelta(t, 2451545.0, jd, 1e-9)

	jd, err = parseInstant("2000-01-01")
	require.NoError(t, err)
	assert.InDelta(t, 2451544.5, jd, 1e-9)

	jd, err = parseInstant("3000-01-01")
	require.NoError(t, err)
	assert.InDelta(t, 2816787.5, jd, 1e-9)

	_, err = parseInstant("soon")
	assert.Error(t, err)
}

func TestRenderFetchResults(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	results := []output.FetchResult{
		{Table: archive.TableExoplanets, Rows: 5327},
		{Table: archive.TableCumulative, Error: "archive: fetch cumulative: unexpected status 502"},
	}

	t.Run("text", func(t *testing.T) {
		tr := testutil.NewTestRendererText()
		err := renderFetchResults(tr.Renderer, results)
		require.Error(t, err)
		testutil.AssertNoANSI(t, tr.Output())
		assert.Contains(t, tr.Output(), "✓ exoplanets (5,327 rows)")
		assert.Contains(t, tr.Output(), "✗ cumulative")
		assert.Contains(t, tr.Output(), "unexpected status 502")
	})

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRendererJSON()
		err := renderFetchResults(tr.Renderer, results)
		require.Error(t, err)

		var got []output.FetchResult
		require.NoError(t, json.Unmarshal(tr.Out.Bytes(), &got))
		assert.Equal(t, results, got)
	})
}

func TestRenderTransitsWithoutData(t *testing.T) {
	tr := testutil.NewTestRendererMarkdown()
	renderTransits(tr.Renderer, output.TransitOutput{Known: false}, 10)

	testutil.AssertValidMarkdown(t, tr.Output())
	assert.Contains(t, tr.Output(), "## Upcoming transits (UTC)")
	assert.Contains(t, tr.Output(), "No transit data")
	assert.Empty(t, tr.ErrorOutput())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, noData, formatValue(measure.Unknown))
	assert.Equal(t, "2454967.27687", formatValue(measure.Exact(2454967.27687)))
	assert.Equal(t, "1.38+/-0.018", formatValue(measure.Known(measure.New(1.38, 0.018))))
}
