package archive

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexo-astro/lexo/internal/testutil"
	"github.com/lexo-astro/lexo/pkg/schema"
)

func parseQuery(t *testing.T, raw string) url.Values {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u.Query()
}

func TestURL(t *testing.T) {
	c := &Client{}

	tests := []struct {
		table      string
		wantTable  string
		wantSelect string
	}{
		{TableExoplanets, "exoplanets", strings.Join(schema.Confirmed.Columns(), ",")},
		{TableMultiExoPars, "multiexopars", strings.Join(schema.MultiParameter.Columns(), ",")},
		{TableCumulative, "cumulative", strings.Join(schema.KOI.Columns(), ",")},
		{TableNames, "cumulative", "kepler_name,kepoi_name,kepid"},
		{TableAlias, "aliastable", ""},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			raw, err := c.URL(tt.table)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(raw, DefaultBaseURL+"?"), raw)

			q := parseQuery(t, raw)
			assert.Equal(t, tt.wantTable, q.Get("table"))
			assert.Equal(t, tt.wantSelect, q.Get("select"))
			assert.Equal(t, "json", q.Get("format"))
		})
	}
}

func TestAliasURL(t *testing.T) {
	c := &Client{BaseURL: "http://archive.test/api"}
	raw, err := c.AliasURL("HD 209458")
	require.NoError(t, err)
	q := parseQuery(t, raw)
	assert.Equal(t, "aliastable", q.Get("table"))
	assert.Equal(t, "HD 209458", q.Get("objname"))
	assert.True(t, strings.HasPrefix(raw, "http://archive.test/api?"))
}

func TestInvalidTable(t *testing.T) {
	c := &Client{}
	_, err := c.URL("keplertimeseries")
	assert.ErrorIs(t, err, ErrInvalidTable)

	_, err = c.Fetch(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidTable)

	assert.False(t, ValidTable("planets"))
	for _, table := range Tables() {
		assert.True(t, ValidTable(table))
	}
}

func TestFetch(t *testing.T) {
	var gotTable atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTable.Store(r.URL.Query().Get("table"))
		assert.Equal(t, "lexo-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"pl_hostname": "HD 209458", "pl_letter": "b", "pl_pnum": 1, "pl_orbper": 3.52474859},
			{"pl_hostname": "WASP-12", "pl_letter": "b", "pl_pnum": 1, "pl_orbper": null}
		]`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client(), UserAgent: "lexo-test", Logger: testutil.NewTestLogger(t)}
	recs, err := c.Fetch(context.Background(), TableExoplanets)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "exoplanets", gotTable.Load())

	assert.Equal(t, json.Number("1"), recs[0]["pl_pnum"])
	assert.False(t, recs[1].Has("pl_orbper"))
}

func TestFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "ERROR: table unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Fetch(context.Background(), TableCumulative)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.Equal(t, TableCumulative, se.Table)
	assert.Contains(t, se.Error(), "table unavailable")
}

func TestFetchNoRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Fetch(context.Background(), TableNames)
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Fetch(context.Background(), TableNames)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode names")
}

func TestFetchCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := &Client{BaseURL: srv.URL, HTTP: srv.Client()}
	_, err := c.Fetch(ctx, TableExoplanets)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", 0, nil)
	assert.Equal(t, defaultTimeout, c.HTTP.Timeout)
	raw, err := c.URL(TableNames)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(raw, DefaultBaseURL))
}
