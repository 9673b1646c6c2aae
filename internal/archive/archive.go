// Package archive downloads catalog tables from the NASA Exoplanet Archive
// API as raw records.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexo-astro/lexo/pkg/record"
	"github.com/lexo-astro/lexo/pkg/schema"
)

// DefaultBaseURL is the archive's table query endpoint.
const DefaultBaseURL = "https://exoplanetarchive.ipac.caltech.edu/cgi-bin/nstedAPI/nph-nstedAPI"

const defaultTimeout = 60 * time.Second

// Table names accepted by the client.
const (
	TableExoplanets   = "exoplanets"
	TableMultiExoPars = "multiexopars"
	TableAlias        = "aliastable"
	TableCumulative   = "cumulative"
	// TableNames is the Kepler name / KOI / KIC cross reference, served from
	// the cumulative table.
	TableNames = "names"
)

// NameColumns are the columns of the names table.
var NameColumns = []string{"kepler_name", "kepoi_name", "kepid"}

// ErrInvalidTable is returned for table names outside the whitelist.
var ErrInvalidTable = errors.New("invalid table name")

// Tables returns every table name the client accepts.
func Tables() []string {
	return []string{TableExoplanets, TableMultiExoPars, TableAlias, TableCumulative, TableNames}
}

// ValidTable reports whether table is whitelisted.
func ValidTable(table string) bool {
	for _, t := range Tables() {
		if t == table {
			return true
		}
	}
	return false
}

// StatusError is returned when the archive answers with a non-2xx status.
type StatusError struct {
	Table      string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("archive: fetch %s: unexpected status %d", e.Table, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Client queries the archive. The zero value is usable and talks to
// DefaultBaseURL.
type Client struct {
	BaseURL   string
	HTTP      *http.Client
	UserAgent string
	Logger    *slog.Logger
}

// NewClient returns a Client for baseURL with the given request timeout.
// An empty baseURL selects DefaultBaseURL; a non-positive timeout selects
// one minute.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
		Logger:  logger,
	}
}

func (c *Client) baseURL() string {
	if c.BaseURL == "" {
		return DefaultBaseURL
	}
	return c.BaseURL
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP == nil {
		return &http.Client{Timeout: defaultTimeout}
	}
	return c.HTTP
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// URL builds the query URL of table. Family tables select exactly the
// columns the normalizer reads.
func (c *Client) URL(table string) (string, error) {
	return c.query(table, nil)
}

// AliasURL builds the alias table query for one object name.
func (c *Client) AliasURL(objName string) (string, error) {
	return c.query(TableAlias, url.Values{"objname": {objName}})
}

func (c *Client) query(table string, extra url.Values) (string, error) {
	if !ValidTable(table) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	q := url.Values{}
	switch table {
	case TableNames:
		q.Set("table", TableCumulative)
		q.Set("select", strings.Join(NameColumns, ","))
	case TableAlias:
		q.Set("table", TableAlias)
	default:
		family, _ := schema.FamilyForTable(table)
		q.Set("table", table)
		q.Set("select", strings.Join(family.Columns(), ","))
	}
	for k, vs := range extra {
		q[k] = vs
	}
	q.Set("format", "json")

	u, err := url.Parse(c.baseURL())
	if err != nil {
		return "", fmt.Errorf("archive: parse base url: %w", err)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Fetch downloads table. It performs a single attempt.
func (c *Client) Fetch(ctx context.Context, table string) ([]record.Record, error) {
	u, err := c.URL(table)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, table, u)
}

// FetchAliases downloads the alias rows of one object.
func (c *Client) FetchAliases(ctx context.Context, objName string) ([]record.Record, error) {
	u, err := c.AliasURL(objName)
	if err != nil {
		return nil, err
	}
	return c.get(ctx, TableAlias, u)
}

func (c *Client) get(ctx context.Context, table, u string) ([]record.Record, error) {
	log := c.logger().With("table", table)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	log.Debug("fetching table", "url", u)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive: fetch %s: %w", table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{Table: table, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	recs, err := record.Read(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", table, err)
	}
	log.Debug("fetched table", "rows", len(recs), "duration", time.Since(start))
	return recs, nil
}
