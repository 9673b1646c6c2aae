package output

import (
	"time"

	"github.com/lexo-astro/lexo/pkg/body"
	"github.com/lexo-astro/lexo/pkg/record"
)

// PlanetOutput is the structured form of a planet or KOI lookup.
type PlanetOutput struct {
	Query    string        `json:"query" yaml:"query"`
	Table    string        `json:"table" yaml:"table"`
	Score    int           `json:"score" yaml:"score"`
	Stale    bool          `json:"stale" yaml:"stale"`
	Planet   body.Planet   `json:"planet" yaml:"planet"`
	Transits TransitOutput `json:"transits" yaml:"transits"`
}

// TransitOutput lists predicted transits.
type TransitOutput struct {
	Planet      string          `json:"planet,omitempty" yaml:"planet,omitempty"`
	Known       bool            `json:"known" yaml:"known"`
	StartJD     float64         `json:"start_jd" yaml:"start_jd"`
	HorizonDays float64         `json:"horizon_days" yaml:"horizon_days"`
	Total       int             `json:"total" yaml:"total"`
	Windows     []TransitWindow `json:"windows" yaml:"windows"`
}

// TransitWindow is one predicted transit with UTC renderings of its bounds.
type TransitWindow struct {
	Number      int     `json:"n" yaml:"n"`
	EarliestJD  float64 `json:"earliest_jd" yaml:"earliest_jd"`
	LikeliestJD float64 `json:"likeliest_jd" yaml:"likeliest_jd"`
	LatestJD    float64 `json:"latest_jd" yaml:"latest_jd"`
	Earliest    string  `json:"earliest" yaml:"earliest"`
	Likeliest   string  `json:"likeliest" yaml:"likeliest"`
	Latest      string  `json:"latest" yaml:"latest"`
}

// TableStatus describes one cached table.
type TableStatus struct {
	Table     string    `json:"table" yaml:"table"`
	Rows      int       `json:"rows" yaml:"rows"`
	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
	Age       string    `json:"age" yaml:"age"`
	Stale     bool      `json:"stale" yaml:"stale"`
	Source    string    `json:"source" yaml:"source"`
}

// FetchResult is the outcome of refreshing one table.
type FetchResult struct {
	Table string `json:"table" yaml:"table"`
	Rows  int    `json:"rows" yaml:"rows"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// FindOutput is the structured form of a find query.
type FindOutput struct {
	Table   string          `json:"table" yaml:"table"`
	Param   string          `json:"param" yaml:"param"`
	Matches int             `json:"matches" yaml:"matches"`
	Planets []body.Planet   `json:"planets,omitempty" yaml:"planets,omitempty"`
	Records []record.Record `json:"records,omitempty" yaml:"records,omitempty"`
	Errors  []RecordError   `json:"errors,omitempty" yaml:"errors,omitempty"`
}

// RecordError reports a matched record that could not be normalized.
type RecordError struct {
	Index int    `json:"index" yaml:"index"`
	Error string `json:"error" yaml:"error"`
}
