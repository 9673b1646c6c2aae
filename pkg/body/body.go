// Package body defines the uniform Star and Planet entities and builds them
// from raw catalog records of any supported schema family.
//
// Entities are value objects: Normalize returns them by value and nothing in
// this package mutates one after construction. Every Planet owns the Star
// built from the same record; planets of one host do not share a Star.
package body

import (
	"github.com/lexo-astro/lexo/pkg/measure"
	"github.com/lexo-astro/lexo/pkg/schema"
)

// Flag is a tri-state boolean.
type Flag int

// Flag states. The zero value is FlagUnknown.
const (
	FlagUnknown Flag = iota
	FlagFalse
	FlagTrue
)

// FlagOf converts a known boolean to a Flag.
func FlagOf(b bool) Flag {
	if b {
		return FlagTrue
	}
	return FlagFalse
}

// Get returns the boolean and whether it is known.
func (f Flag) Get() (value, ok bool) {
	return f == FlagTrue, f != FlagUnknown
}

// String returns "yes", "no" or "unknown".
func (f Flag) String() string {
	switch f {
	case FlagTrue:
		return "yes"
	case FlagFalse:
		return "no"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes FlagUnknown as null.
func (f Flag) MarshalJSON() ([]byte, error) {
	switch f {
	case FlagTrue:
		return []byte("true"), nil
	case FlagFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// MarshalYAML encodes FlagUnknown as null.
func (f Flag) MarshalYAML() (any, error) {
	if v, ok := f.Get(); ok {
		return v, nil
	}
	return nil, nil
}

// Star is the host of a planet. Solar units for radius, mass and
// luminosity; Kelvin; Gyr; dex; parsecs.
type Star struct {
	Name                 string        `json:"name" yaml:"name"`
	Radius               measure.Value `json:"radius_solar" yaml:"radius_solar"`
	Mass                 measure.Value `json:"mass_solar" yaml:"mass_solar"`
	EffectiveTemperature measure.Value `json:"teff_k" yaml:"teff_k"`
	Age                  measure.Value `json:"age_gyr" yaml:"age_gyr"`
	Luminosity           measure.Value `json:"luminosity_solar" yaml:"luminosity_solar"`
	Metallicity          measure.Value `json:"metallicity_dex" yaml:"metallicity_dex"`
	// PlanetCount is an exact integer for the planet tables and a
	// measurement for the KOI table.
	PlanetCount measure.Value `json:"planet_count" yaml:"planet_count"`
	// DistancePC carries no uncertainty.
	DistancePC measure.Value `json:"distance_pc" yaml:"distance_pc"`
	UMag       measure.Value `json:"u_mag" yaml:"u_mag"`
	BMag       measure.Value `json:"b_mag" yaml:"b_mag"`
	VMag       measure.Value `json:"v_mag" yaml:"v_mag"`
	Family     schema.Family `json:"family" yaml:"family"`
}

// Planet is an exoplanet in canonical units: Jupiter radii and masses, days,
// AU, Julian dates and parts per million.
type Planet struct {
	Name                string        `json:"name" yaml:"name"`
	AltName             string        `json:"alt_name,omitempty" yaml:"alt_name,omitempty"`
	RadiusJupiter       measure.Value `json:"radius_jupiter" yaml:"radius_jupiter"`
	MassJupiter         measure.Value `json:"mass_jupiter" yaml:"mass_jupiter"`
	PeriodDays          measure.Value `json:"period_days" yaml:"period_days"`
	SemimajorAxisAU     measure.Value `json:"semimajor_axis_au" yaml:"semimajor_axis_au"`
	Eccentricity        measure.Value `json:"eccentricity" yaml:"eccentricity"`
	TransitMidJD        measure.Value `json:"transit_mid_jd" yaml:"transit_mid_jd"`
	TransitDurationDays measure.Value `json:"transit_duration_days" yaml:"transit_duration_days"`
	TransitDepthPPM     measure.Value `json:"transit_depth_ppm" yaml:"transit_depth_ppm"`
	HasTTV              Flag          `json:"has_ttv" yaml:"has_ttv"`
	Star                Star          `json:"star" yaml:"star"`
	Family              schema.Family `json:"family" yaml:"family"`
}
