package body

import (
	"errors"
	"fmt"

	"github.com/lexo-astro/lexo/pkg/measure"
	"github.com/lexo-astro/lexo/pkg/record"
	"github.com/lexo-astro/lexo/pkg/schema"
)

// ErrMissingRequiredField is returned when an identifying column is absent.
var ErrMissingRequiredField = errors.New("missing required field")

// FieldError names the absent column. It matches ErrMissingRequiredField
// under errors.Is.
type FieldError struct {
	Family schema.Family
	Field  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s record has no %q", ErrMissingRequiredField, e.Family, e.Field)
}

// Is reports whether target is ErrMissingRequiredField.
func (e *FieldError) Is(target error) bool {
	return target == ErrMissingRequiredField
}

// Normalize detects the schema family of rec and builds the Planet it
// describes together with its Star.
func Normalize(rec record.Record) (Planet, error) {
	family, err := schema.Detect(rec.Keys())
	if err != nil {
		return Planet{}, err
	}
	return NormalizeAs(rec, family)
}

// NormalizeAs builds a Planet assuming rec belongs to family.
func NormalizeAs(rec record.Record, family schema.Family) (Planet, error) {
	x := extractor{rec: rec, family: family}
	units := family.Units()

	planetName, starName, altName, err := x.names()
	if err != nil {
		return Planet{}, err
	}

	p := Planet{
		Name:                planetName,
		AltName:             altName,
		RadiusJupiter:       x.value(schema.PlanetRadius).Scale(units.RadiusToJupiter),
		MassJupiter:         x.value(schema.PlanetMass),
		PeriodDays:          x.value(schema.OrbitalPeriod),
		SemimajorAxisAU:     x.value(schema.SemimajorAxis),
		Eccentricity:        x.value(schema.Eccentricity),
		TransitMidJD:        x.value(schema.TransitMidpoint),
		TransitDurationDays: x.value(schema.TransitDuration).Scale(units.DurationToDays),
		TransitDepthPPM:     x.value(schema.TransitDepth).Scale(units.DepthToPPM),
		HasTTV:              x.flag(schema.TTVFlag),
		Family:              family,
	}
	p.Star = Star{
		Name:                 starName,
		Radius:               x.value(schema.StarRadius),
		Mass:                 x.value(schema.StarMass),
		EffectiveTemperature: x.value(schema.StarTemperature),
		Age:                  x.value(schema.StarAge),
		Luminosity:           x.value(schema.StarLuminosity),
		Metallicity:          x.value(schema.StarMetallicity),
		PlanetCount:          x.value(schema.PlanetCount),
		DistancePC:           x.exact(schema.StarDistance),
		UMag:                 x.value(schema.UMagnitude),
		BMag:                 x.value(schema.BMagnitude),
		VMag:                 x.value(schema.VMagnitude),
		Family:               family,
	}
	return p, nil
}

type extractor struct {
	rec    record.Record
	family schema.Family
}

func (x extractor) value(attr schema.Attribute) measure.Value {
	f, ok := x.family.Fields(attr)
	if !ok || !x.rec.Has(f.Value) {
		return measure.Unknown
	}
	return measure.Make(x.rec.Get(f.Value), x.errBound(f.ErrHigh), x.errBound(f.ErrLow))
}

func (x extractor) errBound(col string) any {
	if col == "" {
		return nil
	}
	return x.rec.Get(col)
}

func (x extractor) exact(attr schema.Attribute) measure.Value {
	f, ok := x.family.Fields(attr)
	if !ok {
		return measure.Unknown
	}
	v, ok := x.rec.Float(f.Value)
	if !ok {
		return measure.Unknown
	}
	return measure.Exact(v)
}

func (x extractor) flag(attr schema.Attribute) Flag {
	f, ok := x.family.Fields(attr)
	if !ok {
		return FlagUnknown
	}
	b, ok := x.rec.Bool(f.Value)
	if !ok {
		return FlagUnknown
	}
	return FlagOf(b)
}

// names resolves the planet, star and alternative names. The host column is
// mandatory; the planet name is host plus letter when a letter is reported,
// else the family's full-name column, else the host.
func (x extractor) names() (planet, star, alt string, err error) {
	n := x.family.Names()
	host, ok := x.rec.String(n.Host)
	if !ok {
		return "", "", "", &FieldError{Family: x.family, Field: n.Host}
	}

	star = host
	if n.StarID != "" {
		if id, ok := x.rec.String(n.StarID); ok {
			star = "KIC " + id
		}
	}

	planet = host
	if letter, ok := x.rec.String(n.Letter); ok {
		planet = host + " " + letter
	} else if full, ok := x.rec.String(n.Planet); ok {
		planet = full
	}

	if n.Alt != "" {
		alt, _ = x.rec.String(n.Alt)
	}
	return planet, star, alt, nil
}
