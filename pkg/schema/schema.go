// Package schema describes the three catalog record shapes the archive
// serves and maps each of them onto one canonical attribute set.
//
// Detection is a pure function of a record's column names: every family owns
// a set of column prefixes, and the first family in priority order with a
// matching column wins.
package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnrecognizedSchema is returned when no column matches a known prefix.
var ErrUnrecognizedSchema = errors.New("unrecognized schema")

// =============================================================================
// Family
// =============================================================================

// Family identifies a catalog record shape.
type Family int

// Families in detection priority order.
const (
	// Confirmed is the confirmed-planets table (pl_*, st_* columns).
	Confirmed Family = iota + 1
	// MultiParameter is the extended planet parameters table (mpl_*, mst_*).
	MultiParameter
	// KOI is the Kepler cumulative objects-of-interest table (koi_*, kep*).
	KOI
)

// Families returns all families in detection priority order.
func Families() []Family {
	return []Family{Confirmed, MultiParameter, KOI}
}

// String returns the family name.
func (f Family) String() string {
	switch f {
	case Confirmed:
		return "confirmed"
	case MultiParameter:
		return "multiparameter"
	case KOI:
		return "koi"
	default:
		return "unknown"
	}
}

// ParseFamily converts a family name to a Family.
func ParseFamily(s string) (Family, bool) {
	for _, f := range Families() {
		if strings.EqualFold(s, f.String()) {
			return f, true
		}
	}
	return 0, false
}

// FamilyForTable returns the family whose records an archive table serves.
func FamilyForTable(table string) (Family, bool) {
	for _, f := range Families() {
		if f.Table() == table {
			return f, true
		}
	}
	return 0, false
}

// MarshalText implements encoding.TextMarshaler.
func (f Family) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Table returns the archive table the family is served from.
func (f Family) Table() string {
	if s := f.layout(); s != nil {
		return s.table
	}
	return ""
}

// Prefixes returns the discriminating column prefixes.
func (f Family) Prefixes() []string {
	if s := f.layout(); s != nil {
		return append([]string(nil), s.prefixes...)
	}
	return nil
}

// Fields returns the raw columns backing attr. ok is false when the family
// does not report the attribute at all.
func (f Family) Fields(attr Attribute) (Fields, bool) {
	s := f.layout()
	if s == nil {
		return Fields{}, false
	}
	fields, ok := s.attrs[attr]
	return fields, ok
}

// Names returns the identifying columns.
func (f Family) Names() NameFields {
	if s := f.layout(); s != nil {
		return s.names
	}
	return NameFields{}
}

// Units returns the factors that bring the family's native units to the
// canonical ones.
func (f Family) Units() Units {
	if s := f.layout(); s != nil {
		return s.units
	}
	return Units{DepthToPPM: 1, RadiusToJupiter: 1, DurationToDays: 1}
}

// Columns lists every raw column the family reads, names first, in a stable
// order.
func (f Family) Columns() []string {
	s := f.layout()
	if s == nil {
		return nil
	}
	seen := make(map[string]bool)
	var cols []string
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			cols = append(cols, c)
		}
	}
	for _, c := range s.names.columns() {
		add(c)
	}
	for _, a := range Attributes() {
		fields, ok := s.attrs[a]
		if !ok {
			continue
		}
		add(fields.Value)
		add(fields.ErrHigh)
		add(fields.ErrLow)
	}
	return cols
}

// Detect selects the family of a record from its column names.
func Detect(keys []string) (Family, error) {
	for _, f := range Families() {
		for _, p := range f.layout().prefixes {
			for _, k := range keys {
				if strings.HasPrefix(k, p) {
					return f, nil
				}
			}
		}
	}
	return 0, fmt.Errorf("%w: none of %d columns has a known prefix", ErrUnrecognizedSchema, len(keys))
}

// =============================================================================
// Attributes
// =============================================================================

// Attribute is a canonical entity attribute.
type Attribute int

// Canonical attributes.
const (
	PlanetRadius Attribute = iota + 1
	PlanetMass
	OrbitalPeriod
	SemimajorAxis
	Eccentricity
	TransitMidpoint
	TransitDuration
	TransitDepth
	TTVFlag
	StarRadius
	StarMass
	StarTemperature
	StarAge
	StarLuminosity
	StarMetallicity
	PlanetCount
	StarDistance
	UMagnitude
	BMagnitude
	VMagnitude
)

var attributeNames = map[Attribute]string{
	PlanetRadius:    "planet_radius",
	PlanetMass:      "planet_mass",
	OrbitalPeriod:   "period",
	SemimajorAxis:   "semimajor_axis",
	Eccentricity:    "eccentricity",
	TransitMidpoint: "transit_midpoint",
	TransitDuration: "transit_duration",
	TransitDepth:    "transit_depth",
	TTVFlag:         "ttv_flag",
	StarRadius:      "star_radius",
	StarMass:        "star_mass",
	StarTemperature: "star_teff",
	StarAge:         "star_age",
	StarLuminosity:  "star_luminosity",
	StarMetallicity: "star_metallicity",
	PlanetCount:     "planet_count",
	StarDistance:    "star_distance",
	UMagnitude:      "u_mag",
	BMagnitude:      "b_mag",
	VMagnitude:      "v_mag",
}

// Attributes returns every canonical attribute in declaration order.
func Attributes() []Attribute {
	attrs := make([]Attribute, 0, len(attributeNames))
	for a := PlanetRadius; a <= VMagnitude; a++ {
		attrs = append(attrs, a)
	}
	return attrs
}

// String returns the attribute's canonical name.
func (a Attribute) String() string {
	if s, ok := attributeNames[a]; ok {
		return s
	}
	return "unknown"
}

// Fields names the raw columns holding a value and its error bounds. Empty
// error names mean the family reports no uncertainty for the attribute.
type Fields struct {
	Value   string
	ErrHigh string
	ErrLow  string
}

// NameFields names the identifying columns of a family.
type NameFields struct {
	// Host is the host star name column. Required.
	Host string
	// Letter is the planet letter column appended to Host, if any.
	Letter string
	// Planet is a full planet name column, if any.
	Planet string
	// Alt is an alternative planet designation, if any.
	Alt string
	// StarID is a numeric catalog id for the host, if any.
	StarID string
}

func (n NameFields) columns() []string {
	return []string{n.Planet, n.Host, n.Letter, n.Alt, n.StarID}
}

// Units holds multiplicative factors from native to canonical units.
type Units struct {
	DepthToPPM      float64
	RadiusToJupiter float64
	DurationToDays  float64
}

// EarthToJupiterRadius is R_earth / R_jupiter using the IAU nominal
// equatorial radii.
const EarthToJupiterRadius = 6.3781e6 / 7.1492e7

type familyLayout struct {
	table    string
	prefixes []string
	names    NameFields
	units    Units
	attrs    map[Attribute]Fields
}

func (f Family) layout() *familyLayout {
	switch f {
	case Confirmed:
		return &confirmedLayout
	case MultiParameter:
		return &multiParameterLayout
	case KOI:
		return &koiLayout
	default:
		return nil
	}
}

// archive error columns: "<col>err1"/"<col>err2" on the planet tables and
// "<col>_err1"/"<col>_err2" on the KOI table.
func joined(col string) Fields {
	return Fields{Value: col, ErrHigh: col + "err1", ErrLow: col + "err2"}
}

func underscored(col string) Fields {
	return Fields{Value: col, ErrHigh: col + "_err1", ErrLow: col + "_err2"}
}

func symmetric(col, errCol string) Fields {
	return Fields{Value: col, ErrHigh: errCol, ErrLow: errCol}
}

func bare(col string) Fields {
	return Fields{Value: col}
}

var confirmedLayout = familyLayout{
	table:    "exoplanets",
	prefixes: []string{"pl_", "st_"},
	names:    NameFields{Host: "pl_hostname", Letter: "pl_letter", Planet: "pl_name"},
	units:    Units{DepthToPPM: 1e4, RadiusToJupiter: 1, DurationToDays: 1},
	attrs: map[Attribute]Fields{
		PlanetRadius:    joined("pl_radj"),
		PlanetMass:      joined("pl_bmassj"),
		OrbitalPeriod:   joined("pl_orbper"),
		SemimajorAxis:   joined("pl_orbsmax"),
		Eccentricity:    joined("pl_orbeccen"),
		TransitMidpoint: joined("pl_tranmid"),
		TransitDuration: joined("pl_trandur"),
		TransitDepth:    joined("pl_trandep"),
		TTVFlag:         bare("pl_ttvflag"),
		StarRadius:      joined("st_rad"),
		StarMass:        joined("st_mass"),
		StarTemperature: joined("st_teff"),
		StarAge:         joined("st_age"),
		StarLuminosity:  joined("st_lum"),
		StarMetallicity: joined("st_metfe"),
		PlanetCount:     bare("pl_pnum"),
		StarDistance:    bare("st_dist"),
		UMagnitude:      symmetric("st_uj", "st_ujerr"),
		BMagnitude:      symmetric("st_bj", "st_bjerr"),
		VMagnitude:      symmetric("st_vj", "st_vjerr"),
	},
}

var multiParameterLayout = familyLayout{
	table:    "multiexopars",
	prefixes: []string{"mpl_", "mst_"},
	names:    NameFields{Host: "mpl_hostname", Letter: "mpl_letter", Planet: "mpl_name"},
	units:    Units{DepthToPPM: 1e4, RadiusToJupiter: 1, DurationToDays: 1},
	attrs: map[Attribute]Fields{
		PlanetRadius:    joined("mpl_radj"),
		PlanetMass:      joined("mpl_bmassj"),
		OrbitalPeriod:   joined("mpl_orbper"),
		SemimajorAxis:   joined("mpl_orbsmax"),
		Eccentricity:    joined("mpl_orbeccen"),
		TransitMidpoint: joined("mpl_tranmid"),
		TransitDuration: joined("mpl_trandur"),
		TransitDepth:    joined("mpl_trandep"),
		TTVFlag:         bare("mpl_ttvflag"),
		StarRadius:      joined("mst_rad"),
		StarMass:        joined("mst_mass"),
		StarTemperature: joined("mst_teff"),
		StarAge:         joined("mst_age"),
		StarLuminosity:  joined("mst_lum"),
		StarMetallicity: joined("mst_metfe"),
		PlanetCount:     bare("mpl_pnum"),
	},
}

var koiLayout = familyLayout{
	table:    "cumulative",
	prefixes: []string{"koi_", "kep"},
	names:    NameFields{Host: "kepoi_name", Planet: "kepoi_name", Alt: "kepler_name", StarID: "kepid"},
	// koi_depth is already ppm, koi_prad is Earth radii, koi_duration is hours.
	units: Units{DepthToPPM: 1, RadiusToJupiter: EarthToJupiterRadius, DurationToDays: 1.0 / 24},
	attrs: map[Attribute]Fields{
		PlanetRadius:    underscored("koi_prad"),
		OrbitalPeriod:   underscored("koi_period"),
		SemimajorAxis:   underscored("koi_sma"),
		Eccentricity:    underscored("koi_eccen"),
		TransitMidpoint: underscored("koi_time0"),
		TransitDuration: underscored("koi_duration"),
		TransitDepth:    underscored("koi_depth"),
		StarRadius:      underscored("koi_srad"),
		StarMass:        underscored("koi_smass"),
		StarTemperature: underscored("koi_steff"),
		StarAge:         underscored("koi_sage"),
		StarMetallicity: underscored("koi_smet"),
		PlanetCount:     bare("koi_count"),
	},
}
