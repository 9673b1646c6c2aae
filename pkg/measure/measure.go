// Package measure defines numeric quantities that carry a one-sigma
// uncertainty, and the rules for combining them.
//
// A Measurement is a nominal value with a standard deviation. A Value is
// either a Measurement or Unknown; every operation on a Value propagates
// Unknown instead of substituting a default.
package measure

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Measurement is a nominal value with its one-sigma uncertainty.
// Sigma is never negative.
type Measurement struct {
	Nominal float64 `json:"nominal" yaml:"nominal"`
	Sigma   float64 `json:"sigma" yaml:"sigma"`
}

// New returns a Measurement with the absolute value of sigma.
func New(nominal, sigma float64) Measurement {
	return Measurement{Nominal: nominal, Sigma: math.Abs(sigma)}
}

// Add returns m+o with uncorrelated errors added in quadrature.
func (m Measurement) Add(o Measurement) Measurement {
	return Measurement{Nominal: m.Nominal + o.Nominal, Sigma: math.Hypot(m.Sigma, o.Sigma)}
}

// Sub returns m-o with uncorrelated errors added in quadrature.
func (m Measurement) Sub(o Measurement) Measurement {
	return Measurement{Nominal: m.Nominal - o.Nominal, Sigma: math.Hypot(m.Sigma, o.Sigma)}
}

// Scale returns k*m.
func (m Measurement) Scale(k float64) Measurement {
	return Measurement{Nominal: k * m.Nominal, Sigma: math.Abs(k) * m.Sigma}
}

// Bounds returns nominal-sigma, nominal and nominal+sigma.
func (m Measurement) Bounds() (lo, nominal, hi float64) {
	return m.Nominal - m.Sigma, m.Nominal, m.Nominal + m.Sigma
}

// String renders the measurement as "nominal+/-sigma".
func (m Measurement) String() string {
	return strconv.FormatFloat(m.Nominal, 'g', -1, 64) + "+/-" + strconv.FormatFloat(m.Sigma, 'g', -1, 64)
}

// Value is a Measurement or Unknown. The zero Value is Unknown.
type Value struct {
	m     Measurement
	known bool
}

// Unknown is the absent Value.
var Unknown = Value{}

// Known wraps m as a Value.
func Known(m Measurement) Value {
	m.Sigma = math.Abs(m.Sigma)
	return Value{m: m, known: true}
}

// Exact returns a known Value with zero uncertainty.
func Exact(x float64) Value {
	return Value{m: Measurement{Nominal: x}, known: true}
}

// Get returns the Measurement and whether the value is known.
func (v Value) Get() (Measurement, bool) {
	return v.m, v.known
}

// IsKnown reports whether v holds a Measurement.
func (v Value) IsKnown() bool {
	return v.known
}

// Add returns v+o, or Unknown if either operand is Unknown.
func (v Value) Add(o Value) Value {
	if !v.known || !o.known {
		return Unknown
	}
	return Known(v.m.Add(o.m))
}

// Sub returns v-o, or Unknown if either operand is Unknown.
func (v Value) Sub(o Value) Value {
	if !v.known || !o.known {
		return Unknown
	}
	return Known(v.m.Sub(o.m))
}

// Scale returns k*v, or Unknown if v is Unknown.
func (v Value) Scale(k float64) Value {
	if !v.known {
		return Unknown
	}
	return Known(v.m.Scale(k))
}

// String renders the measurement, or "unknown".
func (v Value) String() string {
	if !v.known {
		return "unknown"
	}
	return v.m.String()
}

// MarshalJSON encodes Unknown as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.known {
		return []byte("null"), nil
	}
	return json.Marshal(v.m)
}

// UnmarshalJSON decodes null as Unknown.
func (v *Value) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*v = Unknown
		return nil
	}
	var m Measurement
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode measurement: %w", err)
	}
	*v = Known(m)
	return nil
}

// MarshalYAML encodes Unknown as null.
func (v Value) MarshalYAML() (any, error) {
	if !v.known {
		return nil, nil
	}
	return v.m, nil
}

// Make builds a Value from raw catalog fields. A missing or non-numeric
// nominal yields Unknown. Sigma is the larger magnitude of the two error
// bounds; if either bound is missing or malformed, sigma is 0.
func Make(nominal, errHigh, errLow any) Value {
	x, ok := Float(nominal)
	if !ok {
		return Unknown
	}
	hi, okHi := Float(errHigh)
	lo, okLo := Float(errLow)
	if !okHi || !okLo {
		return Exact(x)
	}
	return Known(Measurement{Nominal: x, Sigma: math.Max(math.Abs(hi), math.Abs(lo))})
}

// Float converts a raw catalog value to float64. NaN and infinities are
// rejected.
func Float(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case nil:
		return 0, false
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
