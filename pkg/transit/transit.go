// Package transit extrapolates future transit midpoints of a planet from its
// catalog reference transit and orbital period.
package transit

import (
	"errors"
	"fmt"
	"math"

	"github.com/lexo-astro/lexo/pkg/body"
	"github.com/lexo-astro/lexo/pkg/measure"
)

var (
	// ErrInvalidPeriod is returned when a planet reports a non-positive period.
	ErrInvalidPeriod = errors.New("invalid orbital period")
	// ErrHorizonTooLarge is returned when the window spans more than
	// MaxTransits periods.
	ErrHorizonTooLarge = errors.New("prediction horizon too large")
	// ErrWindowOutOfRange is returned when the window is not finite or lies
	// too many periods from the epoch to number its transits exactly.
	ErrWindowOutOfRange = errors.New("prediction window out of range")
)

// MaxTransits bounds the number of transits a single Predict call returns.
const MaxTransits = 1_000_000

// maxIndex is the largest transit number a float64 holds exactly.
const maxIndex = 1 << 53

// Epoch returns the reference instant t0 = mid - duration/2, in JD. It is
// Unknown when either the midpoint or the duration is Unknown.
func Epoch(p body.Planet) measure.Value {
	return p.TransitMidJD.Sub(p.TransitDurationDays.Scale(0.5))
}

// Transit returns the n-th transit counted from Epoch.
func Transit(p body.Planet, n int) measure.Value {
	return Epoch(p).Add(p.PeriodDays.Scale(float64(n)))
}

// Request selects the prediction window. NowJD is supplied by the caller so
// predictions are reproducible.
type Request struct {
	NowJD           float64
	HorizonDays     float64
	StartOffsetDays float64
}

// Start returns the Julian date the window opens at.
func (r Request) Start() float64 {
	return r.NowJD + r.StartOffsetDays
}

// Schedule is the result of Predict. When Known is false the planet lacks
// the inputs needed for a prediction and Transits is empty.
type Schedule struct {
	Known    bool                  `json:"known" yaml:"known"`
	FirstN   int                   `json:"first_n" yaml:"first_n"`
	Transits []measure.Measurement `json:"transits" yaml:"transits"`
}

// Len returns the number of predicted transits.
func (s Schedule) Len() int {
	return len(s.Transits)
}

// Window is a predicted transit as a one-sigma interval of Julian dates.
type Window struct {
	Earliest  float64 `json:"earliest" yaml:"earliest"`
	Likeliest float64 `json:"likeliest" yaml:"likeliest"`
	Latest    float64 `json:"latest" yaml:"latest"`
}

// Windows maps every predicted transit to its interval.
func (s Schedule) Windows() []Window {
	out := make([]Window, len(s.Transits))
	for i, t := range s.Transits {
		lo, mid, hi := t.Bounds()
		out[i] = Window{Earliest: lo, Likeliest: mid, Latest: hi}
	}
	return out
}

// Predict returns the transits after req.Start() for the number of whole
// periods spanned by req.HorizonDays. The count is floor(horizon/period), so
// a window shorter than one period yields an empty schedule even when a
// transit falls inside it. Windows covering more than MaxTransits periods
// fail with ErrHorizonTooLarge.
func Predict(p body.Planet, req Request) (Schedule, error) {
	period, ok := p.PeriodDays.Get()
	if ok && period.Nominal <= 0 {
		return Schedule{}, ErrInvalidPeriod
	}
	epoch, eok := Epoch(p).Get()
	if !ok || !eok {
		return Schedule{}, nil
	}

	first := math.Floor((req.Start()-epoch.Nominal)/period.Nominal) + 1
	if math.IsNaN(first) || math.Abs(first) > maxIndex {
		return Schedule{}, fmt.Errorf("%w: start %v is %v periods from epoch", ErrWindowOutOfRange, req.Start(), first)
	}
	periods := math.Floor(req.HorizonDays / period.Nominal)
	if math.IsNaN(periods) {
		return Schedule{}, fmt.Errorf("%w: horizon %v", ErrWindowOutOfRange, req.HorizonDays)
	}
	if periods > MaxTransits {
		return Schedule{}, fmt.Errorf("%w: %v days spans more than %d periods of %v days",
			ErrHorizonTooLarge, req.HorizonDays, MaxTransits, period.Nominal)
	}
	count := 0
	if periods > 0 {
		count = int(periods)
	}
	firstN := int(first)

	s := Schedule{Known: true, FirstN: firstN, Transits: make([]measure.Measurement, 0, count)}
	for n := firstN; n < firstN+count; n++ {
		s.Transits = append(s.Transits, epoch.Add(period.Scale(float64(n))))
	}
	return s, nil
}
