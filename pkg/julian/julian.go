// Package julian converts between Julian dates and time.Time.
package julian

import (
	"math"
	"time"
)

// UnixEpoch is the Julian date of 1970-01-01T00:00:00Z.
const UnixEpoch = 2440587.5

const (
	secondsPerDay = 86400
	// ISO is the layout used by Format.
	ISO = "2006-01-02 15:04:05.000"
)

// FromTime returns the Julian date of t.
func FromTime(t time.Time) float64 {
	return float64(t.Unix())/secondsPerDay + float64(t.Nanosecond())/(secondsPerDay*1e9) + UnixEpoch
}

// ToTime returns the UTC instant of jd, rounded to the millisecond.
func ToTime(jd float64) time.Time {
	days := jd - UnixEpoch
	ms := math.Round(days * secondsPerDay * 1e3)
	return time.UnixMilli(int64(ms)).UTC()
}

// Now returns the Julian date of clock(). A nil clock means time.Now.
func Now(clock func() time.Time) float64 {
	if clock == nil {
		clock = time.Now
	}
	return FromTime(clock())
}

// Format renders jd as a UTC calendar timestamp with millisecond precision.
func Format(jd float64) string {
	return ToTime(jd).Format(ISO)
}
