// Package models defines the core data types shared by the share client,
// the alert filter and the CLI.
package models

import "time"

// Trend is the rate-of-change indicator reported alongside a glucose value.
type Trend int

// Trend codes as reported by the share service.
const (
	TrendNone Trend = iota
	TrendDoubleUp
	TrendSingleUp
	TrendFortyFiveUp
	TrendFlat
	TrendFortyFiveDown
	TrendSingleDown
	TrendDoubleDown
	TrendNotComputable
	TrendRateOutOfRange
)

// TrendNames maps each known trend code to its wire name.
var TrendNames = map[Trend]string{
	TrendNone:           "None",
	TrendDoubleUp:       "DoubleUp",
	TrendSingleUp:       "SingleUp",
	TrendFortyFiveUp:    "FortyFiveUp",
	TrendFlat:           "Flat",
	TrendFortyFiveDown:  "FortyFiveDown",
	TrendSingleDown:     "SingleDown",
	TrendDoubleDown:     "DoubleDown",
	TrendNotComputable:  "NotComputable",
	TrendRateOutOfRange: "RateOutOfRange",
}

// TrendArrows maps each known trend code to its display glyph.
var TrendArrows = map[Trend]string{
	TrendNone:           "⚠",
	TrendDoubleUp:       "⬆⬆",
	TrendSingleUp:       "⬆",
	TrendFortyFiveUp:    "↗",
	TrendFlat:           "→",
	TrendFortyFiveDown:  "↘",
	TrendSingleDown:     "⬇",
	TrendDoubleDown:     "⬇⬇",
	TrendNotComputable:  "⚠",
	TrendRateOutOfRange: "⚠",
}

const (
	unknownArrow = "?"
	unknownName  = "Unknown"
)

// Known reports whether t is one of the ten codes the service defines.
func (t Trend) Known() bool {
	_, ok := TrendNames[t]
	return ok
}

// Arrow returns the glyph for t, or "?" for an unknown code.
func (t Trend) Arrow() string {
	if a, ok := TrendArrows[t]; ok {
		return a
	}
	return unknownArrow
}

// Name returns the wire name for t, or "Unknown" for an unknown code.
func (t Trend) Name() string {
	if n, ok := TrendNames[t]; ok {
		return n
	}
	return unknownName
}

// String implements fmt.Stringer.
func (t Trend) String() string { return t.Name() }

// ParseTrendName converts a wire name such as "SingleDown" to its code.
// Unknown names map to TrendNone.
func ParseTrendName(name string) Trend {
	for code, n := range TrendNames {
		if n == name {
			return code
		}
	}
	return TrendNone
}

// Reading is a single glucose value in mg/dL.
type Reading struct {
	Value int
	Trend Trend
	Time  time.Time // local time, taken from the source clock
}

// Arrow returns the trend glyph of the reading.
func (r Reading) Arrow() string { return r.Trend.Arrow() }

// TrendName returns the trend name of the reading.
func (r Reading) TrendName() string { return r.Trend.Name() }

// ---------------------------------------------------------------------------
// Glucose ranges
// ---------------------------------------------------------------------------

// Range classifies a glucose value for display.
type Range int

const (
	RangeLow Range = iota
	RangeInRange
	RangeHigh
	RangeVeryHigh
)

// RangeOf classifies value: below 70 is low, up to 180 in range, up to 250
// high, anything above very high.
func RangeOf(value int) Range {
	switch {
	case value < 70:
		return RangeLow
	case value <= 180:
		return RangeInRange
	case value <= 250:
		return RangeHigh
	default:
		return RangeVeryHigh
	}
}

// String returns the human label of the range.
func (r Range) String() string {
	switch r {
	case RangeLow:
		return "Low"
	case RangeInRange:
		return "In Range"
	case RangeHigh:
		return "High"
	default:
		return "Very High"
	}
}

// Indicator returns the colour emoji shown next to a value in this range.
func (r Range) Indicator() string {
	switch r {
	case RangeLow:
		return "🔴"
	case RangeInRange:
		return "🟢"
	case RangeHigh:
		return "🟠"
	default:
		return "🟡"
	}
}
