// Package stats implements the comparative statistics engine behind the
// dashboard: period-over-period envelopes and percent-change computation.
package stats

import "math"

// Rounding selects how a computed value is rounded before transmission.
// Endpoints diverge here on purpose: efficiency reports whole percents,
// ratings one decimal, counters are sent unrounded.
type Rounding int

const (
	RoundNone Rounding = iota
	RoundInt
	RoundTenth
)

// Envelope is the uniform response shape for comparative stats: the metric
// value for the current period, the immediately preceding period, and the
// percent change between them.
type Envelope struct {
	Current  float64 `json:"current"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// PercentChange computes the period-over-period change in percent.
//
// A zero previous period would divide by zero, so it is special-cased: both
// periods zero reads as no change (0); growth from zero reads as +100. The
// result is always finite.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		if current == 0 {
			return 0
		}
		return 100
	}
	return ((current - previous) / previous) * 100
}

// Round applies a rounding mode to a value.
func Round(value float64, mode Rounding) float64 {
	switch mode {
	case RoundInt:
		return math.Round(value)
	case RoundTenth:
		return math.Round(value*10) / 10
	default:
		return value
	}
}

// NewEnvelope builds an envelope from raw current/previous values, rounding
// all three fields with the given mode.
func NewEnvelope(current, previous float64, mode Rounding) Envelope {
	return Envelope{
		Current:  Round(current, mode),
		Previous: Round(previous, mode),
		Change:   Round(PercentChange(current, previous), mode),
	}
}
