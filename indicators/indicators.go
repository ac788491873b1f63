// Package indicators provides technical analysis indicators over candle series.
//
// Batch functions (EMA, RSI, Supertrend) are pure: they take every input
// explicitly, keep no package state and never mutate the candles they read.
// Warm-up indices are left out of their output rather than emitted empty.
package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradelog/market"
)

// Point is one indicator value aligned to a candle time.
type Point struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// Indicator computes a single streaming value from candles.
// It is deterministic and safe to use in replays and backtests.
type Indicator interface {
	// Name returns a stable identifier like "EMA(20)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next closed candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current value, or 0 before Ready().
	Value() float64
}

// InvalidParameterError reports a non-positive length, period or multiplier.
type InvalidParameterError struct {
	Indicator string
	Param     string
	Value     float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("%s: %s must be positive, got %g", e.Indicator, e.Param, e.Value)
}

// InsufficientDataError reports a series shorter than an indicator's lookback.
type InsufficientDataError struct {
	Indicator string
	Need      int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: not enough candles: need %d, got %d", e.Indicator, e.Need, e.Got)
}

// CheckLookback is the pre-check callers run before computing an indicator
// whose output they need to be non-empty.
func CheckLookback(indicator string, candles []market.Candle, need int) error {
	if len(candles) < need {
		return &InsufficientDataError{Indicator: indicator, Need: need, Got: len(candles)}
	}
	return nil
}

func checkPositive(indicator, param string, v int) error {
	if v <= 0 {
		return &InvalidParameterError{Indicator: indicator, Param: param, Value: float64(v)}
	}
	return nil
}

func checkMultiplier(indicator string, m float64) error {
	if math.IsNaN(m) || m <= 0 {
		return &InvalidParameterError{Indicator: indicator, Param: "multiplier", Value: m}
	}
	return nil
}

// Values strips times from a series.
func Values(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}
