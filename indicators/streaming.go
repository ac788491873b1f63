package indicators

import (
	"fmt"

	"github.com/rustyeddy/tradelog/market"
)

// ExponentialMA is a streaming Exponential Moving Average seeded with the
// first close it sees, so it carries a value from the first update on.
// This matches an "adjust=False" exponential window and is what crossover
// signals are generated from. The batch EMA, seeded with a simple average,
// is what gets plotted.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
}

// NewExponentialMA creates a streaming EMA with the given period.
func NewExponentialMA(period int) (*ExponentialMA, error) {
	if err := checkPositive("EMA", "period", period); err != nil {
		return nil, err
	}
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}, nil
}

func (e *ExponentialMA) Name() string {
	return fmt.Sprintf("EMA(%d)", e.period)
}

func (e *ExponentialMA) Warmup() int {
	return e.period
}

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
}

func (e *ExponentialMA) Update(c market.Candle) {
	e.count++
	if e.count == 1 {
		e.ema = c.Close
		return
	}
	e.ema = (c.Close-e.ema)*e.multiplier + e.ema
}

// Ready reports whether period closes have been seen.
func (e *ExponentialMA) Ready() bool {
	return e.count >= e.period
}

// Value returns the current average. Unlike most indicators it is defined
// from the first update on; Ready only reports the nominal warmup.
func (e *ExponentialMA) Value() float64 {
	return e.ema
}

var _ Indicator = (*ExponentialMA)(nil)
