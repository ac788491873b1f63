package indicators

import (
	"github.com/rustyeddy/tradelog/market"
)

// EMA calculates the Exponential Moving Average of closes for every candle
// from index length-1 on.
//
// The first value is the simple average of the first length closes; after
// that ema = close*k + prev*(1-k) with k = 2/(length+1). A series shorter
// than length yields an empty result.
func EMA(candles []market.Candle, length int) ([]Point, error) {
	if err := checkPositive("EMA", "length", length); err != nil {
		return nil, err
	}
	if len(candles) < length {
		return []Point{}, nil
	}

	k := 2.0 / float64(length+1)
	out := make([]Point, 0, len(candles)-length+1)

	sum := 0.0
	for i := 0; i < length; i++ {
		sum += candles[i].Close
	}
	ema := sum / float64(length)
	out = append(out, Point{Time: candles[length-1].Time, Value: ema})

	for i := length; i < len(candles); i++ {
		ema = candles[i].Close*k + ema*(1-k)
		out = append(out, Point{Time: candles[i].Time, Value: ema})
	}
	return out, nil
}
