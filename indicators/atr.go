package indicators

import (
	"math"

	"github.com/rustyeddy/tradelog/market"
)

// TrueRange returns the true range of every candle. The first candle has no
// previous close, so its range is high-low.
func TrueRange(candles []market.Candle) []float64 {
	tr := make([]float64, len(candles))
	for i := range candles {
		if i == 0 {
			tr[i] = candles[i].High - candles[i].Low
			continue
		}
		tr[i] = trueRange(candles[i], candles[i-1])
	}
	return tr
}

// ApproxATR smooths true range the way the Supertrend overlay expects:
// indices below period keep their raw true range and every later index is
// (atr[i-1]*(period-1) + tr[i]) / period. There is no simple-average seed,
// so this is not Wilder's ATR.
func ApproxATR(candles []market.Candle, period int) ([]float64, error) {
	if err := checkPositive("ATR", "period", period); err != nil {
		return nil, err
	}
	atr := TrueRange(candles)
	p := float64(period)
	for i := period; i < len(atr); i++ {
		atr[i] = (atr[i-1]*(p-1) + atr[i]) / p
	}
	return atr, nil
}

// trueRange calculates the True Range for a candle given the previous candle
func trueRange(current, previous market.Candle) float64 {
	highLow := current.High - current.Low
	highClose := math.Abs(current.High - previous.Close)
	lowClose := math.Abs(current.Low - previous.Close)

	return math.Max(highLow, math.Max(highClose, lowClose))
}
