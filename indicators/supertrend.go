package indicators

import (
	"github.com/rustyeddy/tradelog/market"
)

// Trend is the direction a Supertrend line is tracking.
type Trend int

const (
	TrendDown Trend = iota
	TrendUp
)

func (t Trend) String() string {
	if t == TrendUp {
		return "up"
	}
	return "down"
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SupertrendPoint is a Supertrend value with the bands it was chosen from.
// Value is Lower while the trend is up and Upper while it is down.
type SupertrendPoint struct {
	Point
	Trend Trend   `json:"trend"`
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Supertrend calculates the Supertrend overlay from ApproxATR bands around
// each candle's HL2.
//
// At index period the trend starts up if the close is above the upper band.
// Afterwards it flips up when the previous close is above the current upper
// band, flips down when the previous close is below the current lower band,
// and holds otherwise. Indices below period produce no point.
func Supertrend(candles []market.Candle, period int, multiplier float64) ([]SupertrendPoint, error) {
	if err := checkPositive("Supertrend", "period", period); err != nil {
		return nil, err
	}
	if err := checkMultiplier("Supertrend", multiplier); err != nil {
		return nil, err
	}
	if len(candles) <= period {
		return []SupertrendPoint{}, nil
	}

	atr, err := ApproxATR(candles, period)
	if err != nil {
		return nil, err
	}

	out := make([]SupertrendPoint, 0, len(candles)-period)
	trend := TrendDown
	for i := period; i < len(candles); i++ {
		hl2 := candles[i].HL2()
		upper := hl2 + multiplier*atr[i]
		lower := hl2 - multiplier*atr[i]

		if i == period {
			if candles[i].Close > upper {
				trend = TrendUp
			} else {
				trend = TrendDown
			}
		} else {
			prevClose := candles[i-1].Close
			if prevClose > upper {
				trend = TrendUp
			} else if prevClose < lower {
				trend = TrendDown
			}
		}

		value := upper
		if trend == TrendUp {
			value = lower
		}
		out = append(out, SupertrendPoint{
			Point: Point{Time: candles[i].Time, Value: value},
			Trend: trend,
			Upper: upper,
			Lower: lower,
		})
	}
	return out, nil
}

// Line drops the band detail, leaving the plotted series.
func Line(points []SupertrendPoint) []Point {
	out := make([]Point, len(points))
	for i, p := range points {
		out[i] = p.Point
	}
	return out
}
