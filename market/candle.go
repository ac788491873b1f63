package market

import (
	"fmt"
	"time"
)

// Candle represents OHLC (Open, High, Low, Close) candlestick data.
// Time is the candle open in unix seconds.
type Candle struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// Timestamp returns the candle time in UTC.
func (c Candle) Timestamp() time.Time {
	return time.Unix(c.Time, 0).UTC()
}

// HL2 is the midpoint of the candle range.
func (c Candle) HL2() float64 {
	return (c.High + c.Low) / 2
}

// ByTime indexes candles by their open time.
func ByTime(candles []Candle) map[int64]Candle {
	m := make(map[int64]Candle, len(candles))
	for _, c := range candles {
		m[c.Time] = c
	}
	return m
}

// ValidateCandles checks that times are strictly increasing and that every
// candle's high and low bound its open and close.
func ValidateCandles(candles []Candle) error {
	for i, c := range candles {
		if i > 0 && c.Time <= candles[i-1].Time {
			return fmt.Errorf("candle %d: time %d not after %d", i, c.Time, candles[i-1].Time)
		}
		if c.High < c.Low {
			return fmt.Errorf("candle %d: high %g below low %g", i, c.High, c.Low)
		}
		if c.High < c.Open || c.High < c.Close {
			return fmt.Errorf("candle %d: high %g below open/close", i, c.High)
		}
		if c.Low > c.Open || c.Low > c.Close {
			return fmt.Errorf("candle %d: low %g above open/close", i, c.Low)
		}
	}
	return nil
}
