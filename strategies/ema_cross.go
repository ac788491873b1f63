package strategies

import (
	"context"
	"fmt"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/market"
)

// EMACross signals on crossings of a short and a long exponential average.
//   - Buy when the short EMA closes above the long one after being at or below it
//   - Sell on the opposite cross
//   - Signal price is the close of the crossing candle
//
// Both averages are seeded with the first close, so a cross can fire as
// early as the second candle.
type EMACross struct {
	Short int
	Long  int
}

// NewEMACross orders the two lengths so the smaller one is Short. Both must
// be positive and different.
func NewEMACross(a, b int) (*EMACross, error) {
	if a < 1 || b < 1 {
		return nil, &indicators.InvalidParameterError{Indicator: "ema-cross", Param: "length", Value: float64(min(a, b))}
	}
	if a == b {
		return nil, fmt.Errorf("ema-cross: short and long length must differ, both are %d", a)
	}
	return &EMACross{Short: min(a, b), Long: max(a, b)}, nil
}

func (s *EMACross) Name() string {
	return fmt.Sprintf("ema-cross(%d,%d)", s.Short, s.Long)
}

func (s *EMACross) Signals(ctx context.Context, _ feed.Query, candles []market.Candle) ([]market.Signal, error) {
	fast, err := indicators.NewExponentialMA(s.Short)
	if err != nil {
		return nil, err
	}
	slow, err := indicators.NewExponentialMA(s.Long)
	if err != nil {
		return nil, err
	}

	out := []market.Signal{}
	var prevFast, prevSlow float64
	for i, c := range candles {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fast.Update(c)
		slow.Update(c)
		f, sl := fast.Value(), slow.Value()

		if i > 0 {
			switch {
			case f > sl && prevFast <= prevSlow:
				out = append(out, market.NewSignal(c.Time, market.Buy, c.Close))
			case f < sl && prevFast >= prevSlow:
				out = append(out, market.NewSignal(c.Time, market.Sell, c.Close))
			}
		}
		prevFast, prevSlow = f, sl
	}
	return out, nil
}

var _ feed.SignalProvider = (*EMACross)(nil)
