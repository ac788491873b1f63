package strategies

import (
	"context"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/market"
)

// Noop never signals. Useful to chart candles and overlays without trades.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Signals(context.Context, feed.Query, []market.Candle) ([]market.Signal, error) {
	return []market.Signal{}, nil
}
