package backtest

import (
	"fmt"

	"github.com/rustyeddy/tradelog/market"
)

// MatchPolicy names the rule used to pair buy and sell signals.
type MatchPolicy string

const (
	// PolicyGreedyNearestSell closes each buy, in time order, with the first
	// unused sell strictly after it. It does not search for an optimal
	// pairing and it does not model overlapping positions or partial fills.
	PolicyGreedyNearestSell MatchPolicy = "greedy-nearest-sell"
)

// Matcher turns a signal list into closed trades.
type Matcher interface {
	Policy() MatchPolicy
	Match(candles []market.Candle, signals []market.Signal) ([]Trade, error)
}

// MatcherFor returns the matcher implementing policy. An empty policy
// selects the greedy matcher.
func MatcherFor(policy MatchPolicy) (Matcher, error) {
	switch policy {
	case "", PolicyGreedyNearestSell:
		return GreedyNearestSell{}, nil
	default:
		return nil, fmt.Errorf("unknown match policy %q (supported: %s)", policy, PolicyGreedyNearestSell)
	}
}

// PriceUnavailableError reports a signal with no candle at its time and no
// price of its own.
type PriceUnavailableError struct {
	Time int64
	Kind market.SignalKind
}

func (e *PriceUnavailableError) Error() string {
	return fmt.Sprintf("no price for %s signal at %d: no candle and no signal price", e.Kind, e.Time)
}

// GreedyNearestSell implements PolicyGreedyNearestSell.
type GreedyNearestSell struct{}

func (GreedyNearestSell) Policy() MatchPolicy { return PolicyGreedyNearestSell }

// Match pairs buys and sells with a two-pointer scan. For each buy the sell
// cursor skips every sell at or before the buy; the first remaining sell
// closes the trade and both cursors advance. Once sells run out the
// remaining buys stay open and are dropped.
//
// Prices come from the close of the candle at the signal time, falling back
// to the price the signal carries.
func (GreedyNearestSell) Match(candles []market.Candle, signals []market.Signal) ([]Trade, error) {
	buys, sells := market.SplitSignals(signals)
	trades := []Trade{}
	if len(buys) == 0 || len(sells) == 0 {
		return trades, nil
	}

	byTime := market.ByTime(candles)

	i, j := 0, 0
	for i < len(buys) && j < len(sells) {
		for j < len(sells) && sells[j].Time <= buys[i].Time {
			j++
		}
		if j == len(sells) {
			break
		}

		buy, sell := buys[i], sells[j]
		buyPrice, err := resolvePrice(byTime, buy)
		if err != nil {
			return nil, err
		}
		sellPrice, err := resolvePrice(byTime, sell)
		if err != nil {
			return nil, err
		}

		trades = append(trades, NewTrade(buy.Time, buyPrice, sell.Time, sellPrice))
		i++
		j++
	}
	return trades, nil
}

// MatchTrades runs the greedy nearest-sell policy.
func MatchTrades(candles []market.Candle, signals []market.Signal) ([]Trade, error) {
	return GreedyNearestSell{}.Match(candles, signals)
}

func resolvePrice(byTime map[int64]market.Candle, s market.Signal) (float64, error) {
	if c, ok := byTime[s.Time]; ok {
		return c.Close, nil
	}
	if s.Price != nil {
		return *s.Price, nil
	}
	return 0, &PriceUnavailableError{Time: s.Time, Kind: s.Kind}
}
