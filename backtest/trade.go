package backtest

import (
	"fmt"
	"time"
)

// Outcome classifies a closed trade.
type Outcome int

const (
	Loss Outcome = iota
	Profit
)

func (o Outcome) String() string {
	if o == Profit {
		return "Profit"
	}
	return "Loss"
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "Profit":
		*o = Profit
	case "Loss":
		*o = Loss
	default:
		return fmt.Errorf("unknown outcome %q", b)
	}
	return nil
}

// Trade is one matched buy/sell pair. Trades are values and are never
// modified once the matcher has produced them.
type Trade struct {
	BuyTime    int64   `json:"buy_time"`
	SellTime   int64   `json:"sell_time"`
	BuyPrice   float64 `json:"buy_price"`
	SellPrice  float64 `json:"sell_price"`
	Returns    float64 `json:"returns"`
	PctReturns float64 `json:"pct_returns"`
	Outcome    Outcome `json:"outcome"`
}

// NewTrade derives returns, percentage returns and outcome from the two legs.
// A trade is a profit only when returns are strictly positive.
func NewTrade(buyTime int64, buyPrice float64, sellTime int64, sellPrice float64) Trade {
	returns := sellPrice - buyPrice
	outcome := Loss
	if returns > 0 {
		outcome = Profit
	}
	return Trade{
		BuyTime:    buyTime,
		SellTime:   sellTime,
		BuyPrice:   buyPrice,
		SellPrice:  sellPrice,
		Returns:    returns,
		PctReturns: returns / buyPrice * 100,
		Outcome:    outcome,
	}
}

func (t Trade) BuyDate() time.Time  { return time.Unix(t.BuyTime, 0).UTC() }
func (t Trade) SellDate() time.Time { return time.Unix(t.SellTime, 0).UTC() }

func (t Trade) String() string {
	return fmt.Sprintf("buy %s @ %.2f, sell %s @ %.2f: %.2f (%.2f%%) %s",
		t.BuyDate().Format(time.DateOnly), t.BuyPrice,
		t.SellDate().Format(time.DateOnly), t.SellPrice,
		t.Returns, t.PctReturns, t.Outcome)
}
