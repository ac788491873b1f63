package market

import (
	"fmt"
	"sort"
	"strings"
)

// SignalKind tells whether a signal opens (buy) or closes (sell) a position.
type SignalKind int

const (
	Buy SignalKind = iota + 1
	Sell
)

func (k SignalKind) String() string {
	switch k {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return fmt.Sprintf("SignalKind(%d)", int(k))
	}
}

// ParseSignalKind accepts "buy" or "sell" in any case.
func ParseSignalKind(s string) (SignalKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, fmt.Errorf("unknown signal kind %q", s)
	}
}

func (k SignalKind) MarshalText() ([]byte, error) {
	if k != Buy && k != Sell {
		return nil, fmt.Errorf("invalid signal kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *SignalKind) UnmarshalText(b []byte) error {
	v, err := ParseSignalKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// Signal is a buy or sell marker produced upstream of the backtester.
// Price is an optional fallback used when no candle exists at Time.
type Signal struct {
	Time  int64      `json:"time"`
	Kind  SignalKind `json:"signal"`
	Price *float64   `json:"price,omitempty"`
}

// NewSignal returns a signal carrying a fallback price.
func NewSignal(t int64, kind SignalKind, price float64) Signal {
	return Signal{Time: t, Kind: kind, Price: &price}
}

// SplitSignals partitions signals by kind, each side sorted ascending by
// time. The sort is stable so equal times keep their input order.
func SplitSignals(signals []Signal) (buys, sells []Signal) {
	for _, s := range signals {
		switch s.Kind {
		case Buy:
			buys = append(buys, s)
		case Sell:
			sells = append(sells, s)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool { return buys[i].Time < buys[j].Time })
	sort.SliceStable(sells, func(i, j int) bool { return sells[i].Time < sells[j].Time })
	return buys, sells
}
