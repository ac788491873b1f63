package backtest

import (
	"fmt"
	"math"
	"time"
)

// OpenFrom and OpenTo leave a side of a date window unbounded.
const (
	OpenFrom int64 = math.MinInt64
	OpenTo   int64 = math.MaxInt64
)

// InvalidRangeError reports a date window whose start is after its end.
type InvalidRangeError struct {
	From int64
	To   int64
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid date range: from %s is after to %s",
		time.Unix(e.From, 0).UTC().Format(time.RFC3339),
		time.Unix(e.To, 0).UTC().Format(time.RFC3339))
}

// FilterByDateRange keeps the trades opened at or after from and closed at
// or before to. Both bounds are unix seconds and inclusive.
func FilterByDateRange(trades []Trade, from, to int64) ([]Trade, error) {
	if from > to {
		return nil, &InvalidRangeError{From: from, To: to}
	}
	out := []Trade{}
	for _, t := range trades {
		if t.BuyTime >= from && t.SellTime <= to {
			out = append(out, t)
		}
	}
	return out, nil
}

// RangeSummary is the summary of the trades inside a date window.
type RangeSummary struct {
	From    int64   `json:"from"`
	To      int64   `json:"to"`
	Trades  []Trade `json:"trades"`
	Summary Summary `json:"summary"`
}

// RangeStats filters trades to [from, to] and summarizes what is left.
func RangeStats(trades []Trade, from, to int64, mode AggregationMode) (RangeSummary, error) {
	in, err := FilterByDateRange(trades, from, to)
	if err != nil {
		return RangeSummary{}, err
	}
	s, err := SummarizeWith(in, mode)
	if err != nil {
		return RangeSummary{}, err
	}
	return RangeSummary{From: from, To: to, Trades: in, Summary: s}, nil
}
