package backtest

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// AggregationMode names how per-trade percentage returns are combined.
type AggregationMode string

const (
	// AggregateSum adds per-trade percentage returns. It is neither
	// weighted nor compounded.
	AggregateSum AggregationMode = "sum"

	// AggregateCompound chains per-trade returns geometrically. It is only
	// used when asked for by name.
	AggregateCompound AggregationMode = "compound"
)

var ErrUnknownAggregation = errors.New("unknown aggregation mode")

// ParseAggregationMode maps a config or flag value to a mode. Empty means sum.
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch AggregationMode(s) {
	case "", AggregateSum:
		return AggregateSum, nil
	case AggregateCompound:
		return AggregateCompound, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAggregation, s)
	}
}

func (m AggregationMode) aggregate(pcts []float64) (float64, error) {
	switch m {
	case AggregateSum:
		total := 0.0
		for _, p := range pcts {
			total += p
		}
		return total, nil
	case AggregateCompound:
		growth := 1.0
		for _, p := range pcts {
			growth *= 1 + p/100
		}
		return (growth - 1) * 100, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownAggregation, string(m))
	}
}

// Summary holds the headline statistics of a trade list. Values are not
// rounded; that happens when they are printed.
type Summary struct {
	TotalTrades     int             `json:"total_trades"`
	Wins            int             `json:"wins"`
	Losses          int             `json:"losses"`
	WinRatePct      float64         `json:"win_rate_pct"`
	TotalReturns    float64         `json:"total_returns"`
	TotalPctReturns float64         `json:"total_pct_returns"`
	Mode            AggregationMode `json:"aggregation"`
}

// Summarize reduces trades with AggregateSum.
func Summarize(trades []Trade) Summary {
	s, _ := SummarizeWith(trades, AggregateSum)
	return s
}

// SummarizeWith reduces trades, combining percentage returns with mode.
func SummarizeWith(trades []Trade, mode AggregationMode) (Summary, error) {
	s := Summary{TotalTrades: len(trades), Mode: mode}
	pcts := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.Outcome == Profit {
			s.Wins++
		}
		s.TotalReturns += t.Returns
		pcts = append(pcts, t.PctReturns)
	}
	s.Losses = s.TotalTrades - s.Wins
	if s.TotalTrades > 0 {
		s.WinRatePct = float64(s.Wins) / float64(s.TotalTrades) * 100
	}

	total, err := mode.aggregate(pcts)
	if err != nil {
		return Summary{}, err
	}
	s.TotalPctReturns = total
	return s, nil
}

// YearlyBucket sums the trades closed in one calendar year. The bucket with
// Total set spans every year.
type YearlyBucket struct {
	Year            int     `json:"year,omitempty"`
	Total           bool    `json:"total,omitempty"`
	TradeCount      int     `json:"trades"`
	TotalReturns    float64 `json:"total_returns"`
	TotalPctReturns float64 `json:"total_pct_returns"`
}

// Label is the year, or "Total" for the synthetic bucket.
func (b YearlyBucket) Label() string {
	if b.Total {
		return "Total"
	}
	return fmt.Sprintf("%d", b.Year)
}

// BucketByYear groups trades by the UTC calendar year of their sell time.
func BucketByYear(trades []Trade) []YearlyBucket {
	return BucketByYearIn(trades, time.UTC)
}

// BucketByYearIn groups trades by the calendar year of their sell time in
// loc. Buckets are sorted by year and followed by a Total bucket.
func BucketByYearIn(trades []Trade, loc *time.Location) []YearlyBucket {
	if loc == nil {
		loc = time.UTC
	}

	byYear := make(map[int]*YearlyBucket)
	for _, t := range trades {
		y := time.Unix(t.SellTime, 0).In(loc).Year()
		b, ok := byYear[y]
		if !ok {
			b = &YearlyBucket{Year: y}
			byYear[y] = b
		}
		b.TradeCount++
		b.TotalReturns += t.Returns
		b.TotalPctReturns += t.PctReturns
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]YearlyBucket, 0, len(years)+1)
	total := YearlyBucket{Total: true}
	for _, y := range years {
		b := *byYear[y]
		out = append(out, b)
		total.TradeCount += b.TradeCount
		total.TotalReturns += b.TotalReturns
		total.TotalPctReturns += b.TotalPctReturns
	}
	return append(out, total)
}
