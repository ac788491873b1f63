package backtest

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradelog/market"
)

func closes(m map[int64]float64) []market.Candle {
	out := make([]market.Candle, 0, len(m))
	for t, c := range m {
		out = append(out, market.Candle{Time: t, Open: c, High: c, Low: c, Close: c})
	}
	return out
}

func sig(t int64, k market.SignalKind) market.Signal {
	return market.Signal{Time: t, Kind: k}
}

func TestMatchTradesScenario(t *testing.T) {
	t.Parallel()

	candles := closes(map[int64]float64{1: 100, 2: 110, 3: 90, 5: 95})
	signals := []market.Signal{
		sig(5, market.Sell), sig(3, market.Buy), sig(2, market.Sell), sig(1, market.Buy),
	}

	trades, err := MatchTrades(candles, signals)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, int64(1), trades[0].BuyTime)
	assert.Equal(t, int64(2), trades[0].SellTime)
	assert.Equal(t, 10.0, trades[0].Returns)
	assert.InDelta(t, 10.00, trades[0].PctReturns, 0.005)
	assert.Equal(t, Profit, trades[0].Outcome)

	assert.Equal(t, 90.0, trades[1].BuyPrice)
	assert.Equal(t, 95.0, trades[1].SellPrice)
	assert.Equal(t, 5.0, trades[1].Returns)
	assert.InDelta(t, 5.56, trades[1].PctReturns, 0.005)

	s := Summarize(trades)
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 0, s.Losses)
	assert.Equal(t, 100.0, s.WinRatePct)
	assert.Equal(t, 15.0, s.TotalReturns)
	assert.InDelta(t, 15.56, s.TotalPctReturns, 0.005)
	assert.Equal(t, AggregateSum, s.Mode)
}

func TestMatchTradesEdgeCases(t *testing.T) {
	t.Parallel()

	candles := closes(map[int64]float64{1: 10, 2: 11, 3: 12, 4: 13})
	tests := []struct {
		name    string
		signals []market.Signal
		want    [][2]int64
	}{
		{"no signals", nil, nil},
		{"only buys", []market.Signal{sig(1, market.Buy), sig(2, market.Buy)}, nil},
		{"only sells", []market.Signal{sig(1, market.Sell)}, nil},
		{"sell before buy ignored", []market.Signal{sig(1, market.Sell), sig(2, market.Buy), sig(3, market.Sell)}, [][2]int64{{2, 3}}},
		{"same time sell skipped", []market.Signal{sig(2, market.Buy), sig(2, market.Sell), sig(4, market.Sell)}, [][2]int64{{2, 4}}},
		{"open buy dropped", []market.Signal{sig(1, market.Buy), sig(2, market.Sell), sig(3, market.Buy)}, [][2]int64{{1, 2}}},
		{"stacked buys", []market.Signal{sig(1, market.Buy), sig(2, market.Buy), sig(3, market.Sell), sig(4, market.Sell)}, [][2]int64{{1, 3}, {2, 4}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trades, err := MatchTrades(candles, tt.signals)
			require.NoError(t, err)
			require.NotNil(t, trades)
			require.Len(t, trades, len(tt.want))
			for i, w := range tt.want {
				assert.Equal(t, w[0], trades[i].BuyTime)
				assert.Equal(t, w[1], trades[i].SellTime)
			}
		})
	}
}

func TestMatchTradesPriceFallback(t *testing.T) {
	t.Parallel()

	candles := closes(map[int64]float64{1: 100})
	trades, err := MatchTrades(candles, []market.Signal{
		sig(1, market.Buy), market.NewSignal(7, market.Sell, 80),
	})
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, 80.0, trades[0].SellPrice)
	assert.Equal(t, -20.0, trades[0].Returns)
	assert.Equal(t, Loss, trades[0].Outcome)

	_, err = MatchTrades(candles, []market.Signal{sig(1, market.Buy), sig(9, market.Sell)})
	var pue *PriceUnavailableError
	require.True(t, errors.As(err, &pue))
	assert.Equal(t, int64(9), pue.Time)
	assert.Equal(t, market.Sell, pue.Kind)
}

func TestMatchTradesProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))
	for run := 0; run < 50; run++ {
		var candles []market.Candle
		var signals []market.Signal
		nb, ns := 0, 0
		for i := int64(1); i <= 60; i++ {
			c := 50 + rng.Float64()*50
			candles = append(candles, market.Candle{Time: i, Open: c, High: c, Low: c, Close: c})
			switch rng.Intn(4) {
			case 0:
				signals = append(signals, sig(i, market.Buy))
				nb++
			case 1:
				signals = append(signals, sig(i, market.Sell))
				ns++
			}
		}

		trades, err := MatchTrades(candles, signals)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(trades), min(nb, ns))
		for i, tr := range trades {
			assert.Greater(t, tr.SellTime, tr.BuyTime)
			if i > 0 {
				assert.Greater(t, tr.BuyTime, trades[i-1].BuyTime)
			}
		}

		again, err := MatchTrades(candles, signals)
		require.NoError(t, err)
		assert.Equal(t, trades, again)

		s := Summarize(trades)
		assert.Equal(t, s.TotalTrades, s.Wins+s.Losses)

		buckets := BucketByYear(trades)
		n := 0
		for _, b := range buckets[:len(buckets)-1] {
			n += b.TradeCount
		}
		assert.Equal(t, len(trades), n)
		assert.InDelta(t, s.TotalReturns, buckets[len(buckets)-1].TotalReturns, 1e-9)
	}
}

func TestMatcherFor(t *testing.T) {
	m, err := MatcherFor("")
	require.NoError(t, err)
	assert.Equal(t, PolicyGreedyNearestSell, m.Policy())

	m, err = MatcherFor(PolicyGreedyNearestSell)
	require.NoError(t, err)
	assert.IsType(t, GreedyNearestSell{}, m)

	_, err = MatcherFor("optimal")
	assert.ErrorContains(t, err, "unknown match policy")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, Summary{Mode: AggregateSum}, s)
}

func TestSummarizeCompound(t *testing.T) {
	trades := []Trade{NewTrade(1, 100, 2, 110), NewTrade(3, 90, 5, 95)}

	s, err := SummarizeWith(trades, AggregateCompound)
	require.NoError(t, err)
	assert.InDelta(t, 16.111, s.TotalPctReturns, 0.001)
	assert.Equal(t, 15.0, s.TotalReturns)

	_, err = SummarizeWith(trades, "median")
	assert.ErrorIs(t, err, ErrUnknownAggregation)
}

func TestParseAggregationMode(t *testing.T) {
	tests := []struct {
		in      string
		want    AggregationMode
		wantErr bool
	}{
		{"", AggregateSum, false},
		{"sum", AggregateSum, false},
		{"compound", AggregateCompound, false},
		{"geometric", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAggregationMode(tt.in)
		if tt.wantErr {
			assert.ErrorIs(t, err, ErrUnknownAggregation)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func unix(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}

func TestBucketByYear(t *testing.T) {
	t.Parallel()

	trades := []Trade{
		NewTrade(unix(2024, 3, 1), 100, unix(2024, 4, 1), 110),
		NewTrade(unix(2022, 12, 20), 50, unix(2023, 1, 5), 45),
		NewTrade(unix(2024, 6, 1), 100, unix(2024, 7, 1), 102),
	}
	buckets := BucketByYear(trades)
	require.Len(t, buckets, 3)

	assert.Equal(t, 2023, buckets[0].Year)
	assert.Equal(t, 1, buckets[0].TradeCount)
	assert.Equal(t, -5.0, buckets[0].TotalReturns)
	assert.InDelta(t, -10.0, buckets[0].TotalPctReturns, 1e-9)

	assert.Equal(t, "2024", buckets[1].Label())
	assert.Equal(t, 2, buckets[1].TradeCount)
	assert.Equal(t, 12.0, buckets[1].TotalReturns)

	total := buckets[2]
	assert.True(t, total.Total)
	assert.Equal(t, "Total", total.Label())
	assert.Equal(t, 3, total.TradeCount)
	assert.Equal(t, Summarize(trades).TotalReturns, total.TotalReturns)

	empty := BucketByYear(nil)
	require.Len(t, empty, 1)
	assert.True(t, empty[0].Total)
	assert.Zero(t, empty[0].TradeCount)
}

func TestBucketByYearIn(t *testing.T) {
	t.Parallel()

	// 2024-01-01 03:00 UTC is still 2023 in New York.
	tr := NewTrade(unix(2023, 12, 1), 1, unix(2024, 1, 1)+3*3600, 2)
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("no tzdata")
	}
	assert.Equal(t, 2024, BucketByYear([]Trade{tr})[0].Year)
	assert.Equal(t, 2023, BucketByYearIn([]Trade{tr}, ny)[0].Year)
}

func TestFilterByDateRange(t *testing.T) {
	t.Parallel()

	trades := []Trade{
		NewTrade(10, 1, 20, 2),
		NewTrade(20, 1, 30, 2),
		NewTrade(25, 1, 40, 2),
	}

	got, err := FilterByDateRange(trades, 10, 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(10), got[0].BuyTime)
	assert.Equal(t, int64(30), got[1].SellTime)

	got, err = FilterByDateRange(trades, 21, 39)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got, err = FilterByDateRange(trades, 20, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFilterByDateRangeInvalid(t *testing.T) {
	t.Parallel()

	for _, trades := range [][]Trade{nil, {NewTrade(1, 1, 2, 2)}} {
		_, err := FilterByDateRange(trades, 5, 4)
		var ire *InvalidRangeError
		require.True(t, errors.As(err, &ire))
		assert.Equal(t, int64(5), ire.From)
		assert.Equal(t, int64(4), ire.To)
	}
}

func TestRangeStats(t *testing.T) {
	t.Parallel()

	trades := []Trade{NewTrade(10, 100, 20, 110), NewTrade(30, 100, 40, 90)}
	rs, err := RangeStats(trades, 0, 25, AggregateSum)
	require.NoError(t, err)
	assert.Len(t, rs.Trades, 1)
	assert.Equal(t, 1, rs.Summary.Wins)
	assert.Equal(t, 100.0, rs.Summary.WinRatePct)

	_, err = RangeStats(trades, 25, 0, AggregateSum)
	var ire *InvalidRangeError
	assert.True(t, errors.As(err, &ire))
}

func TestTradeJSON(t *testing.T) {
	b, err := json.Marshal(NewTrade(1, 100, 2, 90))
	require.NoError(t, err)
	assert.JSONEq(t, `{"buy_time":1,"sell_time":2,"buy_price":100,"sell_price":90,"returns":-10,"pct_returns":-10,"outcome":"Loss"}`, string(b))
}

func TestTradeBreakEvenIsLoss(t *testing.T) {
	tr := NewTrade(1, 50, 2, 50)
	assert.Equal(t, Loss, tr.Outcome)
	assert.Zero(t, tr.PctReturns)
}
