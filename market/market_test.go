package market

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandleTimestampAndHL2(t *testing.T) {
	c := Candle{Time: 1704067200, High: 12, Low: 8}
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), c.Timestamp())
	assert.Equal(t, 10.0, c.HL2())
}

func TestValidateCandles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		candles []Candle
		errMsg  string
	}{
		{name: "empty"},
		{
			name: "ok",
			candles: []Candle{
				{Time: 1, Open: 10, High: 11, Low: 9, Close: 10.5},
				{Time: 2, Open: 10.5, High: 12, Low: 10, Close: 11},
			},
		},
		{
			name: "duplicate time",
			candles: []Candle{
				{Time: 1, Open: 10, High: 11, Low: 9, Close: 10},
				{Time: 1, Open: 10, High: 11, Low: 9, Close: 10},
			},
			errMsg: "not after",
		},
		{
			name:    "high below low",
			candles: []Candle{{Time: 1, Open: 10, High: 9, Low: 11, Close: 10}},
			errMsg:  "below low",
		},
		{
			name:    "close above high",
			candles: []Candle{{Time: 1, Open: 10, High: 11, Low: 9, Close: 12}},
			errMsg:  "below open/close",
		},
		{
			name:    "open below low",
			candles: []Candle{{Time: 1, Open: 8, High: 11, Low: 9, Close: 10}},
			errMsg:  "above open/close",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandles(tt.candles)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSignalKindText(t *testing.T) {
	k, err := ParseSignalKind(" BUY ")
	require.NoError(t, err)
	assert.Equal(t, Buy, k)

	_, err = ParseSignalKind("hold")
	assert.Error(t, err)

	var sig Signal
	require.NoError(t, json.Unmarshal([]byte(`{"time":5,"signal":"sell","price":101.5}`), &sig))
	assert.Equal(t, Sell, sig.Kind)
	require.NotNil(t, sig.Price)
	assert.Equal(t, 101.5, *sig.Price)

	b, err := json.Marshal(Signal{Time: 1, Kind: Buy})
	require.NoError(t, err)
	assert.JSONEq(t, `{"time":1,"signal":"buy"}`, string(b))

	_, err = json.Marshal(Signal{Time: 1})
	assert.Error(t, err)
}

func TestSplitSignals(t *testing.T) {
	signals := []Signal{
		{Time: 5, Kind: Sell},
		{Time: 3, Kind: Buy},
		{Time: 2, Kind: Sell},
		{Time: 1, Kind: Buy},
		{Time: 9, Kind: SignalKind(7)},
	}
	buys, sells := SplitSignals(signals)
	require.Len(t, buys, 2)
	require.Len(t, sells, 2)
	assert.Equal(t, int64(1), buys[0].Time)
	assert.Equal(t, int64(3), buys[1].Time)
	assert.Equal(t, int64(2), sells[0].Time)
	assert.Equal(t, int64(5), sells[1].Time)

	// input is untouched
	assert.Equal(t, int64(5), signals[0].Time)
}

func TestIntervals(t *testing.T) {
	assert.NoError(t, ValidateInterval("1d"))
	err := ValidateInterval("3d")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1wk")

	assert.True(t, IsIntraday("5m"))
	assert.False(t, IsIntraday("1h"))
	assert.Equal(t, "60d", HistoryRange("90m"))
	assert.Equal(t, "max", HistoryRange("1d"))
}
