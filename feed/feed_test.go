package feed

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/tradelog/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestCSVCandles(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "AAPL_1d.csv", `time,open,high,low,close,volume
2024-01-03,11,12,10,11.5,
1704067200,10,11,9,10.5,100

2024-01-02T00:00:00Z,10.5,11.5,10,11,200
`)
	f := &CSVCandles{Path: filepath.Join(filepath.Dir(path), "{symbol}_{interval}.csv")}
	candles, err := f.Candles(context.Background(), Query{Symbol: "AAPL", Interval: "1d"})
	require.NoError(t, err)
	require.Len(t, candles, 3)

	assert.Equal(t, int64(1704067200), candles[0].Time)
	assert.Equal(t, 100.0, candles[0].Volume)
	assert.Equal(t, int64(1704153600), candles[1].Time)
	assert.Equal(t, int64(1704240000), candles[2].Time)
	assert.Equal(t, 11.5, candles[2].Close)
	assert.Equal(t, 0.0, candles[2].Volume)

	windowed, err := f.Candles(context.Background(), Query{
		Symbol:   "AAPL",
		Interval: "1d",
		From:     time.Unix(1704153600, 0),
		To:       time.Unix(1704240000, 0),
	})
	require.NoError(t, err)
	require.Len(t, windowed, 1)
	assert.Equal(t, int64(1704153600), windowed[0].Time)
}

func TestCSVCandlesErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
		want string
	}{
		{"short row", "1,2,3\n", "got 3 fields"},
		{"bad number", "1,a,2,1,2\n", "bad number"},
		{"bad time", "yesterday,1,2,1,2\n", "bad time"},
		{"inconsistent", "1,5,4,3,5\n", "below open/close"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &CSVCandles{Path: writeFile(t, "c.csv", tt.body)}
			_, err := f.Candles(context.Background(), Query{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)

			var pe *ProviderError
			assert.True(t, errors.As(err, &pe))
		})
	}

	_, err := (&CSVCandles{Path: filepath.Join(t.TempDir(), "missing.csv")}).Candles(context.Background(), Query{})
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestCSVSignals(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "signals.csv", `time,signal,price
1,buy,100
2,SELL,
3,buy,90.5
`)
	sigs, err := (&CSVSignals{Path: path}).Signals(context.Background(), Query{}, nil)
	require.NoError(t, err)
	require.Len(t, sigs, 3)

	assert.Equal(t, market.Buy, sigs[0].Kind)
	require.NotNil(t, sigs[0].Price)
	assert.Equal(t, 100.0, *sigs[0].Price)
	assert.Equal(t, market.Sell, sigs[1].Kind)
	assert.Nil(t, sigs[1].Price)
	assert.Equal(t, 90.5, *sigs[2].Price)

	bad := writeFile(t, "bad.csv", "1,hold\n")
	_, err = (&CSVSignals{Path: bad}).Signals(context.Background(), Query{}, nil)
	assert.ErrorContains(t, err, "unknown signal kind")

	empty := writeFile(t, "empty.csv", "time,signal,price\n")
	sigs, err = (&CSVSignals{Path: empty}).Signals(context.Background(), Query{}, nil)
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func createDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.sqlite")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(DatasetSchema)
	require.NoError(t, err)

	rows := []struct {
		symbol string
		t      int64
		c      float64
	}{
		{"AAPL", 300, 12}, {"AAPL", 100, 10}, {"AAPL", 200, 11}, {"MSFT", 100, 50},
	}
	for _, r := range rows {
		_, err := db.Exec(`INSERT INTO candles (symbol, interval, time, open, high, low, close, volume)
			VALUES (?, '1d', ?, ?, ?, ?, ?, 0)`, r.symbol, r.t, r.c, r.c+1, r.c-1, r.c)
		require.NoError(t, err)
	}
	return path
}

func TestSQLiteCandles(t *testing.T) {
	t.Parallel()

	ds, err := OpenSQLite(createDataset(t))
	require.NoError(t, err)
	defer ds.Close()

	candles, err := ds.Candles(context.Background(), Query{Symbol: "AAPL", Interval: "1d"})
	require.NoError(t, err)
	require.Len(t, candles, 3)
	assert.Equal(t, []int64{100, 200, 300}, []int64{candles[0].Time, candles[1].Time, candles[2].Time})
	assert.Equal(t, 11.0, candles[1].Close)
	assert.Equal(t, 12.0, candles[1].High)

	candles, err = ds.Candles(context.Background(), Query{
		Symbol: "AAPL", Interval: "1d", From: time.Unix(150, 0), To: time.Unix(300, 0),
	})
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(200), candles[0].Time)

	candles, err = ds.Candles(context.Background(), Query{Symbol: "TSLA", Interval: "1d"})
	require.NoError(t, err)
	assert.Empty(t, candles)
}

func TestOpenSQLiteMissingFile(t *testing.T) {
	_, err := OpenSQLite(filepath.Join(t.TempDir(), "nope.sqlite"))
	assert.Error(t, err)
}

type stubProvider struct {
	name    string
	candles []market.Candle
	err     error
	calls   int
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Candles(context.Context, Query) ([]market.Candle, error) {
	s.calls++
	return s.candles, s.err
}

func TestFallback(t *testing.T) {
	failing := &stubProvider{name: "a", err: &ProviderError{Provider: "a", Err: errors.New("down"), Retryable: true}}
	empty := &stubProvider{name: "b"}
	good := &stubProvider{name: "c", candles: []market.Candle{{Time: 1, Close: 1}}}

	f := NewFallback(failing, nil, empty, good)
	candles, err := f.Candles(context.Background(), Query{})
	require.NoError(t, err)
	assert.Len(t, candles, 1)
	assert.Equal(t, 1, failing.calls)
	assert.Equal(t, 1, empty.calls)

	_, err = NewFallback(failing).Candles(context.Background(), Query{})
	assert.ErrorContains(t, err, "down")

	_, err = NewFallback(empty).Candles(context.Background(), Query{})
	assert.True(t, errors.Is(err, ErrNoCandles))
}

func TestQueryContains(t *testing.T) {
	q := Query{From: time.Unix(10, 0), To: time.Unix(20, 0)}
	assert.False(t, q.Contains(9))
	assert.True(t, q.Contains(10))
	assert.True(t, q.Contains(19))
	assert.False(t, q.Contains(20))
	assert.True(t, Query{}.Contains(-5))
}
