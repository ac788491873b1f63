// Package journal exports backtest results as CSV files.
package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rustyeddy/tradelog/backtest"
)

var (
	tradeHeader  = []string{"trade", "buy_time", "buy_price", "sell_time", "sell_price", "returns", "pct_returns", "outcome"}
	yearlyHeader = []string{"year", "trades", "total_returns", "total_pct_returns"}
)

// CSVWriter writes a trade log and a yearly breakdown into Dir as
// <prefix>_trades.csv and <prefix>_yearly.csv.
type CSVWriter struct {
	Dir string
}

// Paths returns the trade log and yearly file paths for prefix.
func (c CSVWriter) Paths(prefix string) (trades, yearly string) {
	return filepath.Join(c.Dir, prefix+"_trades.csv"), filepath.Join(c.Dir, prefix+"_yearly.csv")
}

// WriteReport exports rep under a prefix of symbol, interval and run ID.
func (c CSVWriter) WriteReport(rep *backtest.Report) (trades, yearly string, err error) {
	prefix := rep.Symbol + "_" + rep.Interval + "_" + rep.RunID
	trades, yearly = c.Paths(prefix)
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return "", "", err
	}
	if err := writeFile(trades, func(w *csv.Writer) error { return WriteTrades(w, rep.Trades) }); err != nil {
		return "", "", err
	}
	if err := writeFile(yearly, func(w *csv.Writer) error { return WriteYearly(w, rep.Yearly) }); err != nil {
		return "", "", err
	}
	return trades, yearly, nil
}

// WriteTrades writes the header and one row per trade. Times are RFC3339
// in UTC.
func WriteTrades(w *csv.Writer, trades []backtest.Trade) error {
	if err := w.Write(tradeHeader); err != nil {
		return err
	}
	for i, t := range trades {
		err := w.Write([]string{
			strconv.Itoa(i + 1),
			t.BuyDate().Format(time.RFC3339),
			f(t.BuyPrice),
			t.SellDate().Format(time.RFC3339),
			f(t.SellPrice),
			f(t.Returns),
			f(t.PctReturns),
			t.Outcome.String(),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// WriteYearly writes the header and one row per bucket, Total last.
func WriteYearly(w *csv.Writer, buckets []backtest.YearlyBucket) error {
	if err := w.Write(yearlyHeader); err != nil {
		return err
	}
	for _, b := range buckets {
		err := w.Write([]string{
			b.Label(),
			strconv.Itoa(b.TradeCount),
			f(b.TotalReturns),
			f(b.TotalPctReturns),
		})
		if err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeFile(path string, fn func(*csv.Writer) error) error {
	fh, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(csv.NewWriter(fh)); err != nil {
		fh.Close()
		return err
	}
	return fh.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
