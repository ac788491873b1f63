package feed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/tradelog/market"
)

// CSVCandles reads candles from a CSV file with rows
//
//	time,open,high,low,close[,volume]
//
// where time is unix seconds, RFC3339 or a YYYY-MM-DD date. A header row
// starting with "time" is allowed and empty rows are skipped. Path may
// contain {symbol} and {interval}, which are filled in from the query.
type CSVCandles struct {
	Path string
}

func (f *CSVCandles) Name() string { return "csv" }

func (f *CSVCandles) Candles(ctx context.Context, q Query) ([]market.Candle, error) {
	rows, err := readCSV(expandPath(f.Path, q))
	if err != nil {
		return nil, &ProviderError{Provider: f.Name(), Err: err}
	}

	var out []market.Candle
	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c, err := parseCandleRow(row)
		if err != nil {
			return nil, &ProviderError{Provider: f.Name(), Err: fmt.Errorf("row %d: %w", n+1, err)}
		}
		if q.Contains(c.Time) {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Time < out[j].Time })
	if err := market.ValidateCandles(out); err != nil {
		return nil, &ProviderError{Provider: f.Name(), Err: err}
	}
	return out, nil
}

// CSVSignals reads externally generated signals from rows
//
//	time,signal[,price]
//
// where signal is "buy" or "sell".
type CSVSignals struct {
	Path string
}

func (f *CSVSignals) Name() string { return "csv-signals" }

func (f *CSVSignals) Signals(ctx context.Context, q Query, _ []market.Candle) ([]market.Signal, error) {
	rows, err := readCSV(expandPath(f.Path, q))
	if err != nil {
		return nil, &ProviderError{Provider: f.Name(), Err: err}
	}

	out := []market.Signal{}
	for n, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if len(row) < 2 {
			return nil, &ProviderError{Provider: f.Name(), Err: fmt.Errorf("row %d: want time,signal[,price]", n+1)}
		}
		ts, err := parseTime(row[0])
		if err != nil {
			return nil, &ProviderError{Provider: f.Name(), Err: fmt.Errorf("row %d: %w", n+1, err)}
		}
		kind, err := market.ParseSignalKind(row[1])
		if err != nil {
			return nil, &ProviderError{Provider: f.Name(), Err: fmt.Errorf("row %d: %w", n+1, err)}
		}
		sig := market.Signal{Time: ts, Kind: kind}
		if len(row) > 2 && strings.TrimSpace(row[2]) != "" {
			p, err := strconv.ParseFloat(strings.TrimSpace(row[2]), 64)
			if err != nil {
				return nil, &ProviderError{Provider: f.Name(), Err: fmt.Errorf("row %d: bad price %q: %w", n+1, row[2], err)}
			}
			sig.Price = &p
		}
		if q.Contains(ts) {
			out = append(out, sig)
		}
	}
	return out, nil
}

func expandPath(path string, q Query) string {
	return strings.NewReplacer("{symbol}", q.Symbol, "{interval}", q.Interval).Replace(path)
}

// readCSV returns the data rows of a file, without a leading "time" header
// and without empty rows.
func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	first := true
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if first {
			first = false
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseCandleRow(row []string) (market.Candle, error) {
	if len(row) < 5 {
		return market.Candle{}, fmt.Errorf("want time,open,high,low,close[,volume], got %d fields", len(row))
	}
	ts, err := parseTime(row[0])
	if err != nil {
		return market.Candle{}, err
	}

	var vals [5]float64
	for i := 1; i < len(row) && i <= 5; i++ {
		s := strings.TrimSpace(row[i])
		if i == 5 && s == "" {
			continue
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return market.Candle{}, fmt.Errorf("bad number %q: %w", row[i], err)
		}
		vals[i-1] = v
	}
	return market.Candle{
		Time:   ts,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// parseTime accepts unix seconds, RFC3339 (with or without fractional
// seconds) or a bare date taken as midnight UTC.
func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty time")
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.Unix(), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t.Unix(), nil
	}
	return 0, fmt.Errorf("bad time %q", s)
}
