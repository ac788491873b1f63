package feed

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradelog/market"
)

// DatasetSchema is the layout SQLiteCandles reads from.
const DatasetSchema = `
CREATE TABLE IF NOT EXISTS candles (
	symbol TEXT NOT NULL,
	interval TEXT NOT NULL,
	time INTEGER NOT NULL,
	open REAL NOT NULL,
	high REAL NOT NULL,
	low REAL NOT NULL,
	close REAL NOT NULL,
	volume REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (symbol, interval, time)
);
`

// SQLiteCandles serves candles from a SQLite dataset opened read-only.
type SQLiteCandles struct {
	db *sql.DB
}

// OpenSQLite opens the dataset at path in read-only mode.
func OpenSQLite(path string) (*SQLiteCandles, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open dataset %s: %w", path, err)
	}
	return &SQLiteCandles{db: db}, nil
}

func (s *SQLiteCandles) Name() string { return "sqlite" }

func (s *SQLiteCandles) Candles(ctx context.Context, q Query) ([]market.Candle, error) {
	from, to := int64(math.MinInt64), int64(math.MaxInt64)
	if !q.From.IsZero() {
		from = q.From.Unix()
	}
	if !q.To.IsZero() {
		to = q.To.Unix()
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ? AND time >= ? AND time < ?
		ORDER BY time ASC`, q.Symbol, q.Interval, from, to)
	if err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	defer rows.Close()

	var out []market.Candle
	for rows.Next() {
		var c market.Candle
		if err := rows.Scan(&c.Time, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, &ProviderError{Provider: s.Name(), Err: err}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, &ProviderError{Provider: s.Name(), Err: err}
	}
	return out, nil
}

func (s *SQLiteCandles) Close() error {
	return s.db.Close()
}
