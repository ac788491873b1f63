package cmd

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/backtest"
	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/strategies"
	"github.com/rustyeddy/tradelog/yahoo"
)

func newYahoo(c *config.Config, l *zap.Logger) *yahoo.Client {
	return yahoo.NewClient(yahoo.Options{
		ChartURL:   c.Yahoo.ChartURL,
		SearchURL:  c.Yahoo.SearchURL,
		RateLimit:  c.Yahoo.RateLimit,
		Burst:      c.Yahoo.Burst,
		Timeout:    c.Yahoo.Timeout,
		MaxRetries: c.Yahoo.MaxRetries,
		Backoff:    c.Yahoo.Backoff,
	}, l)
}

// candleSource builds the configured candle providers, falling back from
// one to the next in config order. The returned func closes any open dataset.
func candleSource(c *config.Config, l *zap.Logger) (feed.CandleProvider, func() error, error) {
	var (
		providers []feed.CandleProvider
		closers   []func() error
	)
	cleanup := func() error {
		var errs []error
		for _, fn := range closers {
			errs = append(errs, fn())
		}
		return errors.Join(errs...)
	}

	for _, name := range c.Data.Sources {
		switch name {
		case "yahoo":
			providers = append(providers, newYahoo(c, l))
		case "csv":
			providers = append(providers, &feed.CSVCandles{Path: c.Data.CSVPath})
		case "sqlite":
			db, err := feed.OpenSQLite(c.Data.SQLitePath)
			if err != nil {
				_ = cleanup()
				return nil, nil, err
			}
			closers = append(closers, db.Close)
			providers = append(providers, db)
		default:
			_ = cleanup()
			return nil, nil, fmt.Errorf("unknown data source %q", name)
		}
	}

	switch len(providers) {
	case 0:
		return nil, nil, errors.New("no data sources configured")
	case 1:
		return providers[0], cleanup, nil
	default:
		return feed.NewFallback(providers...), cleanup, nil
	}
}

// signalSource returns the external signal file when one is configured,
// otherwise the named strategy.
func signalSource(c *config.Config) (feed.SignalProvider, error) {
	if c.Data.SignalsCSV != "" {
		return &feed.CSVSignals{Path: c.Data.SignalsCSV}, nil
	}
	return strategies.StrategyByName(c.Backtest.Strategy, c.Backtest.Params)
}

func newRunner(c *config.Config, l *zap.Logger, candles feed.CandleProvider, overlays bool) (*backtest.Runner, error) {
	signals, err := signalSource(c)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	matcher, err := backtest.MatcherFor(backtest.MatchPolicy(c.Backtest.Policy))
	if err != nil {
		return nil, err
	}
	mode, err := backtest.ParseAggregationMode(c.Backtest.Aggregation)
	if err != nil {
		return nil, err
	}
	r := &backtest.Runner{
		Candles: candles,
		Signals: signals,
		Matcher: matcher,
		Mode:    mode,
		Logger:  l,
	}
	if overlays {
		r.Overlays = c.Backtest.Overlays
	}
	return r, nil
}

// parseDate accepts YYYY-MM-DD. As an end bound the whole day is included.
func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Second)
	}
	return t, nil
}
