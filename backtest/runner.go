package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/market"
	"github.com/rustyeddy/tradelog/pkg/id"
)

// Request names the series to backtest. From and To, when set, select the
// trades that go into Report.Range; the full history is always matched.
type Request struct {
	Symbol   string
	Interval string
	From     time.Time
	To       time.Time
}

// Report is everything one run produced.
type Report struct {
	RunID    string               `json:"run_id"`
	Created  time.Time            `json:"created"`
	Symbol   string               `json:"symbol"`
	Interval string               `json:"interval"`
	Strategy string               `json:"strategy"`
	Policy   MatchPolicy          `json:"policy"`
	Candles  []market.Candle      `json:"candles"`
	Signals  []market.Signal      `json:"signals"`
	Trades   []Trade              `json:"trades"`
	Summary  Summary              `json:"summary"`
	Yearly   []YearlyBucket       `json:"yearly"`
	Range    *RangeSummary        `json:"range,omitempty"`
	Overlays *indicators.Overlays `json:"overlays,omitempty"`
	Notes    []string             `json:"notes,omitempty"`
}

// Runner wires a candle source and a signal source to the matcher and the
// statistics. Matcher defaults to the greedy nearest-sell policy, Mode to
// AggregateSum and Logger to a no-op logger. A zero Overlays spec computes
// no overlays.
type Runner struct {
	Candles  feed.CandleProvider
	Signals  feed.SignalProvider
	Matcher  Matcher
	Overlays indicators.OverlaySpec
	Mode     AggregationMode
	Logger   *zap.Logger
}

// Run executes one backtest.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	if r.Candles == nil || r.Signals == nil {
		return nil, errors.New("backtest: runner needs a candle and a signal provider")
	}
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	matcher := r.Matcher
	if matcher == nil {
		matcher = GreedyNearestSell{}
	}
	mode := r.Mode
	if mode == "" {
		mode = AggregateSum
	}

	start := time.Now()
	rep := &Report{
		RunID:    id.NewAt(start),
		Created:  start.UTC(),
		Symbol:   req.Symbol,
		Interval: req.Interval,
		Strategy: r.Signals.Name(),
		Policy:   matcher.Policy(),
	}
	log = log.With(zap.String("run_id", rep.RunID), zap.String("symbol", req.Symbol), zap.String("interval", req.Interval))

	q := feed.Query{Symbol: req.Symbol, Interval: req.Interval}
	candles, err := r.Candles.Candles(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch candles: %w", err)
	}
	if len(candles) == 0 {
		return nil, &feed.ProviderError{Provider: r.Candles.Name(), Err: fmt.Errorf("%w for symbol %q interval %q", feed.ErrNoCandles, req.Symbol, req.Interval)}
	}
	rep.Candles = candles

	signals, err := r.Signals.Signals(ctx, q, candles)
	if err != nil {
		return nil, fmt.Errorf("generate signals: %w", err)
	}
	rep.Signals = signals

	if rep.Trades, err = matcher.Match(candles, signals); err != nil {
		return nil, err
	}
	if rep.Summary, err = SummarizeWith(rep.Trades, mode); err != nil {
		return nil, err
	}
	rep.Yearly = BucketByYear(rep.Trades)

	if !req.From.IsZero() || !req.To.IsZero() {
		from, to := OpenFrom, OpenTo
		if !req.From.IsZero() {
			from = req.From.Unix()
		}
		if !req.To.IsZero() {
			to = req.To.Unix()
		}
		rs, err := RangeStats(rep.Trades, from, to, mode)
		if err != nil {
			return nil, err
		}
		rep.Range = &rs
	}

	if r.Overlays != (indicators.OverlaySpec{}) {
		if err := indicators.CheckLookback("overlays", candles, r.Overlays.MinCandles()); err != nil {
			log.Warn("skipping overlays", zap.Error(err))
			rep.Notes = append(rep.Notes, err.Error())
		} else {
			ov, err := indicators.ComputeOverlays(candles, r.Overlays)
			if err != nil {
				return nil, err
			}
			rep.Overlays = &ov
		}
	}

	log.Info("backtest complete",
		zap.Int("candles", len(candles)),
		zap.Int("signals", len(signals)),
		zap.Int("trades", rep.Summary.TotalTrades),
		zap.Float64("win_rate_pct", rep.Summary.WinRatePct),
		zap.Float64("total_pct_returns", rep.Summary.TotalPctReturns),
		zap.Duration("elapsed", time.Since(start)),
	)
	return rep, nil
}
