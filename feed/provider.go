// Package feed defines where candles and signals come from and provides
// file and dataset backed sources.
package feed

import (
	"context"
	"errors"
	"time"

	"github.com/rustyeddy/tradelog/market"
)

// Query identifies the series a provider should return. Zero From/To
// leave that side of the window open.
type Query struct {
	Symbol   string
	Interval string
	From     time.Time
	To       time.Time
}

// Contains reports whether unix time t falls inside the query window.
// From is inclusive and To is exclusive.
func (q Query) Contains(t int64) bool {
	ts := time.Unix(t, 0)
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !ts.Before(q.To) {
		return false
	}
	return true
}

// CandleProvider returns candles ordered by time for a query.
type CandleProvider interface {
	Name() string
	Candles(ctx context.Context, q Query) ([]market.Candle, error)
}

// SignalProvider returns buy/sell signals for the same series. The candles
// already fetched for q are passed in so generators do not refetch them.
// Returning no signals is not an error.
type SignalProvider interface {
	Name() string
	Signals(ctx context.Context, q Query, candles []market.Candle) ([]market.Signal, error)
}

// ErrNoCandles is returned when a provider has no data for a query.
var ErrNoCandles = errors.New("no candles")

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider  string
	Err       error
	Retryable bool
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Fallback tries several candle providers in order and returns the first
// non-empty result.
type Fallback struct {
	providers []CandleProvider
}

// NewFallback creates a fallback provider over providers, skipping nils.
func NewFallback(providers ...CandleProvider) *Fallback {
	ps := make([]CandleProvider, 0, len(providers))
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &Fallback{providers: ps}
}

func (f *Fallback) Name() string {
	return "fallback"
}

func (f *Fallback) Candles(ctx context.Context, q Query) ([]market.Candle, error) {
	lastErr := error(&ProviderError{Provider: f.Name(), Err: ErrNoCandles})
	for _, p := range f.providers {
		candles, err := p.Candles(ctx, q)
		if err == nil && len(candles) > 0 {
			return candles, nil
		}
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
	}
	return nil, lastErr
}
