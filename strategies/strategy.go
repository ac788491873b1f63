// Package strategies holds the signal generators the backtester can run
// against a candle series.
package strategies

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rustyeddy/tradelog/feed"
)

// Params are the knobs a strategy may read when built by name.
type Params struct {
	ShortLength int `json:"ema_short" yaml:"ema_short" mapstructure:"ema_short"`
	LongLength  int `json:"ema_long" yaml:"ema_long" mapstructure:"ema_long"`
}

// DefaultParams matches the 20/50 crossover.
func DefaultParams() Params {
	return Params{ShortLength: 20, LongLength: 50}
}

// Factory builds a signal provider from params.
type Factory func(Params) (feed.SignalProvider, error)

var (
	mu       sync.RWMutex
	registry = make(map[string]Factory)
)

func init() {
	Register("ema-cross", func(p Params) (feed.SignalProvider, error) {
		return NewEMACross(p.ShortLength, p.LongLength)
	})
	Register("noop", func(Params) (feed.SignalProvider, error) {
		return Noop{}, nil
	})
}

// Register adds or replaces the factory for name. Names are case-insensitive.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	registry[normalize(name)] = f
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := registry[normalize(name)]
	return f, ok
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Resolve maps name, or one of the aliases "emacross" and "none", to its
// factory.
func Resolve(name string) (Factory, bool) {
	switch normalize(name) {
	case "emacross":
		name = "ema-cross"
	case "none":
		name = "noop"
	}
	return Lookup(name)
}

// StrategyByName builds the named strategy. Aliases are accepted as in
// Resolve.
func StrategyByName(name string, p Params) (feed.SignalProvider, error) {
	f, ok := Resolve(name)
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return f(p)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
