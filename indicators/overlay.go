package indicators

import (
	"github.com/rustyeddy/tradelog/market"
)

// OverlaySpec selects the chart overlays to compute. A zero length or
// period leaves that overlay out.
type OverlaySpec struct {
	FastEMA              int     `json:"fast_ema" yaml:"fast_ema" mapstructure:"fast_ema"`
	SlowEMA              int     `json:"slow_ema" yaml:"slow_ema" mapstructure:"slow_ema"`
	RSIPeriod            int     `json:"rsi_period" yaml:"rsi_period" mapstructure:"rsi_period"`
	SupertrendPeriod     int     `json:"supertrend_period" yaml:"supertrend_period" mapstructure:"supertrend_period"`
	SupertrendMultiplier float64 `json:"supertrend_multiplier" yaml:"supertrend_multiplier" mapstructure:"supertrend_multiplier"`
}

// DefaultOverlaySpec is the 20/50 EMA pair with RSI(14) and Supertrend(10, 3).
func DefaultOverlaySpec() OverlaySpec {
	return OverlaySpec{
		FastEMA:              20,
		SlowEMA:              50,
		RSIPeriod:            14,
		SupertrendPeriod:     10,
		SupertrendMultiplier: 3,
	}
}

// Overlays holds the computed overlay series.
type Overlays struct {
	FastEMA    []Point           `json:"fast_ema,omitempty"`
	SlowEMA    []Point           `json:"slow_ema,omitempty"`
	RSI        []Point           `json:"rsi,omitempty"`
	Supertrend []SupertrendPoint `json:"supertrend,omitempty"`
}

// MinCandles is the shortest series for which every selected overlay
// produces at least one point.
func (s OverlaySpec) MinCandles() int {
	need := max(s.FastEMA, s.SlowEMA)
	if s.RSIPeriod > 0 {
		need = max(need, s.RSIPeriod+1)
	}
	if s.SupertrendPeriod > 0 {
		need = max(need, s.SupertrendPeriod+1)
	}
	return need
}

// ComputeOverlays computes every overlay the spec selects.
func ComputeOverlays(candles []market.Candle, spec OverlaySpec) (Overlays, error) {
	var (
		out Overlays
		err error
	)
	if spec.FastEMA > 0 {
		if out.FastEMA, err = EMA(candles, spec.FastEMA); err != nil {
			return Overlays{}, err
		}
	}
	if spec.SlowEMA > 0 {
		if out.SlowEMA, err = EMA(candles, spec.SlowEMA); err != nil {
			return Overlays{}, err
		}
	}
	if spec.RSIPeriod > 0 {
		if out.RSI, err = RSI(candles, spec.RSIPeriod); err != nil {
			return Overlays{}, err
		}
	}
	if spec.SupertrendPeriod > 0 {
		if out.Supertrend, err = Supertrend(candles, spec.SupertrendPeriod, spec.SupertrendMultiplier); err != nil {
			return Overlays{}, err
		}
	}
	return out, nil
}
