package indicators

import (
	"github.com/rustyeddy/tradelog/market"
)

// RSI calculates the Relative Strength Index with Wilder's smoothing.
//
// Average gain and loss start as the mean of the first period close-to-close
// deltas. Every index from period on is then smoothed in, index period
// included. When the average loss is zero the value is 100. Candles at
// indices below period are warm-up and produce no point; a series of period
// candles or fewer yields an empty result.
func RSI(candles []market.Candle, period int) ([]Point, error) {
	if err := checkPositive("RSI", "period", period); err != nil {
		return nil, err
	}
	if len(candles) <= period {
		return []Point{}, nil
	}

	var gains, losses float64
	for i := 1; i <= period; i++ {
		diff := candles[i].Close - candles[i-1].Close
		if diff >= 0 {
			gains += diff
		} else {
			losses -= diff
		}
	}

	p := float64(period)
	avgGain, avgLoss := gains/p, losses/p

	out := make([]Point, 0, len(candles)-period)
	for i := period; i < len(candles); i++ {
		diff := candles[i].Close - candles[i-1].Close
		gain, loss := 0.0, 0.0
		if diff >= 0 {
			gain = diff
		} else {
			loss = -diff
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p

		out = append(out, Point{Time: candles[i].Time, Value: rsiValue(avgGain, avgLoss)})
	}
	return out, nil
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
