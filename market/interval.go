package market

import (
	"fmt"
	"strings"
)

// Intervals are the candle intervals the chart data source understands.
var Intervals = []string{"1m", "2m", "5m", "15m", "30m", "60m", "90m", "1h", "1d", "1wk", "1mo"}

var intraday = map[string]bool{
	"1m": true, "2m": true, "5m": true, "15m": true,
	"30m": true, "60m": true, "90m": true,
}

// ValidateInterval returns an error naming the accepted intervals when
// interval is not one of them.
func ValidateInterval(interval string) error {
	for _, iv := range Intervals {
		if iv == interval {
			return nil
		}
	}
	return fmt.Errorf("invalid interval: %s. Valid intervals are: %s", interval, strings.Join(Intervals, ", "))
}

// IsIntraday reports whether interval is one of the minute intervals.
// The data source only keeps 60 days of those.
func IsIntraday(interval string) bool {
	return intraday[interval]
}

// HistoryRange is the history window requested for an interval.
func HistoryRange(interval string) string {
	if IsIntraday(interval) {
		return "60d"
	}
	return "max"
}
