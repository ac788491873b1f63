package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/feed"
	"github.com/rustyeddy/tradelog/indicators"
	"github.com/rustyeddy/tradelog/market"
)

var indicatorsCmd = &cobra.Command{
	Use:   "indicators",
	Short: "Compute EMA, RSI and Supertrend for a symbol",
	Long: `Indicators fetches candles and prints the overlay values for the most
recent candles. Lengths default to the backtest.overlays section of the
config; a zero length turns that overlay off.

Example:
  tradelog indicators --symbol MSFT --rsi 14 --st-period 10 --st-mult 3 --last 30`,
	RunE: runIndicators,
}

var (
	indSymbol   string
	indInterval string
	indFast     int
	indSlow     int
	indRSI      int
	indSTPeriod int
	indSTMult   float64
	indLast     int
	indJSON     bool
)

func init() {
	rootCmd.AddCommand(indicatorsCmd)

	indicatorsCmd.Flags().StringVarP(&indSymbol, "symbol", "s", "", "ticker symbol (default from config)")
	indicatorsCmd.Flags().StringVarP(&indInterval, "interval", "i", "", "candle interval (default from config)")
	indicatorsCmd.Flags().IntVar(&indFast, "fast", 0, "fast EMA length")
	indicatorsCmd.Flags().IntVar(&indSlow, "slow", 0, "slow EMA length")
	indicatorsCmd.Flags().IntVar(&indRSI, "rsi", 0, "RSI period")
	indicatorsCmd.Flags().IntVar(&indSTPeriod, "st-period", 0, "Supertrend ATR period")
	indicatorsCmd.Flags().Float64Var(&indSTMult, "st-mult", 0, "Supertrend band multiplier")
	indicatorsCmd.Flags().IntVarP(&indLast, "last", "n", 20, "number of most recent candles to print")
	indicatorsCmd.Flags().BoolVar(&indJSON, "json", false, "print every overlay point as JSON")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("symbol") {
		cfg.Backtest.Symbol = indSymbol
	}
	if set("interval") {
		cfg.Backtest.Interval = indInterval
	}
	spec := cfg.Backtest.Overlays
	if set("fast") {
		spec.FastEMA = indFast
	}
	if set("slow") {
		spec.SlowEMA = indSlow
	}
	if set("rsi") {
		spec.RSIPeriod = indRSI
	}
	if set("st-period") {
		spec.SupertrendPeriod = indSTPeriod
	}
	if set("st-mult") {
		spec.SupertrendMultiplier = indSTMult
	}
	cfg.Backtest.Overlays = spec
	if err := cfg.Validate(); err != nil {
		return err
	}

	src, closeCandles, err := candleSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeCandles()

	candles, err := src.Candles(cmd.Context(), feed.Query{Symbol: cfg.Backtest.Symbol, Interval: cfg.Backtest.Interval})
	if err != nil {
		return fmt.Errorf("fetch candles: %w", err)
	}
	if err := indicators.CheckLookback("overlays", candles, spec.MinCandles()); err != nil {
		return err
	}
	ov, err := indicators.ComputeOverlays(candles, spec)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if indJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(ov)
	}
	fmt.Fprintf(out, "%s %s, %d candles\n\n", cfg.Backtest.Symbol, cfg.Backtest.Interval, len(candles))
	return printOverlays(out, candles, ov, indLast)
}

// printOverlays writes one row per candle for the last n candles. Cells
// before an overlay's warm-up are left blank.
func printOverlays(w io.Writer, candles []market.Candle, ov indicators.Overlays, n int) error {
	fast, slow, rsi := byTime(ov.FastEMA), byTime(ov.SlowEMA), byTime(ov.RSI)
	st := make(map[int64]indicators.SupertrendPoint, len(ov.Supertrend))
	for _, p := range ov.Supertrend {
		st[p.Time] = p
	}

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Time", "Close", "Fast EMA", "Slow EMA", "RSI", "Supertrend", "Trend"}),
	)
	if n <= 0 || n > len(candles) {
		n = len(candles)
	}
	for _, c := range candles[len(candles)-n:] {
		row := []string{
			c.Timestamp().Format("2006-01-02 15:04"),
			fmt.Sprintf("%.2f", c.Close),
			cell(fast, c.Time),
			cell(slow, c.Time),
			cell(rsi, c.Time),
			"", "",
		}
		if p, ok := st[c.Time]; ok {
			row[5] = fmt.Sprintf("%.2f", p.Value)
			row[6] = p.Trend.String()
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func byTime(points []indicators.Point) map[int64]float64 {
	m := make(map[int64]float64, len(points))
	for _, p := range points {
		m[p.Time] = p.Value
	}
	return m
}

func cell(m map[int64]float64, t int64) string {
	if v, ok := m[t]; ok {
		return fmt.Sprintf("%.2f", v)
	}
	return ""
}
