package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/backtest"
	"github.com/rustyeddy/tradelog/journal"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a strategy or a signal file on one symbol",
	Long: `Backtest fetches the candle history of a symbol, generates or loads buy/sell
signals, pairs them into trades and prints the trade log, the summary and
the yearly breakdown.

Supported strategies:
  - ema-cross: EMA crossover (--ema-short, --ema-long)
  - noop: no signals (baseline)

Examples:
  tradelog backtest --symbol AAPL --interval 1d
  tradelog backtest --symbol TCS.NS --ema-short 9 --ema-long 21 --from 2020-01-01
  tradelog backtest --signals signals.csv --aggregation compound --export out/`,
	RunE: runBacktest,
}

var (
	btSymbol      string
	btInterval    string
	btStrategy    string
	btShort       int
	btLong        int
	btFrom        string
	btTo          string
	btPolicy      string
	btAggregation string
	btSignals     string
	btExport      string
	btJSON        bool
	btOverlays    bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btSymbol, "symbol", "s", "", "ticker symbol (default from config)")
	backtestCmd.Flags().StringVarP(&btInterval, "interval", "i", "", "candle interval (default from config)")
	backtestCmd.Flags().StringVar(&btStrategy, "strategy", "", "strategy name (ema-cross, noop)")
	backtestCmd.Flags().IntVar(&btShort, "ema-short", 0, "ema-cross: short EMA length")
	backtestCmd.Flags().IntVar(&btLong, "ema-long", 0, "ema-cross: long EMA length")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "range statistics start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "range statistics end date, inclusive (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btPolicy, "policy", "", "trade matching policy")
	backtestCmd.Flags().StringVar(&btAggregation, "aggregation", "", "percent return aggregation (sum, compound)")
	backtestCmd.Flags().StringVar(&btSignals, "signals", "", "CSV of external signals (time,signal[,price])")
	backtestCmd.Flags().StringVarP(&btExport, "export", "o", "", "directory to write trade and yearly CSVs to")
	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print the report as JSON")
	backtestCmd.Flags().BoolVar(&btOverlays, "overlays", false, "compute EMA, RSI and Supertrend overlays")
}

// applyBacktestFlags copies the flags that were set over the config.
func applyBacktestFlags(cmd *cobra.Command) error {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("symbol") {
		cfg.Backtest.Symbol = btSymbol
	}
	if set("interval") {
		cfg.Backtest.Interval = btInterval
	}
	if set("strategy") {
		cfg.Backtest.Strategy = btStrategy
	}
	if set("ema-short") {
		cfg.Backtest.Params.ShortLength = btShort
	}
	if set("ema-long") {
		cfg.Backtest.Params.LongLength = btLong
	}
	if set("policy") {
		cfg.Backtest.Policy = btPolicy
	}
	if set("aggregation") {
		cfg.Backtest.Aggregation = btAggregation
	}
	if set("signals") {
		cfg.Data.SignalsCSV = btSignals
	}
	if set("export") {
		cfg.Backtest.ExportDir = btExport
	}
	return cfg.Validate()
}

func runBacktest(cmd *cobra.Command, args []string) error {
	if err := applyBacktestFlags(cmd); err != nil {
		return err
	}
	from, err := parseDate(btFrom, false)
	if err != nil {
		return err
	}
	to, err := parseDate(btTo, true)
	if err != nil {
		return err
	}

	candles, closeCandles, err := candleSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeCandles()

	runner, err := newRunner(cfg, log, candles, btOverlays)
	if err != nil {
		return err
	}

	rep, err := runner.Run(cmd.Context(), backtest.Request{
		Symbol:   cfg.Backtest.Symbol,
		Interval: cfg.Backtest.Interval,
		From:     from,
		To:       to,
	})
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	out := cmd.OutOrStdout()
	if btJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return err
		}
	} else if err := backtest.PrintReport(out, rep); err != nil {
		return err
	}

	if cfg.Backtest.ExportDir != "" {
		trades, yearly, err := journal.CSVWriter{Dir: cfg.Backtest.ExportDir}.WriteReport(rep)
		if err != nil {
			return fmt.Errorf("export: %w", err)
		}
		log.Info("report exported", zap.String("trades", trades), zap.String("yearly", yearly))
		if !btJSON {
			fmt.Fprintf(out, "\nExported %s and %s\n", trades, yearly)
		}
	}
	return nil
}
