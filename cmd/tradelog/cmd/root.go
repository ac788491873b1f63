package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/config"
	"github.com/rustyeddy/tradelog/internal/logger"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string

	cfg *config.Config
	log = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "tradelog",
	Short: "Indicator engine and signal backtester for stock candles",
	Long: `Tradelog computes EMA, RSI and Supertrend over historical candles, turns
buy/sell signals into a trade log and reports win rate and returns by year.

It provides tools for:
  - Backtesting the EMA crossover or an external signal file
  - Scanning many symbols in parallel
  - Computing indicator overlays
  - Serving candles, signals and backtests over HTTP

Candles come from Yahoo Finance, a CSV file or a SQLite dataset.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (console, json)")
}

// setup loads the configuration and builds the logger. Flags win over the
// config file and TRADELOG_* variables.
func setup(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if logFormat != "" {
		c.Log.Format = logFormat
	}

	l, err := logger.New(c.Log.Level, c.Log.Format)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	cfg, log = c, l
	return nil
}
