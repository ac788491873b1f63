package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradelog/internal/metrics"
	"github.com/rustyeddy/tradelog/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve candles, signals, backtests and symbol search over HTTP",
	Long: `Serve starts the HTTP API:

  GET /api/candles        candles and EMA crossover signals
  GET /api/backtest       full backtest report with overlays
  GET /api/search_symbol  symbol autocomplete
  GET /health             liveness
  GET /metrics            Prometheus metrics

Example:
  tradelog serve --addr :8000`,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	candles, closeCandles, err := candleSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeCandles()

	server.Version = version
	srv, err := server.New(server.Options{
		Candles:  candles,
		Searcher: newYahoo(cfg, log),
		Metrics:  metrics.New(),
		Logger:   log,
		Defaults: server.Defaults{
			Symbol:      cfg.Backtest.Symbol,
			Interval:    cfg.Backtest.Interval,
			Params:      cfg.Backtest.Params,
			Overlays:    cfg.Backtest.Overlays,
			Policy:      cfg.Backtest.Policy,
			Aggregation: cfg.Backtest.Aggregation,
		},
		Timeout:     cfg.Yahoo.Timeout * 2,
		CORSOrigins: cfg.Server.CORSOrigins,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout)
}
