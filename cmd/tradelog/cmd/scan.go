package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/tradelog/backtest"
)

var scanCmd = &cobra.Command{
	Use:   "scan [SYMBOL...]",
	Short: "Backtest the same strategy over many symbols",
	Long: `Scan runs one backtest per symbol in parallel and prints a summary table
sorted by total percent return. Symbols come from the arguments, --symbols
or the scan.symbols config list, in that order.

Examples:
  tradelog scan AAPL MSFT GOOGL
  tradelog scan --symbols RELIANCE.NS,TCS.NS,INFY.NS --workers 4 --ema-short 9 --ema-long 21`,
	RunE: runScan,
}

var (
	scanSymbols  string
	scanWorkers  int
	scanInterval string
	scanShort    int
	scanLong     int
	scanQuiet    bool
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanSymbols, "symbols", "", "comma-separated symbols")
	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "parallel backtests (default from config)")
	scanCmd.Flags().StringVarP(&scanInterval, "interval", "i", "", "candle interval (default from config)")
	scanCmd.Flags().IntVar(&scanShort, "ema-short", 0, "ema-cross: short EMA length")
	scanCmd.Flags().IntVar(&scanLong, "ema-long", 0, "ema-cross: long EMA length")
	scanCmd.Flags().BoolVarP(&scanQuiet, "quiet", "q", false, "hide the progress bar")
}

func scanTargets(args []string) []string {
	var raw []string
	switch {
	case len(args) > 0:
		raw = args
	case scanSymbols != "":
		raw = strings.Split(scanSymbols, ",")
	default:
		raw = cfg.Scan.Symbols
	}

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func runScan(cmd *cobra.Command, args []string) error {
	set := func(name string) bool { return cmd.Flags().Changed(name) }
	if set("workers") {
		cfg.Scan.Concurrency = scanWorkers
	}
	if set("interval") {
		cfg.Backtest.Interval = scanInterval
	}
	if set("ema-short") {
		cfg.Backtest.Params.ShortLength = scanShort
	}
	if set("ema-long") {
		cfg.Backtest.Params.LongLength = scanLong
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	symbols := scanTargets(args)
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols to scan")
	}

	candles, closeCandles, err := candleSource(cfg, log)
	if err != nil {
		return err
	}
	defer closeCandles()

	runner, err := newRunner(cfg, log, candles, false)
	if err != nil {
		return err
	}

	reqs := make([]backtest.Request, len(symbols))
	for i, s := range symbols {
		reqs[i] = backtest.Request{Symbol: s, Interval: cfg.Backtest.Interval}
	}

	out := cmd.OutOrStdout()
	s := backtest.NewScanner(runner, cfg.Scan.Concurrency)

	var bar *progressbar.ProgressBar
	if !scanQuiet {
		bar = progressbar.NewOptions(len(reqs),
			progressbar.OptionSetWriter(cmd.ErrOrStderr()),
			progressbar.OptionEnableColorCodes(true),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetDescription("Backtesting"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "[green]█[reset]",
				SaucerHead:    "[green]█[reset]",
				SaucerPadding: "░",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		s.SetProgressCallback(func(done, total int) {
			_ = bar.Set(done)
		})
	}

	results := s.Scan(cmd.Context(), reqs)
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(cmd.ErrOrStderr())
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			log.Warn("scan failed", zap.String("symbol", r.Symbol), zap.Error(r.Err))
		}
	}

	fmt.Fprintf(out, "Strategy: %s  Interval: %s  Symbols: %d  Failed: %d\n\n",
		runner.Signals.Name(), cfg.Backtest.Interval, len(results), failed)
	return printScan(out, results)
}

// printScan lists successful runs by total percent return, best first,
// followed by the failures.
func printScan(w io.Writer, results []backtest.ScanResult) error {
	sorted := make([]backtest.ScanResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if (a.Err == nil) != (b.Err == nil) {
			return a.Err == nil
		}
		if a.Err != nil {
			return false
		}
		return a.Report.Summary.TotalPctReturns > b.Report.Summary.TotalPctReturns
	})

	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Symbol", "Candles", "Trades", "Win Rate", "Returns", "% Returns", "Error"}),
	)
	for _, r := range sorted {
		var row []string
		if r.Err != nil {
			row = []string{r.Symbol, "", "", "", "", "", r.Err.Error()}
		} else {
			sum := r.Report.Summary
			row = []string{
				r.Symbol,
				fmt.Sprintf("%d", len(r.Report.Candles)),
				fmt.Sprintf("%d", sum.TotalTrades),
				fmt.Sprintf("%.2f%%", sum.WinRatePct),
				fmt.Sprintf("%.2f", sum.TotalReturns),
				fmt.Sprintf("%.2f%%", sum.TotalPctReturns),
				"",
			}
		}
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
