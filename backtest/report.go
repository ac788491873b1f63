package backtest

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
)

const rule = "=================================================="

// PrintReport writes the trade log, the summary and the yearly breakdown of
// rep. Money and percentages are shown with two decimals.
func PrintReport(w io.Writer, rep *Report) error {
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "Run ID:        %s\n", rep.RunID)
	fmt.Fprintf(w, "Created:       %s\n", rep.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Symbol:        %s\n", rep.Symbol)
	fmt.Fprintf(w, "Interval:      %s\n", rep.Interval)
	fmt.Fprintf(w, "Strategy:      %s\n", rep.Strategy)
	fmt.Fprintf(w, "Matching:      %s\n", rep.Policy)
	if n := len(rep.Candles); n > 0 {
		fmt.Fprintf(w, "Candles:       %d (%s to %s)\n", n,
			rep.Candles[0].Timestamp().Format(time.DateOnly),
			rep.Candles[n-1].Timestamp().Format(time.DateOnly))
	}
	fmt.Fprintf(w, "Signals:       %d\n", len(rep.Signals))

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trades")
	if len(rep.Trades) == 0 {
		fmt.Fprintln(w, "No trades.")
	} else if err := writeTrades(w, rep.Trades); err != nil {
		return err
	}

	fmt.Fprintln(w)
	writeSummary(w, "Summary", rep.Summary)

	if rep.Range != nil {
		fmt.Fprintln(w)
		writeSummary(w, fmt.Sprintf("Range %s to %s",
			rangeBound(rep.Range.From, OpenFrom, "start"),
			rangeBound(rep.Range.To, OpenTo, "end")), rep.Range.Summary)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Yearly")
	if err := writeYearly(w, rep.Yearly); err != nil {
		return err
	}

	if len(rep.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Notes")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, n := range rep.Notes {
			fmt.Fprintf(w, "- %s\n", n)
		}
	}
	fmt.Fprintln(w)
	return nil
}

func writeTrades(w io.Writer, trades []Trade) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"#", "Buy Date", "Buy", "Sell Date", "Sell", "Returns", "% Returns", "Outcome"}),
	)
	for i, t := range trades {
		if err := table.Append([]string{
			fmt.Sprintf("%d", i+1),
			t.BuyDate().Format(time.DateOnly),
			fmt.Sprintf("%.2f", t.BuyPrice),
			t.SellDate().Format(time.DateOnly),
			fmt.Sprintf("%.2f", t.SellPrice),
			fmt.Sprintf("%.2f", t.Returns),
			fmt.Sprintf("%.2f", t.PctReturns),
			t.Outcome.String(),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func writeSummary(w io.Writer, title string, s Summary) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", s.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRatePct)
	fmt.Fprintf(w, "Returns:       %.2f\n", s.TotalReturns)
	fmt.Fprintf(w, "%% Returns:     %.2f%% (%s)\n", s.TotalPctReturns, s.Mode)
}

func writeYearly(w io.Writer, buckets []YearlyBucket) error {
	table := tablewriter.NewTable(w,
		tablewriter.WithHeader([]string{"Year", "Trades", "Returns", "% Returns"}),
	)
	for _, b := range buckets {
		if err := table.Append([]string{
			b.Label(),
			fmt.Sprintf("%d", b.TradeCount),
			fmt.Sprintf("%.2f", b.TotalReturns),
			fmt.Sprintf("%.2f", b.TotalPctReturns),
		}); err != nil {
			return err
		}
	}
	return table.Render()
}

func rangeBound(t, open int64, label string) string {
	if t == open {
		return label
	}
	return time.Unix(t, 0).UTC().Format(time.DateOnly)
}
