package cmd

import (
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Look up ticker symbols on Yahoo Finance",
	Long: `Search lists the equities, ETFs and indices whose name or symbol matches
the query. Mutual fund codes and BSE duplicates are left out.

Example:
  tradelog search tata`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	client := newYahoo(cfg, log)
	quotes, err := client.Search(cmd.Context(), strings.Join(args, " "))
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(quotes) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}
	table := tablewriter.NewTable(out,
		tablewriter.WithHeader([]string{"Symbol", "Name", "Exchange", "Type"}),
	)
	for _, q := range quotes {
		if err := table.Append([]string{q.Symbol, q.Name(), q.Exchange, q.QuoteType}); err != nil {
			return err
		}
	}
	return table.Render()
}
