package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/history"
)

var (
	historyLimit  int
	historyPrints bool
	historyDays   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent searches and print jobs",
	Long: `Show the most recent order number searches, or print jobs with --prints,
followed by search statistics.

Examples:
  pdfmatch history
  pdfmatch history --limit 50 --days 30
  pdfmatch history --prints`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "entries to show")
	historyCmd.Flags().BoolVar(&historyPrints, "prints", false, "show print jobs instead of searches")
	historyCmd.Flags().IntVar(&historyDays, "days", 7, "days covered by the statistics")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if historyPrints {
		prints, err := store.RecentPrints(ctx, historyLimit)
		if err != nil {
			return err
		}
		if len(prints) == 0 {
			fmt.Fprintln(out, "No print jobs yet.")
			return nil
		}
		for _, p := range prints {
			status := "ok"
			if !p.Success {
				status = "failed: " + p.Error
			}
			fmt.Fprintf(out, "%s  %-16s pages %-10s x%d  %s  %s\n",
				p.CreatedAt.Format("2006-01-02 15:04"), p.Identifier, p.PageRanges, p.Copies, p.FilePath, status)
		}
		return nil
	}

	searches, err := store.RecentSearches(ctx, historyLimit)
	if err != nil {
		return err
	}
	if len(searches) == 0 {
		fmt.Fprintln(out, "No searches yet.")
		return nil
	}
	for _, s := range searches {
		found := "not found"
		if s.Found {
			found = fmt.Sprintf("%s pages %s (%s)", s.UsedFile, s.PageRanges, s.DecidedBy)
		}
		fmt.Fprintf(out, "%s  %-16s %s\n", s.CreatedAt.Format("2006-01-02 15:04"), s.Identifier, found)
	}

	stats, err := store.Stats(ctx, time.Now().AddDate(0, 0, -historyDays))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nLast %d days: %d searches, %.1f%% found, %d distinct, %dms average\n",
		historyDays, stats.Total, stats.SuccessRate, stats.Unique, stats.AvgDurationMs)
	return nil
}
