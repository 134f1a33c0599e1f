package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/scan"
)

var (
	indexFolder    string
	indexRecursive bool
	indexWorkers   int
	indexAll       bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "List order numbers found in more than one document",
	Long: `Index every order number in a folder of PDFs and show, for each number
present in several documents, which copy is the latest.

Examples:
  pdfmatch index --folder ./invoices
  pdfmatch index --folder ./invoices --all`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVarP(&indexFolder, "folder", "f", "", "folder to index (default from config)")
	indexCmd.Flags().BoolVarP(&indexRecursive, "recursive", "r", false, "index subfolders")
	indexCmd.Flags().IntVarP(&indexWorkers, "workers", "w", scan.DefaultWorkers, "parallel workers")
	indexCmd.Flags().BoolVar(&indexAll, "all", false, "also list order numbers found in a single document")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, cleanup, err := getSearchService()
	if err != nil {
		return err
	}
	defer cleanup()
	if cmd.Flags().Changed("recursive") {
		svc.SetRecursive(indexRecursive)
	}
	if cmd.Flags().Changed("workers") {
		svc.SetWorkers(indexWorkers)
	}

	var (
		results []models.SearchResult
		rep     *scan.Report[scan.FileIndex]
	)
	err = runScanProgress(ctx, "Indexing", func(ctx context.Context, progress scan.ProgressFunc) error {
		var err error
		results, rep, err = svc.FindAll(ctx, indexFolder, progress)
		return err
	})
	if err != nil {
		return fmt.Errorf("index: %w", err)
	}

	out := cmd.OutOrStdout()
	printScanSummary(out, rep.Scanned, rep.Total, len(rep.Failures), rep.Cancelled)

	shown := 0
	for _, r := range results {
		if !indexAll && len(r.All) < 2 {
			continue
		}
		shown++
		fmt.Fprintf(out, "%s -> %s pages %s (%d documents, decided by %s)\n",
			r.Identifier, r.Best.Path, printer.PageRanges(r.Best.Pages), len(r.All), r.DecidedBy)
	}
	fmt.Fprintf(out, "%d order numbers, %d shown\n", len(results), shown)
	return nil
}
