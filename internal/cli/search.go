package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/scan"
	"github.com/sprjihoon/pdf01/internal/service"
)

var (
	searchFolder    string
	searchRecursive bool
	searchWorkers   int
	searchPrint     bool
	searchPrinter   string
	searchCopies    int
	searchDuplex    bool
	searchExtract   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <order-number>",
	Short: "Find the latest document containing an order number",
	Long: `Search every PDF in a folder for an order number and pick the latest
copy: a date printed on the first page wins over a date in the file name,
which wins over the file modification time.

Examples:
  pdfmatch search A-123456 --folder ./invoices
  pdfmatch search 20240105123 --recursive --workers 8
  pdfmatch search A-123456 --print --printer office --copies 2`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchFolder, "folder", "f", "", "folder to search (default from config)")
	searchCmd.Flags().BoolVarP(&searchRecursive, "recursive", "r", false, "search subfolders")
	searchCmd.Flags().IntVarP(&searchWorkers, "workers", "w", scan.DefaultWorkers, "parallel workers")
	searchCmd.Flags().BoolVar(&searchPrint, "print", false, "print the matched pages")
	searchCmd.Flags().StringVar(&searchPrinter, "printer", "", "printer name (default from config)")
	searchCmd.Flags().IntVarP(&searchCopies, "copies", "n", 0, "copies to print (default from config)")
	searchCmd.Flags().BoolVar(&searchDuplex, "duplex", false, "print on both sides")
	searchCmd.Flags().BoolVar(&searchExtract, "extract", false, "print a copy holding only the matched pages")
}

func runSearch(cmd *cobra.Command, args []string) error {
	identifier := args[0]
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	svc, cleanup, err := getSearchService()
	if err != nil {
		return err
	}
	defer cleanup()
	applyScanFlags(cmd, svc)

	var (
		result *models.SearchResult
		rep    *scan.Report[scan.Hit]
	)
	err = runScanProgress(ctx, "Searching "+identifier, func(ctx context.Context, progress scan.ProgressFunc) error {
		var err error
		result, rep, err = svc.Find(ctx, searchFolder, identifier, progress)
		return err
	})
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := cmd.OutOrStdout()
	printScanSummary(out, rep.Scanned, rep.Total, len(rep.Failures), rep.Cancelled)
	for _, f := range rep.Failures {
		fmt.Fprintf(out, "  skipped %s: %v\n", f.Path, f.Err)
	}
	if result == nil {
		fmt.Fprintf(out, "No document contains %s.\n", identifier)
		return nil
	}
	printSearchResult(out, result)

	if !searchPrint {
		return nil
	}
	opts := service.PrintOptions{Printer: searchPrinter, Copies: searchCopies, Extract: searchExtract}
	if cmd.Flags().Changed("duplex") {
		opts.Duplex = &searchDuplex
	}
	job, err := svc.Print(ctx, result, opts)
	if err != nil {
		return fmt.Errorf("print: %w", err)
	}
	fmt.Fprintf(out, "\nSent pages %s of %s to the printer (%d copies).\n", job.Pages, job.Path, job.Copies)
	return nil
}

func applyScanFlags(cmd *cobra.Command, svc *service.SearchService) {
	if cmd.Flags().Changed("recursive") {
		svc.SetRecursive(searchRecursive)
	}
	if cmd.Flags().Changed("workers") {
		svc.SetWorkers(searchWorkers)
	}
}

func printScanSummary(out io.Writer, scanned, total, failures int, cancelled bool) {
	fmt.Fprintf(out, "Scanned %d of %d files", scanned, total)
	if failures > 0 {
		fmt.Fprintf(out, ", %d unreadable", failures)
	}
	if cancelled {
		fmt.Fprint(out, " (cancelled)")
	}
	fmt.Fprintln(out)
}

func printSearchResult(out io.Writer, r *models.SearchResult) {
	best := r.Best
	fmt.Fprintf(out, "\n%s: %s, pages %s (decided by %s)\n", r.Identifier, best.Path, printer.PageRanges(best.Pages), r.DecidedBy)
	if len(r.All) < 2 {
		return
	}
	fmt.Fprintf(out, "Found in %d documents:\n", len(r.All))
	for i, m := range r.All {
		marker := " "
		if m.Path == best.Path {
			marker = "*"
		}
		fmt.Fprintf(out, "  %s %d. %s pages %s [%s]%s\n", marker, i+1, m.Path, printer.PageRanges(m.Pages), m.Tier(), formatDates(m))
	}
}

func formatDates(m models.OrderMatch) string {
	s := ""
	if m.DocDate != nil {
		s += " doc " + m.DocDate.Format("2006-01-02")
	}
	if m.FilenameDate != nil {
		s += " name " + m.FilenameDate.Format("2006-01-02")
	}
	if verbose {
		s += " modified " + m.ModTime.Format("2006-01-02 15:04")
	}
	return s
}
