package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/storage"
)

var (
	matchRecords   string
	matchPDF       string
	matchOut       string
	matchFuzzy     bool
	matchThreshold float64
	matchLabel     bool
	matchByName    bool
	matchUpload    bool
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Reorder a PDF to follow an order list",
	Long: `Match every row of an order list (xlsx or csv) to a page of a PDF and
write the pages in list order, followed by the pages no row claimed.

A match report (CSV) is written next to the reordered PDF. Output names
are versioned per day: ordered_YYYYMMDD.pdf, then ordered_YYYYMMDD_v2.pdf.

Examples:
  pdfmatch match --records orders.xlsx --pdf labels.pdf --out ./out
  pdfmatch match --records orders.csv --pdf labels.pdf --fuzzy --threshold 85
  pdfmatch match --records orders.xlsx --pdf labels.pdf --label --upload`,
	Args: cobra.NoArgs,
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().StringVarP(&matchRecords, "records", "r", "", "order list (.xlsx or .csv)")
	matchCmd.Flags().StringVarP(&matchPDF, "pdf", "p", "", "PDF to reorder")
	matchCmd.Flags().StringVarP(&matchOut, "out", "o", "", "output directory (default from config)")
	matchCmd.Flags().BoolVar(&matchFuzzy, "fuzzy", false, "accept near matches")
	matchCmd.Flags().Float64Var(&matchThreshold, "threshold", 90, "minimum similarity for near matches (0-100)")
	matchCmd.Flags().BoolVar(&matchLabel, "label", false, "stamp a sequence label on each matched page")
	matchCmd.Flags().BoolVar(&matchByName, "by-name", false, "match on recipient names instead of order numbers")
	matchCmd.Flags().BoolVar(&matchUpload, "upload", false, "upload outputs to object storage")
	_ = matchCmd.MarkFlagRequired("records")
	_ = matchCmd.MarkFlagRequired("pdf")
}

func runMatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var store storage.Storage
	if matchUpload {
		var err error
		store, err = storage.NewMinIO(ctx, cfg.StorageSettings())
		if err != nil {
			return fmt.Errorf("init storage: %w", err)
		}
	}

	svc, err := service.NewMatchService(cfg, newBackend(), store, collector, logger)
	if err != nil {
		return fmt.Errorf("init match: %w", err)
	}

	req := service.MatchRequest{
		RecordsPath: matchRecords,
		PDFPath:     matchPDF,
		OutputDir:   matchOut,
		ByName:      matchByName,
		Upload:      matchUpload,
		Progress:    func(msg string) { fmt.Fprintln(cmd.OutOrStdout(), "  "+msg) },
	}
	if cmd.Flags().Changed("fuzzy") {
		req.Fuzzy = &matchFuzzy
	}
	if cmd.Flags().Changed("threshold") {
		req.Threshold = &matchThreshold
	}
	if cmd.Flags().Changed("label") {
		req.Label = &matchLabel
	}

	result, err := svc.Run(ctx, req)
	if errors.Is(err, document.ErrNoTextLayer) {
		return fmt.Errorf("%w (scanned PDFs need OCR before matching)", err)
	}
	if err != nil {
		return err
	}

	printMatchSummary(cmd, result)
	return nil
}

func printMatchSummary(cmd *cobra.Command, r *service.MatchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nMatched %d of %d records (%d pages, %d left over)\n", r.Matched, r.Records, r.Pages, r.Leftover)

	shown := min(len(r.Assignment.Details), 10)
	for i := 0; i < shown; i++ {
		d := r.Assignment.Details[i]
		if d.Page == models.Unmatched {
			fmt.Fprintf(out, "  row %d -> unmatched (%s)\n", i+2, d.Reason)
			continue
		}
		fmt.Fprintf(out, "  row %d -> page %d (score %.1f, %s)\n", i+2, d.Page+1, d.Score, d.Reason)
	}
	if len(r.Assignment.Details) > shown {
		fmt.Fprintf(out, "  ... %d more\n", len(r.Assignment.Details)-shown)
	}

	fmt.Fprintf(out, "\nPDF:    %s\nReport: %s\n", r.PDFPath, r.ReportPath)
	for _, o := range r.Uploaded {
		fmt.Fprintf(out, "Uploaded: %s\n", o.Key)
	}
}
