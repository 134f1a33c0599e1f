package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf> <pages> <out>",
	Short: "Copy selected pages of a PDF into a new file",
	Long: `Copy the pages selected by a range string into a new PDF.

Examples:
  pdfmatch extract invoices.pdf 1-3,5 selected.pdf`,
	Args: cobra.ExactArgs(3),
	RunE: runExtract,
}

func runExtract(cmd *cobra.Command, args []string) error {
	svc, cleanup, err := getSearchService()
	if err != nil {
		return err
	}
	defer cleanup()

	pages, err := svc.Extract(context.Background(), args[0], args[1], args[2])
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d pages to %s\n", len(pages), args[2])
	return nil
}
