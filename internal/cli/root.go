// Package cli provides the command-line interface for pdfmatch.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/service"
	"golang.org/x/term"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose bool

	// Global config, logger and metrics
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "pdfmatch",
	Short: "Reorder and look up order documents",
	Long: `pdfmatch reconciles an order list against the pages of a PDF.

It reorders the pages to follow the order list, writes a match report,
and finds the latest document that contains an order number in a folder
of PDFs.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if verbose {
			cfg.Log.Level = slog.LevelDebug
		}
		logger, closeLog = config.SetupLogger(cfg.Log, isTerminal() && !verbose)
		slog.SetDefault(logger)
		collector = metrics.NewCollector()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg.Metrics.Textfile != "" && collector != nil {
			if err := collector.WriteTextfile(cfg.Metrics.Textfile); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to write metrics: %v\n", err)
			}
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newBackend returns the PDF backend configured for labels.
func newBackend() *document.PDF {
	pdf := document.NewPDF(logger)
	pdf.LabelPoints = cfg.Match.LabelPoints
	return pdf
}

// openHistory opens the history store. A failure only disables history.
func openHistory() *history.Store {
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
		return nil
	}
	return store
}

// getSearchService creates the search service with history and printer.
// The returned cleanup closes the history store.
func getSearchService() (*service.SearchService, func(), error) {
	hist := openHistory()
	cmd := printer.NewCommand(cfg.Print.Command, logger)
	if cfg.Print.Timeout > 0 {
		cmd.Timeout = cfg.Print.Timeout
	}

	svc, err := service.NewSearchService(cfg, newBackend(), cmd, hist, collector, logger)
	if err != nil {
		if hist != nil {
			hist.Close()
		}
		return nil, nil, fmt.Errorf("init search: %w", err)
	}
	cleanup := func() {
		if hist != nil {
			hist.Close()
		}
	}
	return svc, cleanup, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(remoteCmd)
	rootCmd.AddCommand(versionCmd)
}

// isTerminal reports whether stdout is an interactive terminal.
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
