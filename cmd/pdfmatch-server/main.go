// Package main provides the HTTP API server for pdfmatch.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/server"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/storage"
	"github.com/sprjihoon/pdf01/internal/tracing"
)

// Version is set at build time.
var Version = "0.1.0"

func main() {
	enableRuns := flag.Bool("runs", false, "enable match runs on server-side files")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, closeLog := config.SetupLogger(cfg.Log, false)
	defer closeLog()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, "pdfmatch-server", logger)
	if err != nil {
		logger.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}
	defer shutdownTracing(context.Background())

	if err := run(ctx, cfg, *enableRuns, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, enableRuns bool, logger *slog.Logger) error {
	m := metrics.NewCollector()
	backend := document.NewPDF(logger)
	backend.LabelPoints = cfg.Match.LabelPoints

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
	} else {
		defer hist.Close()
	}

	extractor, err := parser.NewExtractor(cfg.Match.IdentifierPattern)
	if err != nil {
		return err
	}
	search, err := service.NewSearchService(cfg, backend, printer.NewCommand(cfg.Print.Command, logger), hist, m, logger)
	if err != nil {
		return err
	}

	deps := server.Deps{
		Search:    search,
		Jobs:      service.NewJobManager(logger),
		History:   hist,
		Metrics:   m,
		Extractor: extractor,
		Threshold: cfg.Match.Threshold,
	}
	if enableRuns {
		var store storage.Storage
		if cfg.StorageSettings().Enabled() {
			if store, err = storage.NewMinIO(ctx, cfg.StorageSettings()); err != nil {
				return err
			}
		}
		if deps.Match, err = service.NewMatchService(cfg, backend, store, m, logger); err != nil {
			return err
		}
	}

	srv, err := server.New(Version, deps, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx, ":"+cfg.Server.Port)
}
