// Package main provides the pdfmatch MCP server on stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/service"
	"github.com/sprjihoon/pdf01/internal/tools"
)

const version = "0.1.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Stdout carries the protocol; logs go to stderr and the log file.
	logger, cleanup := config.SetupLogger(cfg.Log, false)
	defer cleanup()

	logger.Info("pdfmatch-mcp starting", "version", version, "folder", cfg.Search.Folder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	hist, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history disabled", "path", cfg.History.Path, "error", err)
	} else {
		defer hist.Close()
	}

	extractor, err := parser.NewExtractor(cfg.Match.IdentifierPattern)
	if err != nil {
		logger.Error("invalid identifier pattern", "error", err)
		os.Exit(1)
	}

	backend := document.NewPDF(logger)
	search, err := service.NewSearchService(cfg, backend, nil, hist, metrics.NewCollector(), logger)
	if err != nil {
		logger.Error("failed to create search service", "error", err)
		os.Exit(1)
	}

	server := tools.NewServer(version, &tools.Dependencies{
		Search:    search,
		History:   hist,
		Extractor: extractor,
		Threshold: cfg.Match.Threshold,
		Logger:    logger,
	})
	logger.Info("server ready, awaiting connections")

	if err := tools.Serve(ctx, server, logger); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}
