package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/history"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/normalize"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/printer"
	"github.com/sprjihoon/pdf01/internal/recency"
	"github.com/sprjihoon/pdf01/internal/scan"
)

// SearchService finds the authoritative document of an identifier in a
// folder and prints its pages.
type SearchService struct {
	backend Backend
	scanner scan.Scanner
	printer printer.Printer
	history *history.Store // nil disables history logging
	logger  *slog.Logger
	cfg     config.Config
}

// NewSearchService creates a search service. printer and hist may be nil.
func NewSearchService(cfg config.Config, backend Backend, p printer.Printer, hist *history.Store, m *metrics.Collector, logger *slog.Logger) (*SearchService, error) {
	extractor, err := parser.NewExtractor(cfg.Match.IdentifierPattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SearchService{
		backend: backend,
		scanner: scan.Scanner{
			Opener:    backend,
			Extractor: extractor,
			Workers:   cfg.Search.Workers,
			Recursive: cfg.Search.Recursive,
			Logger:    logger,
			Metrics:   m,
		},
		printer: p,
		history: hist,
		logger:  logger,
		cfg:     cfg,
	}, nil
}

// SetRecursive overrides whether subfolders are searched.
func (s *SearchService) SetRecursive(recursive bool) {
	s.scanner.Recursive = recursive
}

// SetWorkers overrides the scanner pool bound.
func (s *SearchService) SetWorkers(n int) {
	s.scanner.Workers = n
}

// Find scans folder for identifier and resolves the latest document. The
// result is nil when no document contains the identifier. The report lists
// the files that could not be read and whether the scan was cancelled.
func (s *SearchService) Find(ctx context.Context, folder, identifier string, progress scan.ProgressFunc) (*models.SearchResult, *scan.Report[scan.Hit], error) {
	start := time.Now()
	folder = s.folder(folder)

	rep, err := s.scanner.Search(ctx, folder, identifier, progress)
	if err != nil {
		return nil, nil, err
	}

	id := normalize.Identifier(identifier)
	all := make([]models.OrderMatch, len(rep.Results))
	for i, hit := range rep.Results {
		all[i] = recency.Build(id, hit.Path, hit.Pages, hit.DocDate, hit.ModTime)
	}

	var result *models.SearchResult
	if len(all) > 0 {
		result, err = resolve(id, all)
		if err != nil {
			return nil, nil, err
		}
	}

	s.logSearch(ctx, id, folder, result, time.Since(start))
	s.logger.Info("search finished",
		"identifier", id,
		"folder", folder,
		"found", result != nil,
		"files", rep.Total,
		"failures", len(rep.Failures),
		"cancelled", rep.Cancelled,
		"duration", time.Since(start))
	return result, rep, nil
}

// FindAll indexes every identifier in folder and resolves the latest
// document of each. Results are sorted by identifier.
func (s *SearchService) FindAll(ctx context.Context, folder string, progress scan.ProgressFunc) ([]models.SearchResult, *scan.Report[scan.FileIndex], error) {
	folder = s.folder(folder)
	rep, err := s.scanner.Index(ctx, folder, progress)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[string][]models.OrderMatch)
	for _, idx := range rep.Results {
		for _, id := range idx.Order {
			byID[id] = append(byID[id], recency.Build(id, idx.Path, idx.Identifiers[id], idx.DocDate, idx.ModTime))
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]models.SearchResult, 0, len(ids))
	for _, id := range ids {
		r, err := resolve(id, byID[id])
		if err != nil {
			return nil, nil, err
		}
		results = append(results, *r)
	}
	s.logger.Info("index finished", "folder", folder, "identifiers", len(results), "files", rep.Total, "failures", len(rep.Failures))
	return results, rep, nil
}

// PrintOptions configure a print job. Zero values fall back to the
// configured printer settings.
type PrintOptions struct {
	Printer string
	Copies  int
	Duplex  *bool
	// Extract copies the matched pages into a temporary document first,
	// for print commands that cannot select pages.
	Extract bool
}

// Print sends the matched pages of the best document of result to the printer.
func (s *SearchService) Print(ctx context.Context, result *models.SearchResult, opts PrintOptions) (*printer.Job, error) {
	if result == nil {
		return nil, recency.ErrNoMatches
	}
	if s.printer == nil {
		return nil, errors.New("no printer configured")
	}
	best := result.Best

	job := printer.Job{
		Path:    best.Path,
		Pages:   printer.PageRanges(best.Pages),
		Printer: opts.Printer,
		Copies:  opts.Copies,
		Duplex:  boolOr(opts.Duplex, s.cfg.Print.Duplex),
	}
	if job.Printer == "" {
		job.Printer = s.cfg.Print.Printer
	}
	if job.Copies < 1 {
		job.Copies = max(s.cfg.Print.Copies, 1)
	}

	if opts.Extract {
		dir, err := os.MkdirTemp("", "pdfmatch-print-")
		if err != nil {
			return nil, fmt.Errorf("create temp dir: %w", err)
		}
		defer os.RemoveAll(dir)

		tmp := filepath.Join(dir, result.Identifier+".pdf")
		if err := s.backend.Extract(ctx, best.Path, best.Pages, tmp); err != nil {
			return nil, fmt.Errorf("extract pages: %w", err)
		}
		job.Path, job.Pages = tmp, ""
	}

	start := time.Now()
	err := s.printer.Print(ctx, job)
	s.logPrint(ctx, result, job, err, time.Since(start))
	if err != nil {
		return nil, err
	}
	// Report the source document, not the temporary copy.
	job.Path = best.Path
	job.Pages = printer.PageRanges(best.Pages)
	return &job, nil
}

// Extract copies the pages of src selected by ranges ("1-3,5") into dst.
func (s *SearchService) Extract(ctx context.Context, src, ranges, dst string) ([]int, error) {
	doc, err := s.backend.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	pages, err := printer.ParseRanges(ranges, doc.PageCount())
	if err != nil {
		return nil, err
	}
	if err := s.backend.Extract(ctx, src, pages, dst); err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}
	return pages, nil
}

func (s *SearchService) folder(folder string) string {
	if folder == "" {
		return s.cfg.Search.Folder
	}
	return folder
}

func (s *SearchService) logSearch(ctx context.Context, id, folder string, result *models.SearchResult, d time.Duration) {
	if s.history == nil {
		return
	}
	e := history.SearchEntry{Identifier: id, Folder: folder, DurationMs: d.Milliseconds()}
	if result != nil {
		best := result.Best
		modTime := best.ModTime
		e.Found = true
		e.UsedFile = best.Path
		e.DocDate = best.DocDate
		e.FilenameDate = best.FilenameDate
		e.ModTime = &modTime
		e.PageRanges = printer.PageRanges(best.Pages)
		e.DecidedBy = string(result.DecidedBy)
		e.TotalMatches = len(result.All)
	}
	if _, err := s.history.LogSearch(ctx, e); err != nil {
		s.logger.Warn("failed to log search", "identifier", id, "error", err)
	}
}

func (s *SearchService) logPrint(ctx context.Context, result *models.SearchResult, job printer.Job, printErr error, d time.Duration) {
	if s.history == nil {
		return
	}
	e := history.PrintEntry{
		Identifier: result.Identifier,
		FilePath:   result.Best.Path,
		PageRanges: printer.PageRanges(result.Best.Pages),
		Printer:    job.Printer,
		Copies:     job.Copies,
		Duplex:     job.Duplex,
		Success:    printErr == nil,
		DurationMs: d.Milliseconds(),
	}
	if printErr != nil {
		e.Error = printErr.Error()
	}
	if _, err := s.history.LogPrint(ctx, e); err != nil {
		s.logger.Warn("failed to log print", "identifier", result.Identifier, "error", err)
	}
}

func resolve(id string, all []models.OrderMatch) (*models.SearchResult, error) {
	best, tier, err := recency.SelectBest(all)
	if err != nil {
		return nil, err
	}
	recency.Sort(all)
	return &models.SearchResult{Identifier: id, Best: best, All: all, DecidedBy: tier}, nil
}
