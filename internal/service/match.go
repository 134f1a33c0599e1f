// Package service wires the matching and search pipelines to their inputs
// and sinks.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sprjihoon/pdf01/internal/config"
	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/matcher"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/parser"
	"github.com/sprjihoon/pdf01/internal/records"
	"github.com/sprjihoon/pdf01/internal/report"
	"github.com/sprjihoon/pdf01/internal/storage"
)

// OutputBase is the file name prefix of match outputs.
const OutputBase = "ordered"

// ErrInvalidName is returned by Download for names that are not plain file
// names.
var ErrInvalidName = errors.New("invalid file name")

// ProgressFunc receives human readable progress lines.
type ProgressFunc func(msg string)

// Backend opens documents and writes reassembled ones.
type Backend interface {
	document.Opener
	document.Assembler
}

// MatchService reorders a document to follow a record set.
type MatchService struct {
	backend   Backend
	extractor *parser.Extractor
	store     storage.Storage // nil disables uploads
	metrics   *metrics.Collector
	logger    *slog.Logger
	cfg       config.MatchConfig
	prefix    string
	expiry    time.Duration
	now       func() time.Time
}

// NewMatchService creates a match service. store may be nil.
func NewMatchService(cfg config.Config, backend Backend, store storage.Storage, m *metrics.Collector, logger *slog.Logger) (*MatchService, error) {
	extractor, err := parser.NewExtractor(cfg.Match.IdentifierPattern)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchService{
		backend:   backend,
		extractor: extractor,
		store:     store,
		metrics:   m,
		logger:    logger,
		cfg:       cfg.Match,
		prefix:    cfg.Storage.Prefix,
		expiry:    cfg.Storage.LinkExpiry,
		now:       time.Now,
	}, nil
}

// MatchRequest describes one match run. Records takes precedence over
// RecordsPath. Nil option pointers fall back to the configured values.
type MatchRequest struct {
	RecordsPath string
	Records     []models.Record
	PDFPath     string
	OutputDir   string
	Fuzzy       *bool
	Threshold   *float64
	Label       *bool
	// ByName scores pages on recipient names instead of identifiers.
	ByName bool
	Upload bool
	// Progress receives one line per pipeline step when set.
	Progress ProgressFunc
}

// MatchResult summarizes a finished run.
type MatchResult struct {
	RunID      string               `json:"run_id"`
	PDFPath    string               `json:"pdf_path"`
	ReportPath string               `json:"report_path"`
	Records    int                  `json:"records"`
	Pages      int                  `json:"pages"`
	Matched    int                  `json:"matched"`
	Unmatched  int                  `json:"unmatched"`
	Leftover   int                  `json:"leftover"`
	Order      []int                `json:"order"`
	Labels     map[int]string       `json:"labels,omitempty"`
	Assignment models.Assignment    `json:"assignment"`
	Uploaded   []storage.ObjectInfo `json:"uploaded,omitempty"`
	// Links maps the file name of each upload to a time-limited download URL.
	Links map[string]string `json:"links,omitempty"`
}

// Run executes the match pipeline: check the text layer, load records,
// assign pages, then write the reordered document and its report.
func (s *MatchService) Run(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()
	runID := uuid.New().String()
	log := s.logger.With("run_id", runID, "pdf", req.PDFPath)

	progress("checking document text layer")
	doc, err := s.open(ctx, req.PDFPath)
	if err != nil {
		return nil, err
	}

	recs, err := s.loadRecords(req)
	if err != nil {
		return nil, err
	}
	progress(fmt.Sprintf("loaded %d records", len(recs)))

	texts, err := document.Texts(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	pages := make([]models.Page, len(texts))
	for i, text := range texts {
		pages[i] = s.extractor.Page(i, text)
	}
	progress(fmt.Sprintf("extracted text of %d pages", len(pages)))

	matchStart := time.Now()
	assignment := matcher.Assign(recs, pages, s.strategy(req))
	s.metrics.RecordTiming(metrics.OpMatch, time.Since(matchStart))

	matched := assignment.MatchedCount()
	unmatched := len(recs) - matched
	s.metrics.RecordsMatched(matched, unmatched)
	progress(fmt.Sprintf("matched %d records, %d unmatched, %d pages left over", matched, unmatched, len(assignment.Leftover)))

	order := matcher.FinalOrder(assignment, len(recs))
	if len(order) == 0 {
		return nil, fmt.Errorf("match %s: no pages to write", req.PDFPath)
	}

	outDir := req.OutputDir
	if outDir == "" {
		outDir = s.cfg.OutputDir
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	pdfPath, reportPath, err := OutputPaths(outDir, OutputBase, s.now())
	if err != nil {
		return nil, err
	}

	assembleStart := time.Now()
	if err := s.backend.Reorder(ctx, req.PDFPath, order, pdfPath); err != nil {
		return nil, fmt.Errorf("write ordered document: %w", err)
	}
	var labels map[int]string
	if boolOr(req.Label, s.cfg.Label) {
		labels = matcher.Labels(recs, assignment)
		if err := s.backend.Annotate(ctx, pdfPath, labels, pdfPath); err != nil {
			return nil, fmt.Errorf("label ordered document: %w", err)
		}
	}
	s.metrics.RecordTiming(metrics.OpAssemble, time.Since(assembleStart))
	progress("saved " + filepath.Base(pdfPath))

	if err := report.WriteCSV(reportPath, report.Rows(recs, assignment)); err != nil {
		return nil, err
	}
	progress("saved " + filepath.Base(reportPath))

	result := &MatchResult{
		RunID:      runID,
		PDFPath:    pdfPath,
		ReportPath: reportPath,
		Records:    len(recs),
		Pages:      len(pages),
		Matched:    matched,
		Unmatched:  unmatched,
		Leftover:   len(assignment.Leftover),
		Order:      order,
		Labels:     labels,
		Assignment: assignment,
	}

	if req.Upload {
		uploaded, err := s.upload(ctx, runID, pdfPath, reportPath)
		if err != nil {
			return nil, err
		}
		result.Uploaded = uploaded
		result.Links = s.links(ctx, log, uploaded)
		progress(fmt.Sprintf("uploaded %d files", len(uploaded)))
	}

	log.Info("match finished",
		"records", result.Records,
		"pages", result.Pages,
		"matched", matched,
		"unmatched", unmatched,
		"leftover", result.Leftover,
		"output", pdfPath,
		"duration", time.Since(start))
	return result, nil
}

// CheckDocument opens the document at docPath and fails with
// document.ErrNoTextLayer when it has no usable text.
func (s *MatchService) CheckDocument(ctx context.Context, docPath string) error {
	_, err := s.open(ctx, docPath)
	return err
}

func (s *MatchService) open(ctx context.Context, docPath string) (document.Document, error) {
	doc, err := s.backend.Open(ctx, docPath)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	if err := document.HasTextLayer(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Download opens the uploaded output name of run runID. The caller closes
// the reader.
func (s *MatchService) Download(ctx context.Context, runID, name string) (io.ReadCloser, storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, storage.ObjectInfo{}, storage.ErrNotConfigured
	}
	if !plainName(runID) || !plainName(name) {
		return nil, storage.ObjectInfo{}, fmt.Errorf("download %q of run %q: %w", name, runID, ErrInvalidName)
	}
	return s.store.Get(ctx, storage.Key(s.runPrefix(runID), name))
}

func (s *MatchService) runPrefix(runID string) string {
	return s.prefix + "/" + runID
}

func (s *MatchService) loadRecords(req MatchRequest) ([]models.Record, error) {
	recs := req.Records
	if recs == nil && req.RecordsPath != "" {
		var err error
		if recs, err = records.Load(req.RecordsPath); err != nil {
			return nil, err
		}
	}
	if len(recs) == 0 {
		return nil, records.ErrNoRecords
	}
	return recs, nil
}

func (s *MatchService) strategy(req MatchRequest) matcher.Strategy {
	fuzzy := boolOr(req.Fuzzy, s.cfg.Fuzzy)
	threshold := s.cfg.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if req.ByName {
		return matcher.NameStrategy{UseFuzzy: fuzzy, Threshold: threshold}
	}
	return matcher.IdentifierStrategy{UseFuzzy: fuzzy, Threshold: threshold}
}

func (s *MatchService) upload(ctx context.Context, runID string, paths ...string) ([]storage.ObjectInfo, error) {
	if s.store == nil {
		return nil, storage.ErrNotConfigured
	}
	prefix := s.runPrefix(runID)
	meta := map[string]string{"run-id": runID}

	infos := make([]storage.ObjectInfo, 0, len(paths))
	for _, p := range paths {
		key := storage.Key(prefix, p)
		info, err := storage.UploadFile(ctx, s.store, key, p, meta)
		if err != nil {
			s.discard(ctx, infos)
			return nil, err
		}
		info.Key = key
		infos = append(infos, info)
	}
	return infos, nil
}

// discard removes the objects of a run whose upload did not complete.
func (s *MatchService) discard(ctx context.Context, infos []storage.ObjectInfo) {
	for _, info := range infos {
		if err := s.store.Delete(ctx, info.Key); err != nil {
			s.logger.Warn("failed to remove partial upload", "key", info.Key, "error", err)
		}
	}
}

// links presigns a download URL per upload. Failures only cost the link.
func (s *MatchService) links(ctx context.Context, log *slog.Logger, infos []storage.ObjectInfo) map[string]string {
	if s.expiry <= 0 {
		return nil
	}
	links := make(map[string]string, len(infos))
	for _, info := range infos {
		u, err := s.store.PresignGet(ctx, info.Key, s.expiry)
		if err != nil {
			log.Warn("failed to presign download link", "key", info.Key, "error", err)
			continue
		}
		links[path.Base(info.Key)] = u
	}
	return links
}

var versionSuffix = regexp.MustCompile(`^_v(\d+)(?:\.pdf|_match_report\.csv)$`)

// OutputPaths returns the next free output pair in dir for the day of now:
// base_YYYYMMDD.pdf first, then base_YYYYMMDD_vN.pdf with N one above the
// highest version present. The unversioned pair counts as version 1.
func OutputPaths(dir, base string, now time.Time) (pdfPath, reportPath string, err error) {
	stem := base + "_" + now.Format("20060102")

	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", "", fmt.Errorf("list output dir: %w", err)
	}

	latest := 0
	for _, e := range entries {
		name := e.Name()
		if len(name) < len(stem) || name[:len(stem)] != stem {
			continue
		}
		rest := name[len(stem):]
		if rest == ".pdf" || rest == "_match_report.csv" {
			latest = max(latest, 1)
			continue
		}
		if m := versionSuffix.FindStringSubmatch(rest); m != nil {
			v, _ := strconv.Atoi(m[1])
			latest = max(latest, v)
		}
	}

	name := stem
	if latest > 0 {
		name = fmt.Sprintf("%s_v%d", stem, latest+1)
	}
	return filepath.Join(dir, name+".pdf"), filepath.Join(dir, name+"_match_report.csv"), nil
}

func plainName(s string) bool {
	return s != "" && s != "." && s != ".." && s == filepath.Base(s)
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}
