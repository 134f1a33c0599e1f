// Package scan searches folders of documents for identifiers with a bounded
// worker pool. A document that cannot be read is reported and skipped; it
// never aborts the scan.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/parser"
)

// DefaultWorkers bounds the pool when Scanner.Workers is unset.
const DefaultWorkers = 4

// Outcome is the result of processing one file. Err is set when the file
// could not be read, in which case Value is the zero value.
type Outcome[T any] struct {
	Path  string
	Value T
	Found bool
	Err   error
}

// Report aggregates the outcomes of a scan.
type Report[T any] struct {
	// Results holds the files with a hit, most recently modified first.
	Results []T
	// Failures holds the files that could not be read.
	Failures  []Outcome[T]
	Scanned   int
	Total     int
	Cancelled bool
}

// Event reports scan progress after each file.
type Event struct {
	Processed int
	Total     int
	Found     int
	Path      string
	Err       error
}

// ProgressFunc receives progress events. It may be called from several
// goroutines, one call at a time.
type ProgressFunc func(Event)

// Scanner searches folders of PDF documents.
type Scanner struct {
	Opener    document.Opener
	Extractor *parser.Extractor
	Workers   int
	Recursive bool
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

// Collect lists the PDF files under root, smallest first so quick hits
// surface early. Subdirectories are walked only when Recursive is set.
func (s *Scanner) Collect(root string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("invalid folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path must be a directory: %s", root)
	}

	type sized struct {
		path string
		size int64
	}
	var files []sized
	walkFn := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.logger().Warn("skipping unreadable path", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if !s.Recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pdf") {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, sized{path: path, size: fi.Size()})
		return nil
	}
	if err := filepath.WalkDir(root, walkFn); err != nil {
		return nil, fmt.Errorf("scan directory: %w", err)
	}

	sort.SliceStable(files, func(i, j int) bool {
		if files[i].size != files[j].size {
			return files[i].size < files[j].size
		}
		return files[i].path < files[j].path
	})
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}

func (s *Scanner) poolSize(files int) int {
	if files < 2 {
		return 1
	}
	workers := s.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return min(workers, runtime.NumCPU(), files)
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func (s *Scanner) extractor() *parser.Extractor {
	if s.Extractor == nil {
		return &parser.Extractor{}
	}
	return s.Extractor
}

// run processes files with the worker pool. Work is handed out one file at a
// time and ctx is checked before each hand-out; files already handed out run
// to completion.
func run[T any](ctx context.Context, s *Scanner, files []string, process func(context.Context, string) (T, bool, error), progress ProgressFunc) ([]Outcome[T], bool) {
	concurrency := s.poolSize(len(files))
	s.logger().Info("starting folder scan", "files", len(files), "workers", concurrency)

	var (
		processed  atomic.Int32
		found      atomic.Int32
		progressMu sync.Mutex
		outcomes   []Outcome[T]
		outcomesMu sync.Mutex
	)

	// Dispatched work must not see cancellation.
	workCtx := context.WithoutCancel(ctx)
	workChan := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for path := range workChan {
				start := time.Now()
				value, hit, err := process(workCtx, path)
				o := Outcome[T]{Path: path, Value: value, Found: hit && err == nil, Err: err}

				if err != nil {
					s.logger().Warn("failed to scan file", "worker", workerID, "file", path, "error", err)
					s.Metrics.ScanFailed()
				} else {
					s.Metrics.FileScanned(time.Since(start), o.Found)
				}
				if o.Found {
					found.Add(1)
				}

				outcomesMu.Lock()
				outcomes = append(outcomes, o)
				outcomesMu.Unlock()

				progressMu.Lock()
				n := processed.Add(1)
				s.logger().Debug("scanned file", "worker", workerID, "file", filepath.Base(path), "progress", fmt.Sprintf("%d/%d", n, len(files)))
				if progress != nil {
					progress(Event{Processed: int(n), Total: len(files), Found: int(found.Load()), Path: path, Err: err})
				}
				progressMu.Unlock()
			}
		}(i)
	}

	cancelled := false
dispatch:
	for _, f := range files {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		select {
		case workChan <- f:
		case <-ctx.Done():
			cancelled = true
			break dispatch
		}
	}
	close(workChan)
	wg.Wait()

	s.logger().Info("folder scan complete", "processed", processed.Load(), "found", found.Load(), "cancelled", cancelled)
	return outcomes, cancelled
}

func newReport[T any](outcomes []Outcome[T], total int, cancelled bool, modTime func(T) time.Time) *Report[T] {
	r := &Report[T]{Scanned: len(outcomes), Total: total, Cancelled: cancelled}
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Path < outcomes[j].Path })
	for _, o := range outcomes {
		switch {
		case o.Err != nil:
			r.Failures = append(r.Failures, o)
		case o.Found:
			r.Results = append(r.Results, o.Value)
		}
	}
	sort.SliceStable(r.Results, func(i, j int) bool {
		return modTime(r.Results[i]).After(modTime(r.Results[j]))
	})
	return r
}
