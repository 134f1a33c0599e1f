package scan

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sprjihoon/pdf01/internal/document"
	"github.com/sprjihoon/pdf01/internal/metrics"
	"github.com/sprjihoon/pdf01/internal/normalize"
	"github.com/sprjihoon/pdf01/internal/parser"
)

// MinPartialLength is the shortest identifier, on either side, that may
// match by substring instead of equality.
const MinPartialLength = 6

// Hit is a document in which an identifier was found.
type Hit struct {
	Path    string
	Pages   []int // 1-based
	DocDate *time.Time
	ModTime time.Time
}

// FileIndex lists every identifier found in one document.
type FileIndex struct {
	Path        string
	Identifiers map[string][]int // normalized identifier to 1-based pages
	Order       []string         // identifiers in first-seen order
	DocDate     *time.Time
	ModTime     time.Time
}

// Search looks for identifier in every PDF under root. A page matches when
// one of its identifier candidates equals the normalized identifier, or when
// either contains the other and both are at least MinPartialLength long.
//
// A cancelled ctx stops handing out files and returns what was collected
// with Cancelled set, not an error.
func (s *Scanner) Search(ctx context.Context, root, identifier string, progress ProgressFunc) (*Report[Hit], error) {
	want := normalize.Identifier(identifier)
	if want == "" {
		return nil, fmt.Errorf("search %q: identifier is empty after normalization", identifier)
	}

	files, err := s.Collect(root)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	outcomes, cancelled := run(ctx, s, files, func(ctx context.Context, path string) (Hit, bool, error) {
		return s.searchFile(ctx, path, want)
	}, progress)
	s.Metrics.RecordTiming(metrics.OpSearch, time.Since(start))

	return newReport(outcomes, len(files), cancelled, func(h Hit) time.Time { return h.ModTime }), nil
}

func (s *Scanner) searchFile(ctx context.Context, path, want string) (Hit, bool, error) {
	doc, texts, modTime, err := s.read(ctx, path)
	if err != nil {
		return Hit{}, false, err
	}

	var pages []int
	for i, text := range texts {
		if matches(want, s.extractor().Identifiers(text)) {
			pages = append(pages, i+1)
		}
	}
	if len(pages) == 0 {
		return Hit{}, false, nil
	}
	return Hit{Path: doc.Path(), Pages: pages, DocDate: firstPageDate(texts), ModTime: modTime}, true, nil
}

// Index lists every identifier candidate of every PDF under root.
func (s *Scanner) Index(ctx context.Context, root string, progress ProgressFunc) (*Report[FileIndex], error) {
	files, err := s.Collect(root)
	if err != nil {
		return nil, err
	}

	outcomes, cancelled := run(ctx, s, files, s.indexFile, progress)
	return newReport(outcomes, len(files), cancelled, func(f FileIndex) time.Time { return f.ModTime }), nil
}

func (s *Scanner) indexFile(ctx context.Context, path string) (FileIndex, bool, error) {
	doc, texts, modTime, err := s.read(ctx, path)
	if err != nil {
		return FileIndex{}, false, err
	}

	idx := FileIndex{Path: doc.Path(), Identifiers: make(map[string][]int), ModTime: modTime}
	for i, text := range texts {
		for _, id := range s.extractor().Identifiers(text) {
			pages, ok := idx.Identifiers[id]
			if !ok {
				idx.Order = append(idx.Order, id)
			}
			if len(pages) == 0 || pages[len(pages)-1] != i+1 {
				idx.Identifiers[id] = append(pages, i+1)
			}
		}
	}
	if len(idx.Order) == 0 {
		return FileIndex{}, false, nil
	}
	idx.DocDate = firstPageDate(texts)
	return idx, true, nil
}

func (s *Scanner) read(ctx context.Context, path string) (document.Document, []string, time.Time, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}
	doc, err := s.Opener.Open(ctx, path)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	texts, err := document.Texts(ctx, doc)
	if err != nil {
		return nil, nil, time.Time{}, err
	}
	return doc, texts, info.ModTime(), nil
}

func firstPageDate(texts []string) *time.Time {
	if len(texts) == 0 {
		return nil
	}
	return parser.DocumentDate(texts[0])
}

func matches(want string, candidates []string) bool {
	for _, c := range candidates {
		if c == want {
			return true
		}
	}
	if len(want) < MinPartialLength {
		return false
	}
	for _, c := range candidates {
		if len(c) >= MinPartialLength && (strings.Contains(c, want) || strings.Contains(want, c)) {
			return true
		}
	}
	return false
}
