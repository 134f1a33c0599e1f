// Package document reads page text from paginated documents and writes
// reordered, annotated or extracted copies of them.
package document

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	// ErrNoTextLayer is returned for documents whose pages carry no extractable text.
	ErrNoTextLayer = errors.New("document has no text layer")
	// ErrPageOutOfRange is returned when a page index does not exist in the source.
	ErrPageOutOfRange = errors.New("page out of range")
)

// Document is an opened, read-only paginated document.
type Document interface {
	Path() string
	PageCount() int
	// PageText returns the plain text of the zero-based page i.
	PageText(i int) (string, error)
}

// Opener opens documents by path.
type Opener interface {
	Open(ctx context.Context, path string) (Document, error)
}

// Assembler writes new documents composed from the pages of a source.
type Assembler interface {
	// Reorder writes dst with the zero-based pages of src in the given order.
	// Repeats and omissions are copied as given.
	Reorder(ctx context.Context, src string, order []int, dst string) error
	// Annotate writes dst as a copy of src with a small label stamped on each
	// zero-based page present in labels. Other pages pass through unchanged.
	Annotate(ctx context.Context, src string, labels map[int]string, dst string) error
	// Extract writes dst with the one-based pages of src.
	Extract(ctx context.Context, src string, pages []int, dst string) error
}

const (
	sampledPages  = 5
	minPageChars  = 50
	textPageRatio = 0.8
)

// HasTextLayer checks the first pages of doc for extractable text. At least
// 80% of the sampled pages must carry more than 50 characters of trimmed text.
func HasTextLayer(doc Document) error {
	n := min(sampledPages, doc.PageCount())
	if n == 0 {
		return fmt.Errorf("%s: %w", doc.Path(), ErrNoTextLayer)
	}

	withText := 0
	for i := 0; i < n; i++ {
		text, err := doc.PageText(i)
		if err != nil {
			continue
		}
		if utf8.RuneCountInString(strings.TrimSpace(text)) > minPageChars {
			withText++
		}
	}
	if float64(withText) < float64(n)*textPageRatio {
		return fmt.Errorf("%s: %d of %d sampled pages carry text: %w", doc.Path(), withText, n, ErrNoTextLayer)
	}
	return nil
}

// Texts returns the text of every page of doc. Pages whose text cannot be
// read yield an empty string.
func Texts(ctx context.Context, doc Document) ([]string, error) {
	texts := make([]string, doc.PageCount())
	for i := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.PageText(i)
		if err != nil {
			continue
		}
		texts[i] = text
	}
	return texts, nil
}

func checkRange(order []int, count int, base int) error {
	for _, p := range order {
		if p < base || p >= count+base {
			return fmt.Errorf("page %d of %d: %w", p, count, ErrPageOutOfRange)
		}
	}
	return nil
}
