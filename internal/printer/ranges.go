// Package printer formats page ranges and hands documents to an external
// print command.
package printer

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned for page range strings that do not parse or
// reach outside the document.
var ErrInvalidRange = errors.New("invalid page range")

// PageRanges formats 1-based pages as a compact range string such as "1-3,5".
// Input order and duplicates do not matter.
func PageRanges(pages []int) string {
	if len(pages) == 0 {
		return ""
	}
	sorted := append([]int(nil), pages...)
	sort.Ints(sorted)

	var parts []string
	start, end := sorted[0], sorted[0]
	flush := func() {
		if start == end {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, end))
		}
	}
	for _, p := range sorted[1:] {
		switch {
		case p == end:
		case p == end+1:
			end = p
		default:
			flush()
			start, end = p, p
		}
	}
	flush()
	return strings.Join(parts, ",")
}

// ParseRanges expands a range string like "1,3-5" into ascending, distinct
// 1-based pages, each within 1..total.
func ParseRanges(s string, total int) ([]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty range: %w", ErrInvalidRange)
	}

	seen := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		start, end, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		if start > end {
			return nil, fmt.Errorf("range %q starts after it ends: %w", part, ErrInvalidRange)
		}
		if start < 1 || end > total {
			return nil, fmt.Errorf("range %q outside 1-%d: %w", part, total, ErrInvalidRange)
		}
		for p := start; p <= end; p++ {
			seen[p] = true
		}
	}

	pages := make([]int, 0, len(seen))
	for p := range seen {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

func parsePart(part string) (int, int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("page %q: %w", part, ErrInvalidRange)
	}
	if !isRange {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("page %q: %w", part, ErrInvalidRange)
	}
	return start, end, nil
}
