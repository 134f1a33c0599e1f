// Package parser extracts identifier, name, phone and address candidates
// from page text, and the dates used to rank competing documents.
package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/normalize"
)

// Candidates holds the raw matches found in one page of text, per field.
// Duplicates are suppressed within a field but not across fields.
type Candidates struct {
	Identifiers []string
	Names       []string
	Phones      []string
	Addresses   []string
}

var identifierPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z]-\d{6,}`),
	regexp.MustCompile(`[A-Z]{2,}-\d{4,}-\d{3,}`),
	regexp.MustCompile(`20\d{6,}`),
}

var (
	phoneFormatted = regexp.MustCompile(`010[-\s]?\d{3,4}[-\s]?\d{4}`)
	phoneCompact   = regexp.MustCompile(`010\d{7,8}`)
	phoneNoZero    = regexp.MustCompile(`(?:^|[^\d])(10\d{7,8})(?:[^\d]|$)`)
	phoneKeywords  = []string{"전화", "연락", "TEL", "PHONE", "HP", "MOBILE", "핸드폰", "휴대폰", "CALL"}
	phoneNearLabel = buildKeywordPatterns(phoneKeywords)
	bareDigitLine  = regexp.MustCompile(`^\d{8,10}$`)
)

var (
	hangulRun       = regexp.MustCompile(`[가-힣]{2,10}`)
	hangulSingle    = regexp.MustCompile(`(?:^|\s|,|\.|\(|\)|:)([가-힣])(?:\s|,|\.|\(|\)|:|$)`)
	latinCapitals   = regexp.MustCompile(`[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*`)
	latinUpperTwo   = regexp.MustCompile(`\b[A-Z]{2,}\s+[A-Z]{2,}\b`)
	latinUpperThree = regexp.MustCompile(`\b[A-Z]{2,}\s+[A-Z]{2,}\s+[A-Z]{2,}\b`)
)

var (
	parenthesized   = regexp.MustCompile(`\(([^)]{10,})\)`)
	addressKeywords = []string{"시", "구", "동", "로", "길", "번지", "호", "아파트", "빌딩"}
)

func buildKeywordPatterns(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		out = append(out, regexp.MustCompile(`(?i)`+regexp.QuoteMeta(kw)+`[^\d]{0,50}?(\d{7,10})`))
	}
	return out
}

// Extractor finds candidates in page text. The zero value uses the built-in
// identifier patterns only.
type Extractor struct {
	extra *regexp.Regexp
}

// NewExtractor returns an Extractor that also treats matches of pattern as
// identifiers. An empty pattern adds nothing.
func NewExtractor(pattern string) (*Extractor, error) {
	if strings.TrimSpace(pattern) == "" {
		return &Extractor{}, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile identifier pattern: %w", err)
	}
	return &Extractor{extra: re}, nil
}

// Candidates scans text. It never fails; a field without matches is nil.
func (e *Extractor) Candidates(text string) Candidates {
	text = normalize.Clean(text)
	return Candidates{
		Identifiers: e.identifiers(text),
		Names:       names(text),
		Phones:      phones(text),
		Addresses:   addresses(text),
	}
}

// Page extracts the candidates of text and normalizes them into a Page.
// Values that normalize to the empty string are dropped.
func (e *Extractor) Page(index int, text string) models.Page {
	c := e.Candidates(text)
	return models.Page{
		Index:       index,
		Text:        text,
		Identifiers: normalizeAll(c.Identifiers, normalize.Identifier),
		Names:       normalizeAll(c.Names, normalize.Name),
		Phones:      normalizeAll(c.Phones, normalize.Phone),
		Addresses:   normalizeAll(c.Addresses, normalize.Address),
	}
}

// Identifiers returns the normalized identifier candidates of text.
func (e *Extractor) Identifiers(text string) []string {
	return normalizeAll(e.identifiers(normalize.Clean(text)), normalize.Identifier)
}

func (e *Extractor) identifiers(text string) []string {
	var s seen
	for _, re := range identifierPatterns {
		s.addAll(re.FindAllString(text, -1))
	}
	if e != nil && e.extra != nil {
		s.addAll(e.extra.FindAllString(text, -1))
	}
	return s.list
}

// ExtractCandidates scans text with the default Extractor.
func ExtractCandidates(text string) Candidates {
	var e Extractor
	return e.Candidates(text)
}

// ExtractPage builds a Page from text with the default Extractor.
func ExtractPage(index int, text string) models.Page {
	var e Extractor
	return e.Page(index, text)
}

func names(text string) []string {
	var s seen
	s.addAll(hangulRun.FindAllString(text, -1))
	s.addAll(submatches(hangulSingle, text))
	s.addAll(latinCapitals.FindAllString(text, -1))
	s.addAll(latinUpperTwo.FindAllString(text, -1))
	s.addAll(latinUpperThree.FindAllString(text, -1))
	return s.list
}

func phones(text string) []string {
	var s seen
	s.addAll(phoneFormatted.FindAllString(text, -1))
	s.addAll(phoneCompact.FindAllString(text, -1))
	s.addAll(submatches(phoneNoZero, text))
	for _, re := range phoneNearLabel {
		s.addAll(submatches(re, text))
	}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); bareDigitLine.MatchString(line) {
			s.add(line)
		}
	}
	return s.list
}

func addresses(text string) []string {
	var s seen
	s.addAll(submatches(parenthesized, text))
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len([]rune(line)) < 10 {
			continue
		}
		for _, kw := range addressKeywords {
			if strings.Contains(line, kw) {
				s.add(line)
				break
			}
		}
	}
	return s.list
}

func submatches(re *regexp.Regexp, text string) []string {
	var out []string
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

func normalizeAll(raw []string, fn func(string) string) []string {
	var s seen
	for _, r := range raw {
		if n := fn(r); n != "" {
			s.add(n)
		}
	}
	return s.list
}

// seen is an insertion-ordered string set.
type seen struct {
	set  map[string]struct{}
	list []string
}

func (s *seen) add(v string) {
	if s.set == nil {
		s.set = make(map[string]struct{})
	}
	if _, ok := s.set[v]; ok {
		return
	}
	s.set[v] = struct{}{}
	s.list = append(s.list, v)
}

func (s *seen) addAll(vs []string) {
	for _, v := range vs {
		s.add(v)
	}
}
