package parser

import (
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// Labeled patterns are tried before the bare one.
var docDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`날짜[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`작성일[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`발행일[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`(?i)\bdate[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`(?i)issued on[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`(?i)prepared on[:\s]*(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
	regexp.MustCompile(`(\d{4})[.-](\d{1,2})[.-](\d{1,2})`),
}

var (
	filenameDate        = regexp.MustCompile(`(\d{4})[_-](\d{1,2})[_-](\d{1,2})`)
	filenameDateCompact = regexp.MustCompile(`(\d{4})(\d{2})(\d{2})`)
	eightDigits         = regexp.MustCompile(`\d{8}`)
)

// DocumentDate returns the date declared in the text of a document's first
// page. Only the first match of each pattern is considered; an impossible
// calendar date moves on to the next pattern.
func DocumentDate(text string) *time.Time {
	for _, re := range docDatePatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return &t
		}
	}
	return nil
}

// FilenameDate returns the date encoded in the base name of path, either
// separated (2024-01-31, 2024_1_31) or compact (20240131).
func FilenameDate(path string) *time.Time {
	name := filepath.Base(path)
	if m := filenameDate.FindStringSubmatch(name); m != nil {
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return &t
		}
	}
	if run := eightDigits.FindString(name); run != "" {
		m := filenameDateCompact.FindStringSubmatch(run)
		if t, ok := makeDate(m[1], m[2], m[3]); ok {
			return &t
		}
	}
	return nil
}

// makeDate builds local midnight of y-m-d, rejecting dates time.Date would normalize.
func makeDate(ys, ms, ds string) (time.Time, bool) {
	y, err1 := strconv.Atoi(ys)
	m, err2 := strconv.Atoi(ms)
	d, err3 := strconv.Atoi(ds)
	if err1 != nil || err2 != nil || err3 != nil || y < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.Local)
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, false
	}
	return t, true
}
