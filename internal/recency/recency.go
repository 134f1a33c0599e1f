// Package recency picks the authoritative document among several that claim
// the same identifier. A date printed in the document outranks a date in the
// file name, which outranks the file modification time.
package recency

import (
	"errors"
	"sort"
	"time"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/sprjihoon/pdf01/internal/parser"
)

// ErrNoMatches is returned by SelectBest for an empty candidate list.
var ErrNoMatches = errors.New("no matches to select from")

const (
	docDateWeight      = 1_000_000
	filenameDateWeight = 1_000
)

// Priority scores m by its highest tier: document date seconds times 10^6,
// else filename date seconds times 10^3, else modification time seconds.
func Priority(m models.OrderMatch) int64 {
	switch {
	case m.DocDate != nil:
		return m.DocDate.Unix() * docDateWeight
	case m.FilenameDate != nil:
		return m.FilenameDate.Unix() * filenameDateWeight
	default:
		return m.ModTime.Unix()
	}
}

// Build assembles the OrderMatch of identifier found on pages of the file at
// path. The filename date is derived from path.
func Build(identifier, path string, pages []int, docDate *time.Time, modTime time.Time) models.OrderMatch {
	m := models.OrderMatch{
		Identifier:   identifier,
		Path:         path,
		Pages:        pages,
		DocDate:      docDate,
		FilenameDate: parser.FilenameDate(path),
		ModTime:      modTime,
	}
	m.Priority = Priority(m)
	return m
}

// SelectBest returns the most recent match and the tier it won on.
//
// Matches are compared by tier first and by the timestamp of that tier second,
// so a document date always beats a filename date whatever the magnitudes.
// Ties fall back to modification time and then path.
func SelectBest(matches []models.OrderMatch) (models.OrderMatch, models.Tier, error) {
	if len(matches) == 0 {
		return models.OrderMatch{}, "", ErrNoMatches
	}

	best := matches[0]
	for _, m := range matches[1:] {
		if newer(m, best) {
			best = m
		}
	}
	return best, best.Tier(), nil
}

// Sort orders matches from most to least recent.
func Sort(matches []models.OrderMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return newer(matches[i], matches[j])
	})
}

func newer(a, b models.OrderMatch) bool {
	if ra, rb := rank(a.Tier()), rank(b.Tier()); ra != rb {
		return ra > rb
	}
	if ta, tb := tierTime(a), tierTime(b); !ta.Equal(tb) {
		return ta.After(tb)
	}
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	return a.Path < b.Path
}

func rank(t models.Tier) int {
	switch t {
	case models.TierDocDate:
		return 2
	case models.TierFilenameDate:
		return 1
	default:
		return 0
	}
}

func tierTime(m models.OrderMatch) time.Time {
	switch {
	case m.DocDate != nil:
		return *m.DocDate
	case m.FilenameDate != nil:
		return *m.FilenameDate
	default:
		return m.ModTime
	}
}
