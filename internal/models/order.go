package models

import "time"

// Tier names the recency signal that decided between candidate documents.
type Tier string

const (
	TierDocDate      Tier = "doc_date"
	TierFilenameDate Tier = "filename_date"
	TierModifiedTime Tier = "modified_time"
)

// OrderMatch is the result of finding one identifier inside one document.
type OrderMatch struct {
	Identifier   string     `json:"identifier"`
	Path         string     `json:"path"`
	Pages        []int      `json:"pages"` // 1-based
	DocDate      *time.Time `json:"doc_date,omitempty"`
	FilenameDate *time.Time `json:"filename_date,omitempty"`
	ModTime      time.Time  `json:"modified_time"`
	Priority     int64      `json:"priority"`
}

// Tier returns the highest recency tier the match carries.
func (m OrderMatch) Tier() Tier {
	switch {
	case m.DocDate != nil:
		return TierDocDate
	case m.FilenameDate != nil:
		return TierFilenameDate
	default:
		return TierModifiedTime
	}
}

// SearchResult groups every document that claims an identifier with the winner.
type SearchResult struct {
	Identifier string       `json:"identifier"`
	Best       OrderMatch   `json:"best"`
	All        []OrderMatch `json:"all"`
	DecidedBy  Tier         `json:"decided_by"`
}
