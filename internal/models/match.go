package models

// Unmatched is the page sentinel of a record that was not assigned.
const Unmatched = -1

// Reason codes explaining a match score.
const (
	ReasonExact            = "exact"
	ReasonNoMatch          = "no_match"
	ReasonNoIdentifierData = "no_identifier_data"
	ReasonEmptyIdentifier  = "empty_identifier"
)

// MatchDetail is the per-record outcome of an assignment run.
type MatchDetail struct {
	Page   int     `json:"page"` // zero-based, Unmatched when not assigned
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// Matched reports whether the record was assigned a page.
func (d MatchDetail) Matched() bool {
	return d.Page != Unmatched
}

// Assignment is the result of running the greedy assignment over a record set.
type Assignment struct {
	// Pages maps record ordinal to assigned page index.
	Pages map[int]int `json:"pages"`
	// Leftover holds the page indices no record consumed, ascending.
	Leftover []int `json:"leftover"`
	// Details has one entry per record, in record order.
	Details []MatchDetail `json:"details"`
}

// MatchedCount returns the number of records that received a page.
func (a Assignment) MatchedCount() int {
	return len(a.Pages)
}
