package models

// Page is one unit of a paginated document together with its normalized candidates.
// Candidate lists hold only non-empty normalized strings in extraction order.
type Page struct {
	Index       int      `json:"index"` // zero-based
	Text        string   `json:"-"`
	Identifiers []string `json:"identifiers"`
	Names       []string `json:"names,omitempty"`
	Phones      []string `json:"phones,omitempty"`
	Addresses   []string `json:"addresses,omitempty"`
}

// HasIdentifier reports whether id is one of the page's identifier candidates.
func (p Page) HasIdentifier(id string) bool {
	for _, c := range p.Identifiers {
		if c == id {
			return true
		}
	}
	return false
}
