// Package models defines the values passed between the matching pipeline stages.
package models

// Record is one row of the structured input.
// Only Identifier takes part in the default scoring; the other fields are
// carried for reporting and for opt-in scoring strategies.
type Record struct {
	Row        int    `json:"row"`                  // zero-based ordinal in input order
	SourceRow  int    `json:"source_row,omitempty"` // 1-based row in the source sheet, 0 when not loaded from a file
	Identifier string `json:"identifier"`
	Name       string `json:"name,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
}

// RecordsFromIdentifiers wraps a pre-validated identifier sequence.
func RecordsFromIdentifiers(ids []string) []Record {
	records := make([]Record, len(ids))
	for i, id := range ids {
		records[i] = Record{Row: i, Identifier: id}
	}
	return records
}
