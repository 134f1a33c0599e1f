// Package report writes the per-record match report.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sprjihoon/pdf01/internal/models"
)

// UnmatchedPage is written in the page column of unmatched records.
const UnmatchedPage = "UNMATCHED"

// HeaderRows is the number of spreadsheet rows above the first record.
const HeaderRows = 1

// Columns of the CSV report, in order.
var Columns = []string{"row", "page", "score", "reason", "identifier", "name", "phone", "address"}

// Row is one line of the report.
type Row struct {
	// SheetRow is the 1-based spreadsheet row of the record.
	SheetRow   int     `json:"sheet_row"`
	Page       int     `json:"page"` // 1-based, 0 when unmatched
	Score      float64 `json:"score"`
	Reason     string  `json:"reason"`
	Identifier string  `json:"identifier"`
	Name       string  `json:"name,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Address    string  `json:"address,omitempty"`
}

// Rows builds one report row per record, in record order.
func Rows(records []models.Record, a models.Assignment) []Row {
	rows := make([]Row, len(records))
	for i, rec := range records {
		sheetRow := rec.SourceRow
		if sheetRow == 0 {
			sheetRow = rec.Row + HeaderRows + 1
		}
		row := Row{
			SheetRow:   sheetRow,
			Reason:     models.ReasonNoMatch,
			Identifier: rec.Identifier,
			Name:       rec.Name,
			Phone:      rec.Phone,
			Address:    rec.Address,
		}
		if i < len(a.Details) {
			d := a.Details[i]
			row.Score, row.Reason = d.Score, d.Reason
			if d.Matched() {
				row.Page = d.Page + 1
			}
		}
		rows[i] = row
	}
	return rows
}

func (r Row) record() []string {
	page := UnmatchedPage
	if r.Page > 0 {
		page = strconv.Itoa(r.Page)
	}
	return []string{
		strconv.Itoa(r.SheetRow),
		page,
		strconv.FormatFloat(r.Score, 'f', -1, 64),
		r.Reason,
		r.Identifier,
		r.Name,
		r.Phone,
		r.Address,
	}
}

// WriteCSV writes rows to path with a UTF-8 byte order mark so spreadsheet
// tools detect the encoding.
func WriteCSV(path string, rows []Row) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("\ufeff"); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	for _, r := range rows {
		if err := w.Write(r.record()); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
