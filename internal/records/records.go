// Package records loads the ordered record set from a spreadsheet or CSV file.
package records

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/sprjihoon/pdf01/internal/models"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrNoRecords is returned when the input holds no data rows.
	ErrNoRecords = errors.New("no records")
	// ErrNoIdentifierColumn is returned when no header names an identifier column.
	ErrNoIdentifierColumn = errors.New("no identifier column")
	// ErrUnsupportedFormat is returned for file types other than xlsx and csv.
	ErrUnsupportedFormat = errors.New("unsupported records format")
)

type field int

const (
	fieldIdentifier field = iota
	fieldName
	fieldPhone
	fieldAddress
)

// Header aliases per field, compared after lowercasing and dropping spaces
// and underscores. The identifier column is resolved first.
var aliases = [...][]string{
	fieldIdentifier: {"주문번호", "order", "ordernumber", "ordernum", "orderno", "orderid", "주문", "오더", "오더번호", "계약번호", "거래번호", "구매번호"},
	fieldName:       {"구매자명", "name", "buyer", "customer", "이름", "성명", "구매자", "수령자명", "수령자", "받는사람", "받는분", "고객명", "주문자명", "주문자"},
	fieldPhone:      {"전화번호", "phone", "tel", "mobile", "contact", "연락처", "핸드폰", "전화", "휴대폰", "휴대전화", "휴대폰번호", "수령자전화", "수령자휴대폰", "수령자연락처"},
	fieldAddress:    {"주소", "address", "addr", "location", "배송지", "배송주소", "수령지", "수령지주소", "도착지", "배달주소", "받는주소"},
}

// Load reads the records of the file at path. The first non-blank row is the
// header; blank rows are dropped and Row numbers the remaining rows from zero.
// SourceRow keeps the row number of each record in the file.
func Load(path string) ([]models.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, fmt.Errorf("load %s: %w", path, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, err
	}
	records, err := FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return records, nil
}

// FromRows builds records from a header row followed by data rows. rows[i]
// is taken to be sheet row i+1.
func FromRows(rows [][]string) ([]models.Record, error) {
	header := slices.IndexFunc(rows, func(row []string) bool { return !blank(row) })
	if header < 0 {
		return nil, ErrNoRecords
	}
	cols, err := mapColumns(rows[header])
	if err != nil {
		return nil, err
	}

	var out []models.Record
	for i := header + 1; i < len(rows); i++ {
		row := rows[i]
		rec := models.Record{
			Identifier: cell(row, cols[fieldIdentifier]),
			Name:       cell(row, cols[fieldName]),
			Phone:      cell(row, cols[fieldPhone]),
			Address:    cell(row, cols[fieldAddress]),
		}
		if rec.Identifier == "" && rec.Name == "" && rec.Phone == "" && rec.Address == "" {
			continue
		}
		rec.Row = len(out)
		rec.SourceRow = i + 1
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, ErrNoRecords
	}
	return out, nil
}

// mapColumns resolves the column index of each field, -1 when absent.
// An exact alias beats a partial one, and a column serves one field only.
func mapColumns(header []string) ([len(aliases)]int, error) {
	var cols [len(aliases)]int
	for i := range cols {
		cols[i] = -1
	}
	clean := make([]string, len(header))
	for i, h := range header {
		clean[i] = cleanHeader(h)
	}
	claimed := make(map[int]bool)

	for f := range aliases {
		cols[f] = findColumn(clean, aliases[f], claimed)
		if cols[f] >= 0 {
			claimed[cols[f]] = true
		}
	}
	if cols[fieldIdentifier] < 0 {
		return cols, fmt.Errorf("header %q: %w", header, ErrNoIdentifierColumn)
	}
	return cols, nil
}

func findColumn(header, names []string, claimed map[int]bool) int {
	for _, name := range names {
		for i, h := range header {
			if !claimed[i] && h == name {
				return i
			}
		}
	}
	for _, name := range names {
		for i, h := range header {
			if !claimed[i] && h != "" && strings.Contains(h, name) {
				return i
			}
		}
	}
	return -1
}

func cleanHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s: %w", path, ErrNoRecords)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv %s: %w", path, err)
		}
		// the reader skips empty lines; pad them back so indexes track lines
		line, _ := r.FieldPos(0)
		for len(rows) < line-1 {
			rows = append(rows, nil)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
