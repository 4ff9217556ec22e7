// Package sheet reads spreadsheet statements directly, without LLM
// involvement. The header row is discovered by keyword scoring; rows
// below it become records with the header cells as column names.
package sheet

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ledgerlens/ledgerlens/internal/fault"
	"github.com/ledgerlens/ledgerlens/internal/records"
)

// headerScanRows is how many leading rows are scanned for the header.
const headerScanRows = 20

// minHeaderMatches is the keyword-match floor for a row to qualify.
const minHeaderMatches = 2

// Parse decodes the workbook (xlsx) or CSV and returns the raw records.
// Column values stay strings here; numeric coercion happens in the
// schema broker like every other branch.
func Parse(data []byte) ([]records.Record, error) {
	rows, err := readRows(data)
	if err != nil {
		return nil, err
	}

	headerIdx, header := findHeader(rows)
	if headerIdx < 0 {
		return nil, fault.New(fault.KindExtractionEmpty, "no header row found in spreadsheet")
	}

	var out []records.Record
	for _, row := range rows[headerIdx+1:] {
		rec := records.Record{Values: make(map[string]any, len(header))}
		empty := true
		for i, col := range header {
			if col == "" {
				continue
			}
			var cell string
			if i < len(row) {
				cell = strings.TrimSpace(row[i])
			}
			if cell != "" {
				empty = false
			}
			rec.Columns = append(rec.Columns, col)
			rec.Values[col] = cell
		}
		if !empty {
			out = append(out, rec)
		}
	}
	return out, nil
}

// readRows returns the cell grid of the first sheet, or the CSV rows.
// XLSX files are zip containers; anything else is tried as CSV.
func readRows(data []byte) ([][]string, error) {
	if bytes.HasPrefix(data, []byte("PK")) {
		f, err := excelize.OpenReader(bytes.NewReader(data))
		if err != nil {
			return nil, fault.Wrap(fault.KindInputRejected, err, "unreadable workbook")
		}
		defer f.Close()

		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fault.New(fault.KindInputRejected, "workbook has no sheets")
		}
		rows, err := f.GetRows(sheets[0])
		if err != nil {
			return nil, fault.Wrap(fault.KindInputRejected, err, "read sheet %q", sheets[0])
		}
		return rows, nil
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fault.Wrap(fault.KindInputRejected, err, "unreadable spreadsheet")
	}
	return rows, nil
}

// findHeader scans the first rows for the one with the most header
// keyword matches (at least two). Returns the row index and the cleaned
// header cells, or -1.
func findHeader(rows [][]string) (int, []string) {
	bestIdx := -1
	bestScore := 0

	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		score := 0
		for _, cell := range rows[i] {
			if matchesHeaderKeyword(cell) {
				score++
			}
		}
		if score >= minHeaderMatches && score > bestScore {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return -1, nil
	}

	header := make([]string, len(rows[bestIdx]))
	for i, cell := range rows[bestIdx] {
		header[i] = records.CollapseSpaces(cell)
	}
	return bestIdx, header
}

func matchesHeaderKeyword(cell string) bool {
	c := strings.ToLower(records.CollapseSpaces(cell))
	if c == "" {
		return false
	}
	for _, k := range records.HeaderKeywords {
		if strings.Contains(c, k) {
			return true
		}
	}
	return false
}
