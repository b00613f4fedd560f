// Package sheet reads supplier spreadsheets into in-memory tables using
// excelize. It honors the per-provider extraction rules: rows to skip before
// the header, and an optional column-letter selector restricting which
// columns are read.
package sheet

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nmoreno/catalogo/internal/etl"
	"github.com/nmoreno/catalogo/internal/registry"
)

// Reader reads XLSX workbooks from the local filesystem.
type Reader struct{}

// NewReader creates a spreadsheet reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read opens the workbook at path and returns its first sheet as a table.
//
// rules.HeaderOffset rows are skipped, the next row becomes the header and
// everything after it the data rows. When rules.ColumnSelector is set, only
// the selected columns are kept. Rows shorter than the header are padded
// with empty cells so every row has one cell per column.
func (r *Reader) Read(path string, rules registry.ExtractRules) (*etl.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	selected, err := ParseSelector(rules.ColumnSelector)
	if err != nil {
		return nil, err
	}

	if rules.HeaderOffset >= len(rows) {
		// Nothing left after skipping; an empty table is the extractor's
		// signal that the configuration is likely wrong.
		return &etl.Table{}, nil
	}

	header := project(rows[rules.HeaderOffset], selected)
	table := &etl.Table{Columns: trimAll(header)}

	for _, raw := range rows[rules.HeaderOffset+1:] {
		row := project(raw, selected)
		if isBlank(row) {
			continue
		}
		// Pad short rows so indexes line up with the header.
		for len(row) < len(table.Columns) {
			row = append(row, "")
		}
		table.Rows = append(table.Rows, row[:len(table.Columns)])
	}

	return table, nil
}

// project keeps only the selected zero-based columns, in selector order.
// A nil selection keeps the whole row.
func project(row []string, selected []int) []string {
	if selected == nil {
		return row
	}
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		if idx < len(row) {
			out = append(out, row[idx])
		} else {
			out = append(out, "")
		}
	}
	return out
}

func trimAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = strings.TrimSpace(c)
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
