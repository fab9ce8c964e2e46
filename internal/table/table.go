// Package table provides the in-memory tabular representation the pipeline
// stages exchange through CSV files. Cells are strings; the empty string is
// the missing value.
package table

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table is an ordered set of named columns over string rows.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New returns an empty table with the given columns.
func New(columns ...string) *Table {
	return &Table{Columns: append([]string(nil), columns...)}
}

// NumRows returns the row count.
func (t *Table) NumRows() int {
	return len(t.Rows)
}

// ColumnIndex returns the index of the named column, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// HasColumn reports whether the named column exists.
func (t *Table) HasColumn(name string) bool {
	return t.ColumnIndex(name) >= 0
}

// HasColumns reports whether every named column exists.
func (t *Table) HasColumns(names ...string) bool {
	for _, n := range names {
		if !t.HasColumn(n) {
			return false
		}
	}
	return true
}

// Get returns the cell at row i in the named column. Missing columns and
// short rows read as the empty string.
func (t *Table) Get(i int, name string) string {
	j := t.ColumnIndex(name)
	if j < 0 || i >= len(t.Rows) || j >= len(t.Rows[i]) {
		return ""
	}
	return t.Rows[i][j]
}

// Set writes the cell at row i in the named column, padding short rows.
func (t *Table) Set(i int, name, value string) {
	j := t.ColumnIndex(name)
	if j < 0 || i >= len(t.Rows) {
		return
	}
	for len(t.Rows[i]) <= j {
		t.Rows[i] = append(t.Rows[i], "")
	}
	t.Rows[i][j] = value
}

// AppendRow adds a row, padding or truncating to the column count.
func (t *Table) AppendRow(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

// AddColumn appends an empty column and returns its index.
func (t *Table) AddColumn(name string) int {
	t.Columns = append(t.Columns, name)
	for i := range t.Rows {
		t.Rows[i] = append(t.Rows[i], "")
	}
	return len(t.Columns) - 1
}

// RenameColumn renames a column in place. No-op if absent.
func (t *Table) RenameColumn(from, to string) {
	if j := t.ColumnIndex(from); j >= 0 {
		t.Columns[j] = to
	}
}

// DropColumns removes the named columns where present.
func (t *Table) DropColumns(names ...string) {
	drop := make(map[int]bool, len(names))
	for _, n := range names {
		if j := t.ColumnIndex(n); j >= 0 {
			drop[j] = true
		}
	}
	if len(drop) == 0 {
		return
	}

	keptCols := t.Columns[:0]
	for j, c := range t.Columns {
		if !drop[j] {
			keptCols = append(keptCols, c)
		}
	}
	for i, row := range t.Rows {
		kept := make([]string, 0, len(keptCols))
		for j, cell := range row {
			if !drop[j] {
				kept = append(kept, cell)
			}
		}
		t.Rows[i] = kept
	}
	t.Columns = keptCols
}

// Filter returns a new table with only the rows keep() accepts.
func (t *Table) Filter(keep func(i int) bool) *Table {
	out := New(t.Columns...)
	for i, row := range t.Rows {
		if keep(i) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// StripSpace trims leading and trailing whitespace from every cell.
func (t *Table) StripSpace() {
	for i, row := range t.Rows {
		for j, cell := range row {
			t.Rows[i][j] = strings.TrimSpace(cell)
		}
	}
}

// ReadCSV reads a comma-delimited file into a table.
func ReadCSV(path string) (*Table, error) {
	return readDelimited(path, ',')
}

// ReadTSV reads a tab-delimited file into a table.
func ReadTSV(path string) (*Table, error) {
	return readDelimited(path, '\t')
}

func readDelimited(path string, comma rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return New(), nil
	}

	header := records[0]
	for j := range header {
		header[j] = strings.TrimSpace(header[j])
	}

	t := New(header...)
	for _, rec := range records[1:] {
		t.AppendRow(rec...)
	}
	return t, nil
}

// WriteCSV writes the table as comma-delimited CSV, creating parent
// directories as needed. No row index column is written.
func (t *Table) WriteCSV(path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		// pad short rows so every record has the full column count
		rec := make([]string, len(t.Columns))
		copy(rec, row)
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
