// Package table holds the generic row/column model that uploads are parsed
// into, and the preview and export operations over it.
//
// A Table is immutable once built: Preview returns a copy and Export derives
// new bytes. Columns always have equal length and unique names.
package table

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparsableFormat is returned when content is not text or no
	// consistent delimiter can be inferred.
	ErrUnparsableFormat = errors.New("unparsable format")

	// ErrEmptyInput is the ErrUnparsableFormat case for content with no
	// non-whitespace bytes.
	ErrEmptyInput = fmt.Errorf("%w: empty file", ErrUnparsableFormat)

	// ErrUnsupportedCombination is returned for export format and compression
	// pairings that cannot be produced.
	ErrUnsupportedCombination = errors.New("unsupported export combination")
)

// Column is a named sequence of cells.
type Column struct {
	Name  string
	Cells []Cell
}

// Kind returns the inferred column type.
func (c Column) Kind() Kind { return columnKind(c.Cells) }

// Table is an ordered set of equal-length, uniquely named columns.
type Table struct {
	columns []Column
	rows    int
}

// New builds a Table from columns, checking the invariants.
// The cell slices are copied.
func New(columns []Column) (*Table, error) {
	t := &Table{columns: make([]Column, len(columns))}
	seen := make(map[string]bool, len(columns))

	for i, col := range columns {
		if seen[col.Name] {
			return nil, fmt.Errorf("duplicate column name %q", col.Name)
		}
		seen[col.Name] = true

		if i == 0 {
			t.rows = len(col.Cells)
		} else if len(col.Cells) != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", col.Name, len(col.Cells), t.rows)
		}

		t.columns[i] = Column{Name: col.Name, Cells: append([]Cell(nil), col.Cells...)}
	}
	return t, nil
}

// NumRows returns the row count.
func (t *Table) NumRows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.columns) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns column i. The returned cells must not be modified.
func (t *Table) Column(i int) Column { return t.columns[i] }

// Cell returns the value at row r, column c.
func (t *Table) Cell(r, c int) Cell { return t.columns[c].Cells[r] }

// Row returns a copy of row r.
func (t *Table) Row(r int) []Cell {
	row := make([]Cell, len(t.columns))
	for i, c := range t.columns {
		row[i] = c.Cells[r]
	}
	return row
}

// Records renders the table as text rows, header first.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, t.rows+1)
	out = append(out, t.Names())
	for r := 0; r < t.rows; r++ {
		rec := make([]string, len(t.columns))
		for i, c := range t.columns {
			rec[i] = c.Cells[r].String()
		}
		out = append(out, rec)
	}
	return out
}

// Equal reports whether two tables have the same names, kinds and values.
func (t *Table) Equal(o *Table) bool {
	if t.NumCols() != o.NumCols() || t.NumRows() != o.NumRows() {
		return false
	}
	for i, c := range t.columns {
		oc := o.columns[i]
		if c.Name != oc.Name {
			return false
		}
		for r := range c.Cells {
			if c.Cells[r] != oc.Cells[r] {
				return false
			}
		}
	}
	return true
}
