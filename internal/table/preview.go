package table

// Default preview window.
const (
	DefaultPreviewRows = 10
	DefaultPreviewCols = 10
)

// Preview returns a copy of t truncated to the first rows rows and first cols
// columns, in original order. Smaller tables come back whole; non-positive
// limits give an empty window.
func Preview(t *Table, rows, cols int) *Table {
	rows = clamp(rows, t.rows)
	cols = clamp(cols, len(t.columns))

	p := &Table{columns: make([]Column, cols), rows: rows}
	for i := 0; i < cols; i++ {
		src := t.columns[i]
		p.columns[i] = Column{
			Name:  src.Name,
			Cells: append([]Cell(nil), src.Cells[:rows]...),
		}
	}
	return p
}

func clamp(n, limit int) int {
	if n < 0 {
		return 0
	}
	if n > limit {
		return limit
	}
	return n
}
