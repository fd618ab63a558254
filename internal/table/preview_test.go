package table

import (
	"fmt"
	"reflect"
	"testing"
)

// grid builds a rows x cols integer table with columns c0..c<n>.
func grid(t *testing.T, rows, cols int) *Table {
	t.Helper()
	columns := make([]Column, cols)
	for c := range columns {
		cells := make([]Cell, rows)
		for r := range cells {
			cells[r] = IntCell(int64(r*cols + c))
		}
		columns[c] = Column{Name: fmt.Sprintf("c%d", c), Cells: cells}
	}
	tbl, err := New(columns)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tbl
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name             string
		rows, cols       int
		limitR, limitC   int
		wantRows, wantCs int
	}{
		{name: "small table unchanged", rows: 3, cols: 3, limitR: 10, limitC: 10, wantRows: 3, wantCs: 3},
		{name: "truncates both", rows: 25, cols: 15, limitR: 10, limitC: 10, wantRows: 10, wantCs: 10},
		{name: "exact fit", rows: 10, cols: 10, limitR: 10, limitC: 10, wantRows: 10, wantCs: 10},
		{name: "zero limits", rows: 4, cols: 4, limitR: 0, limitC: 0, wantRows: 0, wantCs: 0},
		{name: "negative limits", rows: 4, cols: 4, limitR: -1, limitC: -5, wantRows: 0, wantCs: 0},
		{name: "empty table", rows: 0, cols: 0, limitR: 10, limitC: 10, wantRows: 0, wantCs: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := grid(t, tt.rows, tt.cols)
			p := Preview(src, tt.limitR, tt.limitC)

			if p.NumRows() != tt.wantRows || p.NumCols() != tt.wantCs {
				t.Fatalf("Preview() = %dx%d, want %dx%d", p.NumRows(), p.NumCols(), tt.wantRows, tt.wantCs)
			}
			if got, want := p.Names(), src.Names()[:tt.wantCs]; !reflect.DeepEqual(got, want) {
				t.Errorf("Names() = %v, want %v", got, want)
			}
			for r := 0; r < p.NumRows(); r++ {
				for c := 0; c < p.NumCols(); c++ {
					if p.Cell(r, c) != src.Cell(r, c) {
						t.Errorf("Cell(%d,%d) = %v, want %v", r, c, p.Cell(r, c), src.Cell(r, c))
					}
				}
			}
		})
	}
}

func TestPreview_SmallTableEqual(t *testing.T) {
	src := grid(t, 3, 3)
	if p := Preview(src, DefaultPreviewRows, DefaultPreviewCols); !p.Equal(src) {
		t.Error("Preview of a 3x3 table is not equal to the input")
	}
}
