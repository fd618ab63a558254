package table

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func TestSniff(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    rune
		wantErr bool
	}{
		{name: "comma", text: "a,b\n1,2\n", want: ','},
		{name: "tab", text: "a\tb\n1\t2\n", want: '\t'},
		{name: "semicolon", text: "a;b;c\n1;2;3\n", want: ';'},
		{name: "pipe", text: "a|b\n1|2\n", want: '|'},
		{name: "single column", text: "name\nx\ny\n", want: ','},
		{name: "single column with other delimiters in values", text: "note\nplain\na;b\nc\td\ne|f\n", want: ','},
		{name: "single column with commas in values", text: "note\nplain\na,b\n", want: '\t'},
		{name: "quoted delimiter ignored", text: "a,b\n\"x;y\",2\n", want: ','},
		{name: "tie goes to earlier candidate", text: "a,b;c\n1,2;3\n", want: ','},
		{name: "short rows allowed", text: "a,b,c\n1,2\n3,4,5\n", want: ','},
		{name: "vcf style tab", text: "#CHROM\tPOS\tID\nchr1\t100\trs1\nchr2\t200\t.\n", want: '\t'},
		{name: "rows wider than header", text: "a,b\n1,2,3\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Sniff([]byte(tt.text))
			if tt.wantErr {
				if !errors.Is(err, ErrUnparsableFormat) {
					t.Errorf("Sniff() error = %v, want ErrUnparsableFormat", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Sniff() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Sniff() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParse_IntegerColumns(t *testing.T) {
	tbl, err := Parse([]byte("x,y\n1,2\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := tbl.Names(); !reflect.DeepEqual(got, []string{"x", "y"}) {
		t.Errorf("Names() = %v, want [x y]", got)
	}
	if tbl.NumRows() != 1 {
		t.Fatalf("NumRows() = %d, want 1", tbl.NumRows())
	}
	if got := tbl.Row(0); !reflect.DeepEqual(got, []Cell{IntCell(1), IntCell(2)}) {
		t.Errorf("Row(0) = %v, want [1 2]", got)
	}
	for i := 0; i < tbl.NumCols(); i++ {
		if k := tbl.Column(i).Kind(); k != Integer {
			t.Errorf("column %d kind = %v, want integer", i, k)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantNames []string
		wantRows  [][]Cell
	}{
		{
			name:      "bom stripped",
			data:      "\xEF\xBB\xBFid,name\n1,ann\n",
			wantNames: []string{"id", "name"},
			wantRows:  [][]Cell{{IntCell(1), TextCell("ann")}},
		},
		{
			name:      "blank and duplicate headers",
			data:      ",a,a,a\n1,2,3,4\n",
			wantNames: []string{"Unnamed: 0", "a", "a.1", "a.2"},
			wantRows:  [][]Cell{{IntCell(1), IntCell(2), IntCell(3), IntCell(4)}},
		},
		{
			name:      "short rows padded",
			data:      "a,b,c\n1,2\n3,4,5\n",
			wantNames: []string{"a", "b", "c"},
			wantRows: [][]Cell{
				{IntCell(1), IntCell(2), MissingCell()},
				{IntCell(3), IntCell(4), IntCell(5)},
			},
		},
		{
			name:      "empty fields missing",
			data:      "a,b\n1,\n,2.5\n",
			wantNames: []string{"a", "b"},
			wantRows: [][]Cell{
				{IntCell(1), MissingCell()},
				{MissingCell(), FloatCell(2.5)},
			},
		},
		{
			name:      "quoted field with delimiter",
			data:      "name,note\nbob,\"a, b\"\n",
			wantNames: []string{"name", "note"},
			wantRows:  [][]Cell{{TextCell("bob"), TextCell("a, b")}},
		},
		{
			name:      "crlf line endings",
			data:      "a;b\r\n1;x\r\n",
			wantNames: []string{"a", "b"},
			wantRows:  [][]Cell{{IntCell(1), TextCell("x")}},
		},
		{
			name:      "header only",
			data:      "a,b\n",
			wantNames: []string{"a", "b"},
			wantRows:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := tbl.Names(); !reflect.DeepEqual(got, tt.wantNames) {
				t.Errorf("Names() = %v, want %v", got, tt.wantNames)
			}
			if tbl.NumRows() != len(tt.wantRows) {
				t.Fatalf("NumRows() = %d, want %d", tbl.NumRows(), len(tt.wantRows))
			}
			for r, want := range tt.wantRows {
				if got := tbl.Row(r); !reflect.DeepEqual(got, want) {
					t.Errorf("Row(%d) = %v, want %v", r, got, want)
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	var long strings.Builder
	long.WriteString("a,b\n")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&long, "%d,%d\n", i, i)
	}
	long.WriteString("1,2,3\n")

	tests := []struct {
		name  string
		data  []byte
		empty bool
	}{
		{name: "empty", data: nil, empty: true},
		{name: "whitespace only", data: []byte(" \n\n"), empty: true},
		{name: "bom only", data: []byte("\xef\xbb\xbf"), empty: true},
		{name: "invalid utf8", data: []byte{0xff, 0xfe, 0x41, 0x00}},
		{name: "nul bytes", data: []byte("a,b\n1,\x00\n")},
		{name: "inconsistent fields", data: []byte("a,b\n1,2,3\n")},
		{name: "wide row past sample", data: []byte(long.String())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.data)
			if !errors.Is(err, ErrUnparsableFormat) {
				t.Errorf("Parse() error = %v, want ErrUnparsableFormat", err)
			}
			if got := errors.Is(err, ErrEmptyInput); got != tt.empty {
				t.Errorf("errors.Is(err, ErrEmptyInput) = %v, want %v", got, tt.empty)
			}
		})
	}
}

func TestNew_Invariants(t *testing.T) {
	if _, err := New([]Column{{Name: "a"}, {Name: "a"}}); err == nil {
		t.Error("New() with duplicate names succeeded, want error")
	}
	if _, err := New([]Column{
		{Name: "a", Cells: []Cell{IntCell(1)}},
		{Name: "b"},
	}); err == nil {
		t.Error("New() with ragged columns succeeded, want error")
	}

	cells := []Cell{IntCell(1)}
	tbl, err := New([]Column{{Name: "a", Cells: cells}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	cells[0] = TextCell("changed")
	if got := tbl.Cell(0, 0); got != IntCell(1) {
		t.Errorf("Cell(0,0) = %v after caller mutation, want 1", got)
	}
}
