package table

import (
	"math"
	"strconv"
	"strings"
)

// Kind is the closed set of cell value types.
type Kind int

const (
	Missing Kind = iota
	Integer
	Float
	Text
)

// String returns the kind name used in JSON column metadata.
func (k Kind) String() string {
	switch k {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case Text:
		return "text"
	default:
		return "missing"
	}
}

// Cell is a single table value. The zero Cell is Missing.
type Cell struct {
	kind Kind
	i    int64
	f    float64
	s    string
}

// MissingCell returns an empty cell.
func MissingCell() Cell { return Cell{} }

// IntCell returns an Integer cell.
func IntCell(v int64) Cell { return Cell{kind: Integer, i: v} }

// FloatCell returns a Float cell.
func FloatCell(v float64) Cell { return Cell{kind: Float, f: v} }

// TextCell returns a Text cell.
func TextCell(s string) Cell { return Cell{kind: Text, s: s} }

// Infer types a raw field. The order is fixed: empty is Missing, then
// base-10 integer, then finite decimal float, otherwise Text. Surrounding
// whitespace is ignored for the numeric attempts only. Go literal forms that
// strconv.ParseFloat accepts (digit separators, hex mantissas) stay Text.
func Infer(raw string) Cell {
	if raw == "" {
		return MissingCell()
	}

	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntCell(i)
	}
	if goLiteral(s) {
		return TextCell(raw)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return FloatCell(f)
	}
	return TextCell(raw)
}

// goLiteral reports whether s uses '_' separators or a 0x prefix.
func goLiteral(s string) bool {
	if strings.ContainsRune(s, '_') {
		return true
	}
	s = strings.TrimLeft(s, "+-")
	return strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")
}

// Kind returns the cell's type.
func (c Cell) Kind() Kind { return c.kind }

// IsMissing reports whether the cell is empty.
func (c Cell) IsMissing() bool { return c.kind == Missing }

// Int returns the Integer value, or 0 for other kinds.
func (c Cell) Int() int64 { return c.i }

// Float returns the numeric value of Integer and Float cells, or 0.
func (c Cell) Float() float64 {
	if c.kind == Integer {
		return float64(c.i)
	}
	return c.f
}

// String renders the cell in its textual form. Missing renders as "".
// Floats always carry a decimal point or exponent so they are inferred as
// Float again when re-parsed.
func (c Cell) String() string {
	switch c.kind {
	case Integer:
		return strconv.FormatInt(c.i, 10)
	case Float:
		return formatFloat(c.f)
	case Text:
		return c.s
	default:
		return ""
	}
}

// Value returns the cell as a JSON-friendly value: nil, int64, float64 or string.
func (c Cell) Value() any {
	switch c.kind {
	case Integer:
		return c.i
	case Float:
		return c.f
	case Text:
		return c.s
	default:
		return nil
	}
}

func formatFloat(f float64) string {
	abs := math.Abs(f)
	var s string
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		s = strconv.FormatFloat(f, 'g', -1, 64)
	} else {
		s = strconv.FormatFloat(f, 'f', -1, 64)
	}
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// columnKind folds cell kinds into a column type: Integer when every present
// cell is Integer, Float when every present cell is numeric, Text otherwise,
// Missing when no cell is present.
func columnKind(cells []Cell) Kind {
	kind := Missing
	for _, c := range cells {
		switch c.kind {
		case Missing:
			continue
		case Text:
			return Text
		case Float:
			kind = Float
		case Integer:
			if kind == Missing {
				kind = Integer
			}
		}
	}
	return kind
}
