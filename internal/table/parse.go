package table

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse reads delimited text into a Table. The delimiter is sniffed from the
// content, never taken from a file name, so .vcf, .bed and .txt uploads are
// all read as generic delimited text.
//
// The first record is the header. Blank header names become "Unnamed: <i>"
// and repeated names get ".1", ".2" suffixes. Short rows are padded with
// Missing cells; rows longer than the header are rejected.
func Parse(data []byte) (*Table, error) {
	text, err := decodeText(data)
	if err != nil {
		return nil, err
	}

	delim, err := Sniff(text)
	if err != nil {
		return nil, err
	}

	r := newReader(bytes.NewReader(text), delim)

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: no header row", ErrUnparsableFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableFormat, err)
	}

	names := uniqueNames(header)
	cols := make([][]Cell, len(names))

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnparsableFormat, err)
		}
		if len(rec) > len(names) {
			line, _ := r.FieldPos(0)
			return nil, fmt.Errorf("%w: line %d: expected %d fields, saw %d",
				ErrUnparsableFormat, line, len(names), len(rec))
		}
		for i := range names {
			cell := MissingCell()
			if i < len(rec) {
				cell = Infer(rec[i])
			}
			cols[i] = append(cols[i], cell)
		}
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Cells: cols[i]}
	}
	return New(columns)
}

// decodeText strips a UTF-8 BOM and rejects content that is not UTF-8 text.
func decodeText(data []byte) ([]byte, error) {
	text := bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, ErrEmptyInput
	}
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8 text", ErrUnparsableFormat)
	}
	if bytes.IndexByte(text, 0) >= 0 {
		return nil, fmt.Errorf("%w: content contains NUL bytes", ErrUnparsableFormat)
	}
	return text, nil
}

// uniqueNames fills blank names and de-duplicates repeats in order.
func uniqueNames(header []string) []string {
	names := make([]string, len(header))
	used := make(map[string]bool, len(header))

	for i, h := range header {
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = h + "." + strconv.Itoa(n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
