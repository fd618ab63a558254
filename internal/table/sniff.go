package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Delimiters are the sniffing candidates, in tie-break order.
var Delimiters = []rune{',', '\t', ';', '|'}

const (
	sniffMaxLines = 20
	sniffMaxBytes = 64 << 10
)

// Sniff infers the field delimiter from a sample of text.
//
// A candidate fits when, splitting quote-aware, no sampled record has more
// fields than the header and at least one data record (if any) has exactly
// as many. Short rows are allowed since Parse pads them. The fitting
// candidate with the most header fields wins; ties go to the earlier
// candidate. When no candidate fits with more than one field, the text is a
// single column and the first candidate that fits with one field is used.
// Values of a single-column export may hold the other candidates unquoted,
// since csv.Writer only quotes its own delimiter.
func Sniff(text []byte) (rune, error) {
	sample := text
	if len(sample) > sniffMaxBytes {
		sample = sample[:sniffMaxBytes]
		// Drop the partial last line.
		if i := bytes.LastIndexByte(sample, '\n'); i > 0 {
			sample = sample[:i+1]
		}
	}

	best, bestFields := rune(0), 1
	single := rune(0)
	sawRecords := false

	for _, delim := range Delimiters {
		fields, fits, n := fieldCount(sample, delim)
		if n == 0 {
			continue
		}
		sawRecords = true
		if fits && fields == 1 && single == 0 {
			single = delim
		}
		if fits && fields > bestFields {
			best, bestFields = delim, fields
		}
	}

	switch {
	case best != 0:
		return best, nil
	case !sawRecords:
		return 0, fmt.Errorf("%w: no records found", ErrUnparsableFormat)
	case single != 0:
		return single, nil
	default:
		return 0, fmt.Errorf("%w: could not determine delimiter", ErrUnparsableFormat)
	}
}

// fieldCount reads up to sniffMaxLines records with delim and reports the
// header field count, whether the sample fits it, and how many records were
// read.
func fieldCount(sample []byte, delim rune) (fields int, fits bool, n int) {
	r := newReader(bytes.NewReader(sample), delim)

	exceeded, matched := false, false
	for n < sniffMaxLines {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, false, n
		}
		switch {
		case n == 0:
			fields = len(rec)
		case len(rec) > fields:
			exceeded = true
		case len(rec) == fields:
			matched = true
		}
		n++
	}
	return fields, !exceeded && (matched || n == 1), n
}

// newReader returns a csv.Reader configured for ragged, loosely quoted input.
func newReader(r io.Reader, delim rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}
