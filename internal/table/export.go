package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/JonMunkholm/betaconv/internal/compression"
)

// Format is an export serialization.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatTXT     Format = "txt"
	FormatParquet Format = "parquet"
)

// Formats lists every export format in display order.
var Formats = []Format{FormatCSV, FormatTXT, FormatParquet}

// ParseFormat converts a tag to a Format (case-insensitive).
func ParseFormat(tag string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(tag))); f {
	case FormatCSV, FormatTXT, FormatParquet:
		return f, nil
	default:
		return "", fmt.Errorf("unknown format %q", tag)
	}
}

// ExportRequest selects an output format and compression.
type ExportRequest struct {
	Format      Format
	Compression compression.Codec
}

// NewExportRequest parses and validates format and compression tags.
// Unknown tags and invalid pairings wrap ErrUnsupportedCombination.
func NewExportRequest(format, codec string) (ExportRequest, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return ExportRequest{}, fmt.Errorf("%w: %w", ErrUnsupportedCombination, err)
	}
	c, err := compression.ParseCodec(codec)
	if err != nil {
		return ExportRequest{}, fmt.Errorf("%w: %w", ErrUnsupportedCombination, err)
	}
	req := ExportRequest{Format: f, Compression: c}
	if err := req.Validate(); err != nil {
		return ExportRequest{}, err
	}
	return req, nil
}

// Validate rejects requests that cannot be produced.
func (r ExportRequest) Validate() error {
	if _, err := compression.For(r.Compression); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsupportedCombination, err)
	}
	switch r.Format {
	case FormatCSV, FormatTXT:
		return nil
	case FormatParquet:
		_, err := parquetCodec(r.Compression)
		return err
	default:
		return fmt.Errorf("%w: unknown format %q", ErrUnsupportedCombination, string(r.Format))
	}
}

// FileName returns converted.<format> or converted.<format>.<compression>.
func (r ExportRequest) FileName() string {
	if r.Compression == compression.None || r.Compression == "" {
		return "converted." + string(r.Format)
	}
	return "converted." + string(r.Format) + "." + string(r.Compression)
}

// ContentType returns the MIME type of the produced file.
func (r ExportRequest) ContentType() string {
	if r.Format == FormatParquet {
		return "application/vnd.apache.parquet"
	}
	switch r.Compression {
	case compression.Gzip:
		return "application/gzip"
	case compression.Bzip2:
		return "application/x-bzip2"
	case compression.Xz:
		return "application/x-xz"
	}
	if r.Format == FormatTXT {
		return "text/plain; charset=utf-8"
	}
	return "text/csv; charset=utf-8"
}

// Artifact is a serialized export ready for download.
type Artifact struct {
	Data        []byte
	FileName    string
	ContentType string
}

// Export serializes t according to req.
//
// csv and txt are delimited text (comma and tab) wrapped in the requested
// byte-stream codec. parquet keeps per-column types and uses the request's
// compression as its internal column codec.
func Export(t *Table, req ExportRequest) (Artifact, error) {
	if err := req.Validate(); err != nil {
		return Artifact{}, err
	}

	var (
		data []byte
		err  error
	)
	switch req.Format {
	case FormatParquet:
		data, err = writeParquet(t, req.Compression)
	case FormatTXT:
		data, err = writeDelimited(t, '\t', req.Compression)
	default:
		data, err = writeDelimited(t, ',', req.Compression)
	}
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{Data: data, FileName: req.FileName(), ContentType: req.ContentType()}, nil
}

// EncodeCSV serializes t as uncompressed comma-delimited text.
func EncodeCSV(t *Table) ([]byte, error) {
	return writeDelimited(t, ',', compression.None)
}

func writeDelimited(t *Table, delim rune, codec compression.Codec) ([]byte, error) {
	c, err := compression.For(codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedCombination, err)
	}

	var buf bytes.Buffer
	zw, err := c.CompressStream(&buf)
	if err != nil {
		return nil, fmt.Errorf("open %s writer: %w", codec, err)
	}

	w := csv.NewWriter(zw)
	w.Comma = delim
	for _, rec := range t.Records() {
		// A lone empty field would otherwise become a blank line, which
		// readers skip.
		if len(rec) == 1 && rec[0] == "" {
			w.Flush()
			if _, err := zw.Write([]byte("\"\"\n")); err != nil {
				zw.Close()
				return nil, fmt.Errorf("write record: %w", err)
			}
			continue
		}
		if err := w.Write(rec); err != nil {
			zw.Close()
			return nil, fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		zw.Close()
		return nil, fmt.Errorf("flush records: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close %s writer: %w", codec, err)
	}
	return buf.Bytes(), nil
}
