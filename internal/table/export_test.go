package table

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/compress"
	pqfile "github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/betaconv/internal/compression"
)

func sampleTable(t *testing.T) *Table {
	t.Helper()
	tbl, err := Parse([]byte("id,score,label\n1,2.5,x\n,3.0,\"q,r\"\n3,,\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return tbl
}

func mustRequest(t *testing.T, format, codec string) ExportRequest {
	t.Helper()
	req, err := NewExportRequest(format, codec)
	if err != nil {
		t.Fatalf("NewExportRequest(%q, %q) error = %v", format, codec, err)
	}
	return req
}

func TestExport_DelimitedRoundTrip(t *testing.T) {
	src := sampleTable(t)

	for _, format := range []string{"csv", "txt"} {
		for _, codec := range compression.Codecs {
			t.Run(format+"/"+string(codec), func(t *testing.T) {
				art, err := Export(src, mustRequest(t, format, string(codec)))
				if err != nil {
					t.Fatalf("Export() error = %v", err)
				}

				c, err := compression.For(codec)
				if err != nil {
					t.Fatalf("For() error = %v", err)
				}
				raw, err := c.Decompress(art.Data)
				if err != nil {
					t.Fatalf("Decompress() error = %v", err)
				}

				back, err := Parse(raw)
				if err != nil {
					t.Fatalf("Parse(exported) error = %v", err)
				}
				if !back.Equal(src) {
					t.Errorf("round trip mismatch:\n got %v\nwant %v", back.Records(), src.Records())
				}
			})
		}
	}
}

func TestExport_SingleColumnRoundTrip(t *testing.T) {
	src, err := New([]Column{{
		Name:  "note",
		Cells: []Cell{TextCell("plain"), TextCell("a;b"), TextCell("c|d"), TextCell("e,f"), TextCell("g\th")},
	}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, format := range []string{"csv", "txt"} {
		t.Run(format, func(t *testing.T) {
			art, err := Export(src, mustRequest(t, format, "none"))
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			back, err := Parse(art.Data)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", art.Data, err)
			}
			if !back.Equal(src) {
				t.Errorf("round trip mismatch:\n got %v\nwant %v", back.Records(), src.Records())
			}
		})
	}
}

func TestExport_DelimitedLayout(t *testing.T) {
	tbl, err := Parse([]byte("a,b\n1,2.0\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	tests := []struct {
		format string
		want   string
	}{
		{format: "csv", want: "a,b\n1,2.0\n"},
		{format: "txt", want: "a\tb\n1\t2.0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			art, err := Export(tbl, mustRequest(t, tt.format, "none"))
			if err != nil {
				t.Fatalf("Export() error = %v", err)
			}
			if got := string(art.Data); got != tt.want {
				t.Errorf("Export() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExport_SingleEmptyColumn(t *testing.T) {
	src, err := New([]Column{{Name: "a", Cells: []Cell{MissingCell(), IntCell(1), MissingCell()}}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	data, err := EncodeCSV(src)
	if err != nil {
		t.Fatalf("EncodeCSV() error = %v", err)
	}
	if want := "a\n\"\"\n1\n\"\"\n"; string(data) != want {
		t.Errorf("EncodeCSV() = %q, want %q", data, want)
	}

	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !back.Equal(src) {
		t.Errorf("round trip mismatch: got %v", back.Records())
	}
}

func TestExportRequest_FileNameAndContentType(t *testing.T) {
	tests := []struct {
		format, codec string
		wantName      string
		wantType      string
	}{
		{"csv", "none", "converted.csv", "text/csv; charset=utf-8"},
		{"csv", "gzip", "converted.csv.gzip", "application/gzip"},
		{"txt", "", "converted.txt", "text/plain; charset=utf-8"},
		{"txt", "bz2", "converted.txt.bz2", "application/x-bzip2"},
		{"txt", "xz", "converted.txt.xz", "application/x-xz"},
		{"parquet", "none", "converted.parquet", "application/vnd.apache.parquet"},
		{"PARQUET", "gzip", "converted.parquet.gzip", "application/vnd.apache.parquet"},
	}

	for _, tt := range tests {
		t.Run(tt.wantName, func(t *testing.T) {
			req := mustRequest(t, tt.format, tt.codec)
			if got := req.FileName(); got != tt.wantName {
				t.Errorf("FileName() = %q, want %q", got, tt.wantName)
			}
			if got := req.ContentType(); got != tt.wantType {
				t.Errorf("ContentType() = %q, want %q", got, tt.wantType)
			}
		})
	}
}

func TestNewExportRequest_Invalid(t *testing.T) {
	tests := []struct {
		name, format, codec string
	}{
		{"unknown format", "xlsx", "none"},
		{"empty format", "", "none"},
		{"unknown compression", "csv", "lzma"},
		{"unknown parquet compression", "parquet", "brotli"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewExportRequest(tt.format, tt.codec)
			if !errors.Is(err, ErrUnsupportedCombination) {
				t.Errorf("NewExportRequest() error = %v, want ErrUnsupportedCombination", err)
			}
		})
	}
}

func TestExport_ParquetGzipReadable(t *testing.T) {
	src := sampleTable(t)

	art, err := Export(src, mustRequest(t, "parquet", "gzip"))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(art.Data) == 0 {
		t.Fatal("Export() returned no bytes")
	}
	if !bytes.HasPrefix(art.Data, []byte("PAR1")) || !bytes.HasSuffix(art.Data, []byte("PAR1")) {
		t.Error("output is missing parquet magic")
	}

	rdr, err := pqfile.NewParquetReader(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("NewParquetReader() error = %v", err)
	}
	defer rdr.Close()

	if got := rdr.NumRows(); got != int64(src.NumRows()) {
		t.Errorf("NumRows() = %d, want %d", got, src.NumRows())
	}
	chunk, err := rdr.MetaData().RowGroup(0).ColumnChunk(0)
	if err != nil {
		t.Fatalf("ColumnChunk(0) error = %v", err)
	}
	if got := chunk.Compression(); got != compress.Codecs.Gzip {
		t.Errorf("column codec = %v, want gzip", got)
	}
}

func TestExport_ParquetTypes(t *testing.T) {
	src := sampleTable(t)

	art, err := Export(src, mustRequest(t, "parquet", "none"))
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(context.Background(), bytes.NewReader(art.Data), nil, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	defer tbl.Release()

	want := []struct {
		name string
		typ  arrow.Type
	}{
		{"id", arrow.INT64},
		{"score", arrow.FLOAT64},
		{"label", arrow.STRING},
	}
	fields := tbl.Schema().Fields()
	if len(fields) != len(want) {
		t.Fatalf("schema has %d fields, want %d", len(fields), len(want))
	}
	for i, w := range want {
		if fields[i].Name != w.name || fields[i].Type.ID() != w.typ {
			t.Errorf("field %d = %s %s, want %s %s", i, fields[i].Name, fields[i].Type, w.name, w.typ)
		}
	}
	if tbl.NumRows() != int64(src.NumRows()) {
		t.Errorf("NumRows() = %d, want %d", tbl.NumRows(), src.NumRows())
	}
}

func TestExport_ParquetBz2NeverDowngrades(t *testing.T) {
	src := sampleTable(t)

	req := ExportRequest{Format: FormatParquet, Compression: compression.Bzip2}
	art, err := Export(src, req)
	if err != nil {
		if !errors.Is(err, ErrUnsupportedCombination) {
			t.Fatalf("Export() error = %v, want nil or ErrUnsupportedCombination", err)
		}
		return
	}

	rdr, err := pqfile.NewParquetReader(bytes.NewReader(art.Data))
	if err != nil {
		t.Fatalf("NewParquetReader() error = %v", err)
	}
	defer rdr.Close()

	chunk, err := rdr.MetaData().RowGroup(0).ColumnChunk(0)
	if err != nil {
		t.Fatalf("ColumnChunk(0) error = %v", err)
	}
	if chunk.Compression() == compress.Codecs.Uncompressed {
		t.Error("bz2 request produced an uncompressed parquet file")
	}
	if !strings.HasSuffix(art.FileName, ".bz2") {
		t.Errorf("FileName = %q, want .bz2 suffix", art.FileName)
	}
}

func TestExport_ParquetNoColumns(t *testing.T) {
	empty, err := New(nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = Export(empty, ExportRequest{Format: FormatParquet, Compression: compression.None})
	if !errors.Is(err, ErrUnsupportedCombination) {
		t.Errorf("Export() error = %v, want ErrUnsupportedCombination", err)
	}
}
