package table

import (
	"bytes"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/JonMunkholm/betaconv/internal/compression"
)

// parquetCodecs maps export compression tags to parquet column codecs.
// Parquet has no bzip2 or xz codec, so those tags select the nearest
// block codecs the format defines.
var parquetCodecs = map[compression.Codec]compress.Compression{
	compression.None:  compress.Codecs.Uncompressed,
	compression.Gzip:  compress.Codecs.Gzip,
	compression.Bzip2: compress.Codecs.Snappy,
	compression.Xz:    compress.Codecs.Zstd,
}

// parquetCodec resolves a tag to a codec the linked writer can produce.
func parquetCodec(c compression.Codec) (compress.Compression, error) {
	pc, ok := parquetCodecs[c]
	if !ok {
		return 0, fmt.Errorf("%w: parquet has no codec for %q", ErrUnsupportedCombination, string(c))
	}
	if _, err := compress.GetCodec(pc); err != nil {
		return 0, fmt.Errorf("%w: parquet codec %v: %w", ErrUnsupportedCombination, pc, err)
	}
	return pc, nil
}

// arrowType picks the physical column type from the inferred column kind.
func arrowType(k Kind) arrow.DataType {
	switch k {
	case Integer:
		return arrow.PrimitiveTypes.Int64
	case Float:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func parquetSchema(t *Table) *arrow.Schema {
	fields := make([]arrow.Field, t.NumCols())
	for i, col := range t.columns {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Kind()), Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// writeParquet encodes t as a single row group.
func writeParquet(t *Table, codec compression.Codec) ([]byte, error) {
	pc, err := parquetCodec(codec)
	if err != nil {
		return nil, err
	}
	if t.NumCols() == 0 {
		return nil, fmt.Errorf("%w: parquet requires at least one column", ErrUnsupportedCombination)
	}

	mem := memory.NewGoAllocator()
	schema := parquetSchema(t)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()

	for i, col := range t.columns {
		switch fb := b.Field(i).(type) {
		case *array.Int64Builder:
			fb.Reserve(len(col.Cells))
			for _, c := range col.Cells {
				if c.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(c.Int())
				}
			}
		case *array.Float64Builder:
			fb.Reserve(len(col.Cells))
			for _, c := range col.Cells {
				if c.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(c.Float())
				}
			}
		case *array.StringBuilder:
			fb.Reserve(len(col.Cells))
			for _, c := range col.Cells {
				if c.IsMissing() {
					fb.AppendNull()
				} else {
					fb.Append(c.String())
				}
			}
		default:
			return nil, fmt.Errorf("column %q: unexpected builder %T", col.Name, fb)
		}
	}

	rec := b.NewRecord()
	defer rec.Release()

	var buf bytes.Buffer
	props := parquet.NewWriterProperties(
		parquet.WithCompression(pc),
		parquet.WithAllocator(mem),
	)
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return nil, fmt.Errorf("open parquet writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return nil, fmt.Errorf("write parquet record: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}
