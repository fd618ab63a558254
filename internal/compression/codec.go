// Package compression provides the single-stream byte codecs shared by upload
// decompression and export compression.
//
// Every codec is exposed through the Compressor interface so callers never
// switch on the codec themselves:
//
//	c, err := compression.For(compression.Xz)
//	data, err := c.Compress(payload)
package compression

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"
)

// Codec names a byte-stream compression codec. The string value is the tag
// used in export requests.
type Codec string

const (
	None  Codec = "none"
	Gzip  Codec = "gzip"
	Bzip2 Codec = "bz2"
	Xz    Codec = "xz"
)

// Codecs lists every supported codec in display order.
var Codecs = []Codec{None, Gzip, Bzip2, Xz}

// Magic numbers used by Detect.
var (
	gzipMagic  = []byte{0x1f, 0x8b}
	bzip2Magic = []byte("BZh")
	xzMagic    = []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}
)

// Compressor compresses and decompresses byte data with one codec.
type Compressor interface {
	// Compress compresses byte data.
	Compress(data []byte) ([]byte, error)

	// CompressStream creates a streaming compression writer. Close must be
	// called to flush the trailer.
	CompressStream(w io.Writer) (io.WriteCloser, error)

	// Decompress decompresses byte data.
	Decompress(data []byte) ([]byte, error)

	// DecompressStream creates a streaming decompression reader.
	DecompressStream(r io.Reader) (io.ReadCloser, error)

	// Codec returns the codec this compressor implements.
	Codec() Codec
}

// ParseCodec converts a tag to a Codec. Matching is case-insensitive and
// accepts "" as none.
func ParseCodec(tag string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "", "none":
		return None, nil
	case "gzip", "gz":
		return Gzip, nil
	case "bz2", "bzip2":
		return Bzip2, nil
	case "xz":
		return Xz, nil
	default:
		return "", fmt.Errorf("unknown compression %q", tag)
	}
}

// Extension returns the file-name suffix for the codec, without a leading dot
// ("" for None).
func (c Codec) Extension() string {
	switch c {
	case Gzip:
		return "gz"
	case Bzip2:
		return "bz2"
	case Xz:
		return "xz"
	default:
		return ""
	}
}

// For returns the Compressor for a codec.
func For(c Codec) (Compressor, error) {
	switch c {
	case None:
		return noneCompressor{}, nil
	case Gzip:
		return gzipCompressor{}, nil
	case Bzip2:
		return bzip2Compressor{}, nil
	case Xz:
		return xzCompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown compression %q", string(c))
	}
}

// Detect identifies a codec from the leading magic bytes of data.
// Returns None when no known signature matches.
func Detect(data []byte) Codec {
	switch {
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, xzMagic):
		return Xz
	case bytes.HasPrefix(data, bzip2Magic):
		return Bzip2
	default:
		return None
	}
}

// compressWith runs data through a streaming writer into a buffer.
func compressWith(c Compressor, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := c.CompressStream(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decompressWith reads a whole streaming reader.
func decompressWith(c Compressor, data []byte) ([]byte, error) {
	r, err := c.DecompressStream(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error)   { return data, nil }
func (noneCompressor) Decompress(data []byte) ([]byte, error) { return data, nil }
func (noneCompressor) Codec() Codec                           { return None }

func (noneCompressor) CompressStream(w io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{w}, nil
}

func (noneCompressor) DecompressStream(r io.Reader) (io.ReadCloser, error) {
	return io.NopCloser(r), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// gzipCompressor uses klauspost's drop-in gzip, which reads concatenated
// members like the standard library.
type gzipCompressor struct{}

func (g gzipCompressor) Compress(data []byte) ([]byte, error)   { return compressWith(g, data) }
func (g gzipCompressor) Decompress(data []byte) ([]byte, error) { return decompressWith(g, data) }
func (gzipCompressor) Codec() Codec                             { return Gzip }

func (gzipCompressor) CompressStream(w io.Writer) (io.WriteCloser, error) {
	return gzip.NewWriter(w), nil
}

func (gzipCompressor) DecompressStream(r io.Reader) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// bzip2Compressor uses dsnet/compress because the standard library only
// decodes bzip2.
type bzip2Compressor struct{}

func (b bzip2Compressor) Compress(data []byte) ([]byte, error)   { return compressWith(b, data) }
func (b bzip2Compressor) Decompress(data []byte) ([]byte, error) { return decompressWith(b, data) }
func (bzip2Compressor) Codec() Codec                             { return Bzip2 }

func (bzip2Compressor) CompressStream(w io.Writer) (io.WriteCloser, error) {
	return bzip2.NewWriter(w, &bzip2.WriterConfig{Level: bzip2.DefaultCompression})
}

func (bzip2Compressor) DecompressStream(r io.Reader) (io.ReadCloser, error) {
	return bzip2.NewReader(r, nil)
}

type xzCompressor struct{}

func (x xzCompressor) Compress(data []byte) ([]byte, error)   { return compressWith(x, data) }
func (x xzCompressor) Decompress(data []byte) ([]byte, error) { return decompressWith(x, data) }
func (xzCompressor) Codec() Codec                             { return Xz }

func (xzCompressor) CompressStream(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}

func (xzCompressor) DecompressStream(r io.Reader) (io.ReadCloser, error) {
	xr, err := xz.NewReader(r)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(xr), nil
}
