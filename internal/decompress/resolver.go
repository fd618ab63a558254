// Package decompress unwraps uploaded files into the single payload that the
// table parser consumes.
//
// The strategy is chosen by file-name suffix (see Match). Archives may hold
// several entries but only the first one, in the archive's own listing order,
// is ever returned. That policy is kept on purpose for compatibility with
// existing uploads; picking the largest entry or letting the user choose are
// possible extensions.
package decompress

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/JonMunkholm/betaconv/internal/compression"
	"github.com/JonMunkholm/betaconv/internal/logging"
)

var (
	// ErrCorruptArchive is returned when a zip or tar container cannot be
	// opened or enumerated, or has no entries.
	ErrCorruptArchive = errors.New("corrupt archive")

	// ErrDecompression is returned when a gzip, bz2 or xz stream is malformed.
	ErrDecompression = errors.New("decompression failed")

	// ErrPayloadTooLarge is wrapped by the errors above when the unwrapped
	// payload exceeds the resolver's size limit.
	ErrPayloadTooLarge = errors.New("decompressed payload too large")
)

// Payload is the unwrapped upload handed to the parser.
type Payload struct {
	Data     []byte
	Name     string
	Strategy Strategy

	// Entries is the number of entries in the container (1 for single-stream
	// codecs and pass-through). For tar it is a lower bound once the scan
	// past the first member reaches the resolver's size limit.
	Entries int
}

// Resolver unwraps uploads in memory.
type Resolver struct {
	// MaxSize bounds the unwrapped payload in bytes. Zero means unbounded.
	MaxSize int64
}

// NewResolver creates a Resolver with the given payload limit.
func NewResolver(maxSize int64) *Resolver {
	return &Resolver{MaxSize: maxSize}
}

// Resolve unwraps data with no size limit.
func Resolve(data []byte, filename string) (Payload, error) {
	return (&Resolver{}).Resolve(context.Background(), data, filename)
}

// Resolve selects a strategy from filename and unwraps data.
// Names without a recognized suffix are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, data []byte, filename string) (Payload, error) {
	logger := logging.FromContext(ctx)

	rule, ok := match(filename)
	if !ok {
		logger.Debug("no compression suffix, passing through", "file", filename, "bytes", len(data))
		return Payload{Data: data, Name: filename, Strategy: StrategyPassThrough, Entries: 1}, nil
	}

	var (
		p   Payload
		err error
	)
	switch rule.strategy {
	case StrategyZipFirstEntry:
		p, err = r.zipFirstEntry(data)
	case StrategyTarFirstEntry:
		p, err = r.tarFirstEntry(data, rule.codec)
	default:
		p, err = r.singleStream(data, filename, rule)
	}
	if err != nil {
		return Payload{}, err
	}
	p.Strategy = rule.strategy

	if p.Entries > 1 {
		logger.Warn("archive has multiple entries, using the first",
			"file", filename,
			"entry", p.Name,
			"entries", p.Entries,
		)
	}
	logger.Debug("upload resolved",
		"file", filename,
		"strategy", p.Strategy.String(),
		"inner_name", p.Name,
		"bytes_in", len(data),
		"bytes_out", len(p.Data),
	)
	return p, nil
}

// singleStream decompresses a whole gzip, bz2 or xz stream and strips the
// matched suffix from the name.
func (r *Resolver) singleStream(data []byte, filename string, rule suffixRule) (Payload, error) {
	codec := rule.strategy.codec()
	c, err := compression.For(codec)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrDecompression, err)
	}

	rc, err := c.DecompressStream(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s: %w", ErrDecompression, codec, err)
	}
	defer rc.Close()

	out, err := r.readLimited(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %s: %w", ErrDecompression, codec, err)
	}

	return Payload{
		Data:    out,
		Name:    filename[:len(filename)-len(rule.suffix)],
		Entries: 1,
	}, nil
}

// zipFirstEntry returns the first entry in central-directory order.
func (r *Resolver) zipFirstEntry(data []byte) (Payload, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: open zip: %w", ErrCorruptArchive, err)
	}
	if len(zr.File) == 0 {
		return Payload{}, fmt.Errorf("%w: zip has no entries", ErrCorruptArchive)
	}

	first := zr.File[0]
	if first.FileInfo().IsDir() {
		return Payload{}, fmt.Errorf("%w: first zip entry %q is a directory", ErrCorruptArchive, first.Name)
	}

	rc, err := first.Open()
	if err != nil {
		return Payload{}, fmt.Errorf("%w: open zip entry %q: %w", ErrCorruptArchive, first.Name, err)
	}
	defer rc.Close()

	out, err := r.readLimited(rc)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read zip entry %q: %w", ErrCorruptArchive, first.Name, err)
	}

	return Payload{Data: out, Name: first.Name, Entries: len(zr.File)}, nil
}

// tarMagicOffset is where a ustar or GNU tar header keeps its "ustar" magic.
const tarMagicOffset = 257

// isTarHeader reports whether data starts with an uncompressed tar header.
func isTarHeader(data []byte) bool {
	return len(data) >= tarMagicOffset+5 && string(data[tarMagicOffset:tarMagicOffset+5]) == "ustar"
}

// tarFirstEntry returns the first member of a tar stream. The wrapping codec
// is sniffed from content; the suffix codec is only used when neither a
// compression nor a tar signature is recognized.
func (r *Resolver) tarFirstEntry(data []byte, suffixCodec compression.Codec) (Payload, error) {
	codec := compression.Detect(data)
	if codec == compression.None && !isTarHeader(data) {
		codec = suffixCodec
	}

	c, err := compression.For(codec)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: %w", ErrCorruptArchive, err)
	}
	stream, err := c.DecompressStream(bytes.NewReader(data))
	if err != nil {
		return Payload{}, fmt.Errorf("%w: open %s tar stream: %w", ErrCorruptArchive, codec, err)
	}
	defer stream.Close()

	scan := &scanBudget{r: stream, n: -1}
	tr := tar.NewReader(scan)
	hdr, err := tr.Next()
	if err == io.EOF {
		return Payload{}, fmt.Errorf("%w: tar has no entries", ErrCorruptArchive)
	}
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read tar header: %w", ErrCorruptArchive, err)
	}
	if hdr.FileInfo().IsDir() {
		return Payload{}, fmt.Errorf("%w: first tar member %q is a directory", ErrCorruptArchive, hdr.Name)
	}

	out, err := r.readLimited(tr)
	if err != nil {
		return Payload{}, fmt.Errorf("%w: read tar member %q: %w", ErrCorruptArchive, hdr.Name, err)
	}

	// Count the remaining members for the multi-entry warning. Skipping a
	// member decompresses it, so the scan gets the same byte budget as the
	// payload. A damaged or over-budget tail does not invalidate the member
	// already read.
	if r.MaxSize > 0 {
		scan.n = r.MaxSize
	}
	entries := 1
	for {
		if _, err := tr.Next(); err != nil {
			break
		}
		entries++
	}

	return Payload{Data: out, Name: hdr.Name, Entries: entries}, nil
}

// scanBudget fails reads once n bytes have been consumed. A negative n
// disables the budget.
type scanBudget struct {
	r io.Reader
	n int64
}

var errScanBudget = errors.New("tar scan budget exhausted")

func (b *scanBudget) Read(p []byte) (int, error) {
	if b.n < 0 {
		return b.r.Read(p)
	}
	if b.n == 0 {
		return 0, errScanBudget
	}
	if int64(len(p)) > b.n {
		p = p[:b.n]
	}
	n, err := b.r.Read(p)
	b.n -= int64(n)
	return n, err
}

// readLimited reads rd fully, failing with ErrPayloadTooLarge past MaxSize.
func (r *Resolver) readLimited(rd io.Reader) ([]byte, error) {
	if r.MaxSize <= 0 {
		return io.ReadAll(rd)
	}
	out, err := io.ReadAll(io.LimitReader(rd, r.MaxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > r.MaxSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrPayloadTooLarge, r.MaxSize)
	}
	return out, nil
}
