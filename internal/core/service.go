package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/betaconv/internal/compression"
	"github.com/JonMunkholm/betaconv/internal/decompress"
	"github.com/JonMunkholm/betaconv/internal/logging"
	"github.com/JonMunkholm/betaconv/internal/table"
)

// PreviewFileName is the download name of a preview export.
const PreviewFileName = "preview.csv"

// Blob is an uploaded file as received from the caller.
type Blob struct {
	Data     []byte
	FileName string
}

// Source describes how an upload was unwrapped.
type Source struct {
	FileName  string              `json:"file_name"`
	InnerName string              `json:"inner_name"`
	Strategy  decompress.Strategy `json:"-"`
	Entries   int                 `json:"entries"`
	Bytes     int                 `json:"bytes"`
}

// PipelineResult is the outcome of Upload. Either Error is set, or Preview,
// Table and Source are.
type PipelineResult struct {
	Preview *table.Table
	Table   *table.Table
	Source  Source
	Error   *UserError
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	// MaxDecompressedSize bounds an unwrapped upload in bytes (0 = unbounded).
	MaxDecompressedSize int64

	PreviewRows int
	PreviewCols int

	MaxConcurrent int
	MaxWait       time.Duration

	// Audit receives one entry per operation. Nil disables auditing.
	Audit AuditRecorder
}

// Service runs the decompress, parse, preview and export pipeline.
// It is safe for concurrent use; each call is independent.
type Service struct {
	resolver *decompress.Resolver
	limiter  *ConversionLimiter
	audit    AuditRecorder

	previewRows int
	previewCols int
}

// NewService creates a Service.
func NewService(opts Options) *Service {
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = table.DefaultPreviewRows
	}
	if opts.PreviewCols <= 0 {
		opts.PreviewCols = table.DefaultPreviewCols
	}
	if opts.Audit == nil {
		opts.Audit = nopAudit{}
	}

	return &Service{
		resolver:    decompress.NewResolver(opts.MaxDecompressedSize),
		limiter:     NewConversionLimiter(opts.MaxConcurrent, opts.MaxWait),
		audit:       opts.Audit,
		previewRows: opts.PreviewRows,
		previewCols: opts.PreviewCols,
	}
}

// Limiter exposes the conversion limiter for health reporting and shutdown.
func (s *Service) Limiter() *ConversionLimiter {
	return s.limiter
}

// Upload unwraps, parses and previews blob. Failures come back in
// PipelineResult.Error, never as a partial result.
func (s *Service) Upload(ctx context.Context, blob Blob) PipelineResult {
	logger := logging.WithFields(ctx, "file", blob.FileName)
	entry := newAuditEntry(ctx, ActionUpload)
	entry.FileName = blob.FileName
	entry.Bytes = int64(len(blob.Data))

	fail := func(stage string, err error) PipelineResult {
		ue := NewUserError(err)
		logger.Error("upload failed", "stage", stage, "code", ue.User.Code, "error", err)
		entry.ErrorCode = ue.User.Code
		s.record(ctx, entry)
		return PipelineResult{Error: ue}
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return fail("acquire", err)
	}
	defer s.limiter.Release()

	start := time.Now()

	payload, err := s.resolver.Resolve(ctx, blob.Data, blob.FileName)
	if err != nil {
		return fail("decompress", err)
	}
	entry.InnerName = payload.Name
	entry.Strategy = payload.Strategy.String()

	parsed, err := table.Parse(payload.Data)
	if err != nil {
		return fail("parse", err)
	}
	entry.Rows = parsed.NumRows()
	entry.Columns = parsed.NumCols()

	preview := table.Preview(parsed, s.previewRows, s.previewCols)

	logger.Info("upload converted",
		"strategy", payload.Strategy.String(),
		"inner_name", payload.Name,
		"rows", parsed.NumRows(),
		"columns", parsed.NumCols(),
		"duration", time.Since(start),
	)
	s.record(ctx, entry)

	return PipelineResult{
		Preview: preview,
		Table:   parsed,
		Source: Source{
			FileName:  blob.FileName,
			InnerName: payload.Name,
			Strategy:  payload.Strategy,
			Entries:   payload.Entries,
			Bytes:     len(blob.Data),
		},
	}
}

// RequestExport serializes t in the requested format and compression.
// Unknown tags and impossible pairings wrap table.ErrUnsupportedCombination.
func (s *Service) RequestExport(ctx context.Context, t *table.Table, format, codec string) (table.Artifact, error) {
	logger := logging.WithFields(ctx, "format", format, "compression", codec)
	entry := newAuditEntry(ctx, ActionExport)
	entry.Format = format
	entry.Compression = codec
	entry.Rows = t.NumRows()
	entry.Columns = t.NumCols()

	art, err := s.export(ctx, t, format, codec)
	if err != nil {
		entry.ErrorCode = MapError(err).Code
		s.record(ctx, entry)
		logger.Warn("export failed", "code", entry.ErrorCode, "error", err)
		return table.Artifact{}, err
	}

	entry.Bytes = int64(len(art.Data))
	s.record(ctx, entry)
	logger.Info("export produced", "file", art.FileName, "bytes", len(art.Data))
	return art, nil
}

func (s *Service) export(ctx context.Context, t *table.Table, format, codec string) (table.Artifact, error) {
	req, err := table.NewExportRequest(format, codec)
	if err != nil {
		return table.Artifact{}, err
	}
	if err := s.limiter.Acquire(ctx); err != nil {
		return table.Artifact{}, err
	}
	defer s.limiter.Release()

	return table.Export(t, req)
}

// RequestPreviewDownload serializes a preview table as uncompressed CSV
// named preview.csv.
func (s *Service) RequestPreviewDownload(ctx context.Context, preview *table.Table) (table.Artifact, error) {
	entry := newAuditEntry(ctx, ActionPreviewDownload)
	entry.Format = string(table.FormatCSV)
	entry.Compression = string(compression.None)
	entry.Rows = preview.NumRows()
	entry.Columns = preview.NumCols()

	data, err := table.EncodeCSV(preview)
	if err != nil {
		entry.ErrorCode = MapError(err).Code
		s.record(ctx, entry)
		return table.Artifact{}, err
	}

	entry.Bytes = int64(len(data))
	s.record(ctx, entry)
	return table.Artifact{
		Data:        data,
		FileName:    PreviewFileName,
		ContentType: table.ExportRequest{Format: table.FormatCSV, Compression: compression.None}.ContentType(),
	}, nil
}

// record writes an audit entry. Audit failures are logged, not returned.
func (s *Service) record(ctx context.Context, entry AuditEntry) {
	if err := s.audit.Record(ctx, entry); err != nil {
		logging.FromContext(ctx).Warn("audit record failed", "action", entry.Action, "error", err)
	}
}
