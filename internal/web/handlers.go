package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/betaconv/internal/compression"
	"github.com/JonMunkholm/betaconv/internal/core"
	"github.com/JonMunkholm/betaconv/internal/decompress"
	"github.com/JonMunkholm/betaconv/internal/logging"
	"github.com/JonMunkholm/betaconv/internal/table"
	"github.com/JonMunkholm/betaconv/internal/web/templates"
	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// AdvertisedTypes are the file types named on the upload page. Only
// delimited text is parsed; the genomic extensions are sniffed as text.
var AdvertisedTypes = []string{".idat", ".tz", ".vcf", ".bed", ".csv", ".tsv", ".txt"}

// multipartMemory is how much of a multipart body is kept in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// maxAuditPage caps the limit parameter of /api/audit.
const maxAuditPage = 500

var errNoFile = errors.New("no file provided")

// uploadResponse is the JSON body of a successful upload.
type uploadResponse struct {
	ID        string      `json:"id"`
	FileName  string      `json:"file_name"`
	InnerName string      `json:"inner_name"`
	Strategy  string      `json:"strategy"`
	Entries   int         `json:"entries"`
	Rows      int         `json:"rows"`
	Columns   int         `json:"columns"`
	Preview   previewJSON `json:"preview"`
}

type previewJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// optionsResponse describes what the server accepts and produces.
type optionsResponse struct {
	Advertised    []string            `json:"advertised"`
	SniffedAsText bool                `json:"sniffed_as_text"`
	Suffixes      []string            `json:"suffixes"`
	Formats       []string            `json:"formats"`
	Compressions  []string            `json:"compressions"`
	Combinations  map[string][]string `json:"combinations"`
	MaxUpload     int64               `json:"max_upload_bytes"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	view := templates.IndexView{
		Advertised: AdvertisedTypes,
		Suffixes:   decompress.Suffixes(),
		MaxUpload:  formatBytes(s.cfg.Upload.MaxFileSize),
	}
	renderHTML(w, r, http.StatusOK, templates.Index(view))
}

// handleHealth reports conversion slot usage and stored conversions.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status":      "ok",
		"conversions": s.service.Limiter().Status(),
		"sessions":    s.sessions.Len(),
		"audit":       s.audit != nil,
	})
}

// handleUpload runs the pipeline on a multipart "file" field and stores the
// result. htmx requests get the preview fragment, everything else JSON.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, r, err, 0)
			return
		case errors.Is(err, http.ErrNotMultipart):
			s.respondError(w, r, errNoFile, 0)
			return
		}
		s.respondError(w, r, fmt.Errorf("invalid upload form: %w", err), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, r, errNoFile, 0)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	id := newConversionID()
	ctx := core.ContextWithConversionID(WithRequestMetadata(r.Context(), r), id)

	res := s.service.Upload(ctx, core.Blob{Data: data, FileName: header.Filename})
	if res.Error != nil {
		s.respondError(w, r, res.Error.Technical, 0)
		return
	}

	conv := s.sessions.Put(id, res)
	logging.FromContext(ctx).Debug("conversion stored", "conversion_id", id, "sessions", s.sessions.Len())

	if isHTMX(r) {
		w.Header().Set("HX-Push-Url", "/conversion/"+conv.ID)
		renderHTML(w, r, http.StatusOK, templates.PreviewPartial(previewView(conv)))
		return
	}
	writeJSON(w, r, http.StatusOK, newUploadResponse(conv))
}

// handleConversion renders a stored conversion as a full page.
func (s *Server) handleConversion(w http.ResponseWriter, r *http.Request) {
	conv, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	renderHTML(w, r, http.StatusOK, templates.ConversionPage(previewView(conv)))
}

// handleExport serializes the full table of a conversion. format and
// compression come from the query string or form and default to csv/none.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	conv, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = string(table.FormatCSV)
	}
	codec := r.FormValue("compression")
	if codec == "" {
		codec = string(compression.None)
	}

	ctx := core.ContextWithConversionID(WithRequestMetadata(r.Context(), r), conv.ID)
	art, err := s.service.RequestExport(ctx, conv.Table, format, codec)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeArtifact(w, art)
}

// handlePreviewDownload serves the preview window as preview.csv.
func (s *Server) handlePreviewDownload(w http.ResponseWriter, r *http.Request) {
	conv, err := s.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	ctx := core.ContextWithConversionID(WithRequestMetadata(r.Context(), r), conv.ID)
	art, err := s.service.RequestPreviewDownload(ctx, conv.Preview)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeArtifact(w, art)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	resp := optionsResponse{
		Advertised:    AdvertisedTypes,
		SniffedAsText: true,
		Suffixes:      decompress.Suffixes(),
		Combinations:  make(map[string][]string, len(table.Formats)),
		MaxUpload:     s.cfg.Upload.MaxFileSize,
	}
	for _, c := range compression.Codecs {
		resp.Compressions = append(resp.Compressions, string(c))
	}
	for _, f := range table.Formats {
		resp.Formats = append(resp.Formats, string(f))
		valid := []string{}
		for _, c := range compression.Codecs {
			if _, err := table.NewExportRequest(string(f), string(c)); err == nil {
				valid = append(valid, string(c))
			}
		}
		resp.Combinations[string(f)] = valid
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleAudit lists recent audit entries, newest first.
// Query: action (upload|export|preview_download), limit, offset.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	q := core.AuditQuery{
		Action: core.AuditAction(r.URL.Query().Get("action")),
		Limit:  parseIntParam(r, "limit", core.DefaultAuditLimit),
		Offset: parseIntParam(r, "offset", 0),
	}
	if q.Limit > maxAuditPage {
		q.Limit = maxAuditPage
	}

	entries, err := s.audit.Recent(r.Context(), q)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("list audit entries: %w", err), http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"entries": entries,
		"limit":   q.Limit,
		"offset":  q.Offset,
	})
}

// parseIntParam parses a non-negative integer query parameter, falling back
// to defaultVal when absent or invalid.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}

func newUploadResponse(conv *Conversion) uploadResponse {
	p := conv.Preview
	rows := make([][]any, p.NumRows())
	for r := range rows {
		row := make([]any, p.NumCols())
		for c := range row {
			row[c] = p.Cell(r, c).Value()
		}
		rows[r] = row
	}

	return uploadResponse{
		ID:        conv.ID,
		FileName:  conv.Source.FileName,
		InnerName: conv.Source.InnerName,
		Strategy:  conv.Source.Strategy.String(),
		Entries:   conv.Source.Entries,
		Rows:      conv.Table.NumRows(),
		Columns:   conv.Table.NumCols(),
		Preview:   previewJSON{Columns: p.Names(), Rows: rows},
	}
}

func previewView(conv *Conversion) templates.PreviewView {
	p := conv.Preview
	cells := make([][]*string, p.NumRows())
	for r := range cells {
		row := make([]*string, p.NumCols())
		for c := range row {
			if cell := p.Cell(r, c); !cell.IsMissing() {
				s := cell.String()
				row[c] = &s
			}
		}
		cells[r] = row
	}

	v := templates.PreviewView{
		ID:        conv.ID,
		FileName:  conv.Source.FileName,
		InnerName: conv.Source.InnerName,
		Strategy:  conv.Source.Strategy.String(),
		Rows:      conv.Table.NumRows(),
		Columns:   conv.Table.NumCols(),
		Header:    p.Names(),
		Cells:     cells,
	}
	for _, f := range table.Formats {
		v.Formats = append(v.Formats, string(f))
	}
	for _, c := range compression.Codecs {
		v.Compressions = append(v.Compressions, string(c))
	}
	return v
}

// writeArtifact sends an export as an attachment.
func writeArtifact(w http.ResponseWriter, art table.Artifact) {
	h := w.Header()
	h.Set("Content-Type", art.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", art.FileName))
	h.Set("Content-Length", strconv.Itoa(len(art.Data)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(art.Data)
}

func renderHTML(w http.ResponseWriter, r *http.Request, status int, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render failed", "path", r.URL.Path, "error", err)
	}
}

// formatBytes renders n with the largest binary unit that divides it.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<30 && n%(1<<30) == 0:
		return strconv.FormatInt(n>>30, 10) + "GB"
	case n >= 1<<20 && n%(1<<20) == 0:
		return strconv.FormatInt(n>>20, 10) + "MB"
	case n >= 1<<10 && n%(1<<10) == 0:
		return strconv.FormatInt(n>>10, 10) + "KB"
	default:
		return strconv.FormatInt(n, 10) + "B"
	}
}
