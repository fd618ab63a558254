package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// IndexView is the data for the upload page.
type IndexView struct {
	// Advertised lists the file types shown to the user.
	Advertised []string
	// Suffixes lists the compression suffixes that are unwrapped.
	Suffixes []string
	// MaxUpload is the human readable upload limit, e.g. "200MB".
	MaxUpload string
}

// Index renders the upload page.
func Index(v IndexView) templ.Component {
	return page("Upload", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<p>Upload DNA/genomics files (`)
		h.text(strings.Join(v.Advertised, ", "))
		h.raw(`, etc.) to extract β-values and download as TXT/CSV/Parquet.</p>`)
		h.raw(`<p>Compressed uploads (`)
		h.text(strings.Join(v.Suffixes, " "))
		h.raw(`) are unwrapped first. Archives use their first entry.`)
		if v.MaxUpload != "" {
			h.raw(` Maximum upload size: `)
			h.text(v.MaxUpload)
			h.raw(`.`)
		}
		h.raw(`</p>`)
		h.raw(`<form id="upload" hx-post="/api/upload" hx-encoding="multipart/form-data" hx-target="#result" hx-swap="innerHTML">`)
		h.raw(`<input type="file" name="file" required> <button type="submit">Upload</button></form>`)
		h.raw(`<div id="result"></div>`)
		return h.err
	}))
}
