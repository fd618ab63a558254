// Package templates renders the upload UI as templ components.
package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// HTMXSrc is the htmx bundle loaded by every page. The CSP built by the
// server allows this origin.
const HTMXSrc = "https://unpkg.com/htmx.org@2.0.4"

// htmlWriter writes markup and keeps the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s HTML-escaped.
func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) render(ctx context.Context, c templ.Component) {
	if h.err == nil {
		h.err = c.Render(ctx, h.w)
	}
}

// page wraps body in the shared document shell.
func page(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title><meta name="htmx-config" content='{"responseHandling":[{"code":".*","swap":true}]}'>`)
		h.raw(`<script src="` + HTMXSrc + `"></script>`)
		h.raw(`<style>body{font-family:system-ui,sans-serif;margin:2rem;max-width:72rem}` +
			`table{border-collapse:collapse}td,th{border:1px solid #ccc;padding:.25rem .5rem}` +
			`td.missing{color:#999}.alert{border:1px solid #c33;background:#fee;padding:.75rem}</style>`)
		h.raw(`</head><body><h1><a href="/">β-value converter</a></h1>`)
		h.render(ctx, body)
		h.raw(`</body></html>`)
		return h.err
	})
}
