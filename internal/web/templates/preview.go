package templates

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// PreviewView is a stored conversion as shown to the user.
type PreviewView struct {
	ID        string
	FileName  string
	InnerName string
	Strategy  string
	Rows      int
	Columns   int

	Header []string
	// Cells holds the preview rows; nil entries render as missing.
	Cells [][]*string

	Formats      []string
	Compressions []string
}

// PreviewPartial renders the preview fragment swapped in after an upload.
func PreviewPartial(v PreviewView) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="conversion" id="conversion-`)
		h.text(v.ID)
		h.raw(`"><h2>`)
		h.text(v.FileName)
		h.raw(`</h2><p>`)
		if v.InnerName != "" && v.InnerName != v.FileName {
			h.raw(`Read `)
			h.text(v.InnerName)
			h.raw(` (`)
			h.text(v.Strategy)
			h.raw(`). `)
		}
		h.text(strconv.Itoa(v.Rows) + " rows × " + strconv.Itoa(v.Columns) + " columns.")
		h.raw(`</p>`)

		previewTable(h, v)

		h.raw(`<p><a href="/api/preview/`)
		h.text(v.ID)
		h.raw(`/download" download>Download preview (CSV)</a></p>`)

		h.raw(`<form method="get" action="/api/export/`)
		h.text(v.ID)
		h.raw(`"><label>Format <select name="format">`)
		options(h, v.Formats)
		h.raw(`</select></label> <label>Compression <select name="compression">`)
		options(h, v.Compressions)
		h.raw(`</select></label> <button type="submit">Export</button></form></section>`)
		return h.err
	})
}

// ConversionPage renders a stored conversion as a full page.
func ConversionPage(v PreviewView) templ.Component {
	return page(v.FileName, PreviewPartial(v))
}

func previewTable(h *htmlWriter, v PreviewView) {
	h.raw(`<table><thead><tr>`)
	for _, name := range v.Header {
		h.raw(`<th>`)
		h.text(name)
		h.raw(`</th>`)
	}
	h.raw(`</tr></thead><tbody>`)
	for _, row := range v.Cells {
		h.raw(`<tr>`)
		for _, cell := range row {
			if cell == nil {
				h.raw(`<td class="missing"></td>`)
				continue
			}
			h.raw(`<td>`)
			h.text(*cell)
			h.raw(`</td>`)
		}
		h.raw(`</tr>`)
	}
	h.raw(`</tbody></table>`)
}

func options(h *htmlWriter, values []string) {
	for _, v := range values {
		h.raw(`<option value="`)
		h.text(v)
		h.raw(`">`)
		h.text(v)
		h.raw(`</option>`)
	}
}
