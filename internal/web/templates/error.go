package templates

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// ErrorAlert renders an error fragment for htmx targets.
func ErrorAlert(message, action, code string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<div class="alert" role="alert"><strong>`)
		h.text(message)
		h.raw(`</strong>`)
		if action != "" {
			h.raw(`<p>`)
			h.text(action)
			h.raw(`</p>`)
		}
		h.raw(`<small>Code: `)
		h.text(code)
		h.raw(`</small></div>`)
		return h.err
	})
}
