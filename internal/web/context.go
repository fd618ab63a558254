package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/betaconv/internal/core"
)

// WithRequestMetadata adds the client address and User-Agent to ctx for the
// audit log. RemoteAddr has already been rewritten by TrustedRealIP.
func WithRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	return core.ContextWithClient(ctx, r.RemoteAddr, r.UserAgent())
}
