package core

import "context"

type contextKey int

const (
	ctxKeyClientIP contextKey = iota
	ctxKeyUserAgent
	ctxKeyConversionID
)

// ContextWithClient attaches the caller's address and user agent for the
// audit log.
func ContextWithClient(ctx context.Context, ip, userAgent string) context.Context {
	ctx = context.WithValue(ctx, ctxKeyClientIP, ip)
	return context.WithValue(ctx, ctxKeyUserAgent, userAgent)
}

// ContextWithConversionID tags audit entries with the web session's
// conversion id.
func ContextWithConversionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyConversionID, id)
}

func stringFromContext(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// ClientIPFromContext returns the address set by ContextWithClient.
func ClientIPFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyClientIP)
}

// UserAgentFromContext returns the user agent set by ContextWithClient.
func UserAgentFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyUserAgent)
}

// ConversionIDFromContext returns the id set by ContextWithConversionID.
func ConversionIDFromContext(ctx context.Context) string {
	return stringFromContext(ctx, ctxKeyConversionID)
}
