package ctxutil

import "context"

// requestIDKeyType is a private key type to avoid context key collisions.
type requestIDKeyType struct{}

var requestIDKey = requestIDKeyType{}

// WithRequestID stores the request id in ctx. The request-id middleware
// calls this so downstream logs can correlate one HTTP request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request id stored in ctx, if any.
func GetRequestID(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v := ctx.Value(requestIDKey)
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}
