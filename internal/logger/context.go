package logger

import "context"

// contextKey is unexported so no other package can collide with our keys.
type contextKey struct{}

var requestIDKey = contextKey{}

// WithRequestID stores the request ID on the context so downstream log
// lines can correlate back to the originating HTTP request.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored by WithRequestID, or "" when
// the context carries none.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
