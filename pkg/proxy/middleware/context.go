package middleware

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// Context keys for values stored in the request context.
const (
	// RequestIDKey stores the unique request ID.
	RequestIDKey contextKey = "request_id"
)
