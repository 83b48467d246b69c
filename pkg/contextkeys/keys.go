// Package contextkeys provides centralized context key definitions
//
// All context keys used across the application are defined here so that
// setters and getters in different packages agree on one typed key.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/larder/pkg/contextkeys"
//	ctx = contextkeys.WithAuth(ctx, authCtx)
//	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// AuthKey contains *auth.AuthContext
	// Set by: middleware.AuthMiddleware (pkg/middleware/auth.go)
	// Required by: protected API endpoints, role gate
	AuthKey Key = "auth_context"

	// RequestIDKey contains request ID string (UUID)
	// Set by: httputil.RequestIDMiddleware
	// Used by: Logger, audit trail
	RequestIDKey Key = "request_id"

	// UserIDKey contains the authenticated identity id
	// Set by: Auth middleware after the identity is resolved
	// Used by: Logger, audit trail
	UserIDKey Key = "user_id"

	// ClientIPKey contains the caller's address
	// Set by: httputil.RequestIDMiddleware
	// Used by: audit trail, rate limiting
	ClientIPKey Key = "client_ip"

	// UserAgentKey contains the caller's User-Agent header
	// Set by: httputil.RequestIDMiddleware
	// Used by: audit trail
	UserAgentKey Key = "user_agent"

	// LoggerKey contains *observability.Logger
	// Set by: httputil.LoggingMiddleware
	// Used by: handlers that log with request context
	LoggerKey Key = "logger"
)

// WithAuth adds authentication context to the context
func WithAuth(ctx context.Context, authCtx interface{}) context.Context {
	return context.WithValue(ctx, AuthKey, authCtx)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithUserID adds user ID to the context
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithClientIP adds the caller's address to the context
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ClientIPKey, ip)
}

// WithUserAgent adds the caller's user agent to the context
func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, UserAgentKey, ua)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	return getString(ctx, RequestIDKey)
}

// GetUserID retrieves user ID from context
func GetUserID(ctx context.Context) string {
	return getString(ctx, UserIDKey)
}

// GetClientIP retrieves the caller's address from context
func GetClientIP(ctx context.Context) string {
	return getString(ctx, ClientIPKey)
}

// GetUserAgent retrieves the caller's user agent from context
func GetUserAgent(ctx context.Context) string {
	return getString(ctx, UserAgentKey)
}

func getString(ctx context.Context, key Key) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}
