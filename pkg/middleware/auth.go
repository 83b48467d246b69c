package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/contextkeys"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

// Client-facing gate messages
const (
	MessageAuthenticationFailed = "Authentication failed"
	MessageTokenExpired         = "Token expired"
	MessageAccessDenied         = "Access denied"
)

// errIdentityLookup marks a user store fault, which is not the caller's doing
var errIdentityLookup = errors.New("identity lookup failed")

// AuthConfig holds the collaborators of the auth gate
type AuthConfig struct {
	Tokens      *auth.TokenService
	Users       storage.UserStore
	Revocations storage.RevocationStore
	CookieName  string
	Audit       *audit.Recorder
	Metrics     *observability.Metrics
}

// AuthMiddleware rejects requests that do not carry a live session token
type AuthMiddleware struct {
	tokens      *auth.TokenService
	users       storage.UserStore
	revocations storage.RevocationStore
	cookieName  string
	audit       *audit.Recorder
	metrics     *observability.Metrics
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(cfg AuthConfig) *AuthMiddleware {
	cookieName := cfg.CookieName
	if cookieName == "" {
		cookieName = auth.DefaultCookieName
	}
	return &AuthMiddleware{
		tokens:      cfg.Tokens,
		users:       cfg.Users,
		revocations: cfg.Revocations,
		cookieName:  cookieName,
		audit:       cfg.Audit,
		metrics:     cfg.Metrics,
	}
}

// Authenticate resolves the caller of r. Checks run in order: token present,
// not revoked, signature and expiry valid, identity still exists.
func (m *AuthMiddleware) Authenticate(r *http.Request) (*auth.AuthContext, error) {
	ctx := r.Context()

	token, err := auth.ExtractToken(r, m.cookieName)
	if err != nil {
		return nil, err
	}

	revoked, err := m.revocations.IsRevoked(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("revocation lookup failed: %w", err)
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}

	v := m.tokens.Verify(token)
	if !v.Valid() {
		return nil, v.Err
	}

	user, err := m.users.GetUserByID(ctx, v.Claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, auth.ErrIdentityGone
		}
		return nil, fmt.Errorf("%w: %w", errIdentityLookup, err)
	}

	return &auth.AuthContext{
		Claims:   v.Claims,
		Identity: user,
		Token:    token,
	}, nil
}

// Handler wraps an HTTP handler with authentication
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx, err := m.Authenticate(r)
		if err != nil {
			m.reject(w, r, err)
			return
		}

		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, authCtx.Identity.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *AuthMiddleware) reject(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	reason := RejectionReason(err)
	m.metrics.RecordGateRejection(reason)

	logger := observability.FromContext(ctx).
		WithField("component", "auth_gate").
		WithField("reason", reason).
		WithField("path", r.URL.Path)

	if errors.Is(err, errIdentityLookup) {
		logger.WithError(err).Error("auth gate could not load identity")
		httputil.WriteInternalError(w)
		return
	}

	logger.WithError(err).Debug("request rejected")
	if reason != "no_token" {
		m.audit.Authentication(ctx, audit.EventTypeAuthTokenRejected, "", "", audit.EventStatusFailure, reason)
	}

	if errors.Is(err, auth.ErrTokenExpired) {
		httputil.WriteUnauthorized(w, MessageTokenExpired, httputil.CodeTokenExpired)
		return
	}
	httputil.WriteUnauthorized(w, MessageAuthenticationFailed, httputil.CodeAuthenticationFailed)
}

// RejectionReason names a gate failure for logs and metrics
func RejectionReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "no_token"
	case errors.Is(err, auth.ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, auth.ErrTokenExpired):
		return "expired"
	case errors.Is(err, auth.ErrTokenMalformed):
		return "invalid_token"
	case errors.Is(err, auth.ErrIdentityGone):
		return "identity_gone"
	case errors.Is(err, errIdentityLookup):
		return "identity_lookup_error"
	default:
		return "revocation_lookup_error"
	}
}

// AuthFromContext returns the caller attached by AuthMiddleware
func AuthFromContext(ctx context.Context) *auth.AuthContext {
	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*auth.AuthContext)
	return authCtx
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *auth.AuthContext {
	return AuthFromContext(r.Context())
}

// RequireRole creates middleware that admits only callers whose token carries role
func RequireRole(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteUnauthorized(w, MessageAuthenticationFailed, httputil.CodeAuthenticationFailed)
				return
			}

			if !authCtx.HasRole(role) {
				httputil.WriteForbidden(w, MessageAccessDenied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
