package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/platinummonkey/larder/pkg/audit"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/contextkeys"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
	"github.com/platinummonkey/larder/pkg/storage/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type auditSink struct {
	mu     sync.Mutex
	events []*audit.Event
}

func (s *auditSink) Log(ctx context.Context, e *audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *auditSink) Close() error { return nil }

type brokenUsers struct {
	storage.UserStore
}

func (brokenUsers) GetUserByID(ctx context.Context, id string) (*auth.Identity, error) {
	return nil, errors.New("mongo: connection refused")
}

type brokenRevocations struct {
	storage.RevocationStore
}

func (brokenRevocations) IsRevoked(ctx context.Context, token string) (bool, error) {
	return false, errors.New("mongo: connection refused")
}

type gateFixture struct {
	gate        *AuthMiddleware
	cfg         AuthConfig
	users       *memory.UserStore
	revocations *memory.RevocationStore
	tokens      *auth.TokenService
	sink        *auditSink
	metrics     *observability.Metrics
	alice       *auth.Identity
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	f := &gateFixture{
		users:       memory.NewUserStore(),
		revocations: memory.NewRevocationStore(),
		tokens:      tokens,
		sink:        &auditSink{},
		metrics:     observability.NewMetrics(prometheus.NewRegistry()),
		alice:       &auth.Identity{Email: "alice@example.com", PasswordHash: "x", Role: auth.RoleUser},
	}
	require.NoError(t, f.users.CreateUser(context.Background(), f.alice))

	f.cfg = AuthConfig{
		Tokens:      f.tokens,
		Users:       f.users,
		Revocations: f.revocations,
		Audit:       audit.NewRecorder(f.sink, nil),
		Metrics:     f.metrics,
	}
	f.gate = NewAuthMiddleware(f.cfg)
	return f
}

func (f *gateFixture) issue(t *testing.T, id auth.Identity) string {
	t.Helper()
	token, _, err := f.tokens.Issue(id.ID, id.Email, id.Role)
	require.NoError(t, err)
	return token
}

// serve runs req through the gate and reports whether the protected handler ran
func serve(gate *AuthMiddleware, req *http.Request) (*httptest.ResponseRecorder, *auth.AuthContext, string) {
	var (
		seen   *auth.AuthContext
		userID string
	)
	handler := gate.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetAuthContext(r)
		userID = contextkeys.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, seen, userID
}

func bearer(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestAuthMiddleware_Admits(t *testing.T) {
	f := newGateFixture(t)
	token := f.issue(t, *f.alice)

	t.Run("bearer header", func(t *testing.T) {
		rec, authCtx, userID := serve(f.gate, bearer(token))
		require.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, authCtx)
		assert.Equal(t, f.alice.ID, authCtx.Identity.ID)
		assert.Equal(t, f.alice.ID, authCtx.Claims.UserID)
		assert.Equal(t, token, authCtx.Token)
		assert.Equal(t, f.alice.ID, userID)
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
		rec, authCtx, _ := serve(f.gate, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotNil(t, authCtx)
	})

	t.Run("cookie wins over header", func(t *testing.T) {
		req := bearer("garbage")
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
		rec, _, _ := serve(f.gate, req)
		assert.Equal(t, http.StatusOK, rec.Code)

		req = bearer(token)
		req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: "garbage"})
		rec, authCtx, _ := serve(f.gate, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, authCtx)
	})
}

func TestAuthMiddleware_RejectsCollapsed(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	revoked := f.issue(t, *f.alice)
	require.NoError(t, f.revocations.Revoke(ctx, revoked, time.Now().Add(time.Hour)))

	ghost := f.issue(t, auth.Identity{ID: "deleted-user", Email: "ghost@example.com", Role: auth.RoleUser})

	otherKey, err := auth.NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), time.Hour)
	require.NoError(t, err)
	forged, _, err := otherKey.Issue(f.alice.ID, f.alice.Email, auth.RoleAdmin)
	require.NoError(t, err)

	tests := []struct {
		name   string
		req    *http.Request
		reason string
	}{
		{name: "no token", req: httptest.NewRequest(http.MethodGet, "/api/users/me", nil), reason: "no_token"},
		{name: "not bearer", req: func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/api/users/me", nil)
			r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
			return r
		}(), reason: "no_token"},
		{name: "revoked", req: bearer(revoked), reason: "revoked"},
		{name: "malformed", req: bearer("not.a.token"), reason: "invalid_token"},
		{name: "wrong signing key", req: bearer(forged), reason: "invalid_token"},
		{name: "identity gone", req: bearer(ghost), reason: "identity_gone"},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, authCtx, _ := serve(f.gate, tt.req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Nil(t, authCtx)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AuthGateRejectionsTotal.WithLabelValues(tt.reason)), tt.reason)
			bodies = append(bodies, rec.Body.String())
		})
		f.metrics.AuthGateRejectionsTotal.Reset()
	}

	for _, b := range bodies {
		assert.JSONEq(t, `{"message":"Authentication failed","error":"authentication_failed"}`, b)
	}

	// no_token is not audited
	assert.Len(t, f.sink.events, 4)
	for _, e := range f.sink.events {
		assert.Equal(t, audit.EventTypeAuthTokenRejected, e.EventType)
	}
}

func TestAuthMiddleware_Expired(t *testing.T) {
	f := newGateFixture(t)
	past, err := auth.NewTokenService(testSecret, time.Hour, auth.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}))
	require.NoError(t, err)
	token, _, err := past.Issue(f.alice.ID, f.alice.Email, f.alice.Role)
	require.NoError(t, err)

	rec, authCtx, _ := serve(f.gate, bearer(token))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, authCtx)
	assert.Equal(t, "Token expired", decodeBody(t, rec)["message"])
	assert.Equal(t, "token_expired", decodeBody(t, rec)["error"])
}

func TestAuthMiddleware_RevocationLifecycle(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()
	kept := f.issue(t, *f.alice)
	dropped := f.issue(t, *f.alice)
	require.NotEqual(t, kept, dropped)

	require.NoError(t, f.revocations.Revoke(ctx, dropped, time.Now().Add(time.Hour)))

	rec, _, _ := serve(f.gate, bearer(dropped))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _, _ = serve(f.gate, bearer(kept))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware_StoreFaults(t *testing.T) {
	t.Run("revocation store fails closed", func(t *testing.T) {
		f := newGateFixture(t)
		cfg := f.cfg
		cfg.Revocations = brokenRevocations{}
		rec, authCtx, _ := serve(NewAuthMiddleware(cfg), bearer(f.issue(t, *f.alice)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Nil(t, authCtx)
		assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.AuthGateRejectionsTotal.WithLabelValues("revocation_lookup_error")))
	})

	t.Run("user store fault is a server error", func(t *testing.T) {
		f := newGateFixture(t)
		cfg := f.cfg
		cfg.Users = brokenUsers{}
		rec, authCtx, _ := serve(NewAuthMiddleware(cfg), bearer(f.issue(t, *f.alice)))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Nil(t, authCtx)
		assert.NotContains(t, rec.Body.String(), "mongo")
	})
}

func TestRejectionReason(t *testing.T) {
	assert.Equal(t, "no_token", RejectionReason(auth.ErrNoToken))
	assert.Equal(t, "expired", RejectionReason(auth.ErrTokenExpired))
	assert.Equal(t, "identity_lookup_error", RejectionReason(errIdentityLookup))
	assert.Equal(t, "revocation_lookup_error", RejectionReason(errors.New("timeout")))
}

func withAuth(r *http.Request, role auth.Role) *http.Request {
	authCtx := &auth.AuthContext{Claims: &auth.Claims{UserID: "u-1", Role: role}}
	return r.WithContext(contextkeys.WithAuth(r.Context(), authCtx))
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(auth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("admin passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withAuth(httptest.NewRequest(http.MethodGet, "/api/users/x", nil), auth.RoleAdmin))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("user is denied", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, withAuth(httptest.NewRequest(http.MethodGet, "/api/users/x", nil), auth.RoleUser))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.JSONEq(t, `{"message":"Access denied","error":"forbidden"}`, rec.Body.String())
	})

	t.Run("no auth context", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/users/x", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestAuthFromContext_Missing(t *testing.T) {
	assert.Nil(t, AuthFromContext(context.Background()))
	assert.Nil(t, AuthFromContext(contextkeys.WithAuth(context.Background(), "not an auth context")))
}
