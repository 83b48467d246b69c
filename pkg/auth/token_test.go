package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokenService(t *testing.T, clock *fakeClock) *TokenService {
	t.Helper()
	svc, err := NewTokenService(testSecret, time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("rejects short secret", func(t *testing.T) {
		svc, err := NewTokenService([]byte("short"), time.Hour)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("defaults ttl", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, 0)
		require.NoError(t, err)
		assert.Equal(t, DefaultTokenTTL, svc.TTL())
	})
}

func TestTokenService_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	tests := []struct {
		name   string
		userID string
		email  string
		role   Role
	}{
		{"standard user", "65f0c0ffee0000000000aaaa", "alice@example.com", RoleUser},
		{"admin", "65f0c0ffee0000000000bbbb", "root@example.com", RoleAdmin},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiresAt, err := svc.Issue(tt.userID, tt.email, tt.role)
			require.NoError(t, err)
			assert.Equal(t, clock.now.Add(time.Hour), expiresAt)

			v := svc.Verify(token)
			require.True(t, v.Valid(), "verify failed: %v", v.Err)
			assert.Equal(t, tt.userID, v.Claims.UserID)
			assert.Equal(t, tt.userID, v.Claims.Subject)
			assert.Equal(t, tt.email, v.Claims.Email)
			assert.Equal(t, tt.role, v.Claims.Role)
			assert.NotEmpty(t, v.Claims.ID)
		})
	}
}

func TestTokenService_IssueUniqueInSameSecond(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	a, _, err := svc.Issue("u1", "a@example.com", RoleUser)
	require.NoError(t, err)
	b, _, err := svc.Issue("u1", "a@example.com", RoleUser)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestTokenService_IssueRequiresUserID(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	_, _, err = svc.Issue("", "a@example.com", RoleUser)
	assert.Error(t, err)
}

func TestTokenService_Expired(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	token, _, err := svc.Issue("u1", "a@example.com", RoleUser)
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	assert.True(t, svc.Verify(token).Valid())

	clock.Advance(2 * time.Minute)
	v := svc.Verify(token)
	assert.False(t, v.Valid())
	assert.True(t, v.Expired())
	assert.ErrorIs(t, v.Err, ErrTokenExpired)
	assert.Nil(t, v.Claims)
}

func TestTokenService_Malformed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestTokenService(t, clock)

	good, _, err := svc.Issue("u1", "a@example.com", RoleUser)
	require.NoError(t, err)

	other, err := NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	foreign, _, err := other.Issue("u1", "a@example.com", RoleAdmin)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		UserID: "u1",
		Role:   RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
		},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", foreign},
		{"tampered payload", tamper(good)},
		{"alg none", noneToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := svc.Verify(tt.token)
			assert.False(t, v.Valid())
			assert.False(t, v.Expired())
			assert.True(t, errors.Is(v.Err, ErrTokenMalformed), "got %v", v.Err)
		})
	}
}

func TestTokenService_ExpiredForgeryIsMalformed(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	other, err := NewTokenService([]byte("ffffffffffffffffffffffffffffffff"), time.Hour, WithClock(clock.Now))
	require.NoError(t, err)
	forged, _, err := other.Issue("u1", "a@example.com", RoleUser)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	svc := newTestTokenService(t, clock)

	v := svc.Verify(forged)
	assert.ErrorIs(t, v.Err, ErrTokenMalformed)
	assert.False(t, v.Expired())
}

func TestTokenService_VerifyEmpty(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	v := svc.Verify("")
	assert.ErrorIs(t, v.Err, ErrNoToken)
}

func tamper(token string) string {
	parts := strings.Split(token, ".")
	payload := []byte(parts[1])
	if payload[0] == 'a' {
		payload[0] = 'b'
	} else {
		payload[0] = 'a'
	}
	parts[1] = string(payload)
	return strings.Join(parts, ".")
}
