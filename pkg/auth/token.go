package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of a session token
	DefaultTokenTTL = time.Hour
	// MinSecretLength is the shortest signing secret accepted
	MinSecretLength = 16
)

// Claims is the payload of a session token
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

// Verification is the outcome of checking a token.
// Exactly one of Claims and Err is set.
type Verification struct {
	Claims *Claims
	Err    error
}

// Valid reports whether the token verified
func (v Verification) Valid() bool {
	return v.Err == nil && v.Claims != nil
}

// Expired reports whether the token failed only because it expired
func (v Verification) Expired() bool {
	return errors.Is(v.Err, ErrTokenExpired)
}

// TokenOption configures a TokenService
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// TokenService issues and verifies HS256 session tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service signing with secret
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("token secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// TTL returns the lifetime of issued tokens
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// Issue signs a new token for the identity
func (s *TokenService) Issue(userID, email string, role Role) (string, time.Time, error) {
	if userID == "" {
		return "", time.Time{}, fmt.Errorf("user id is required")
	}

	now := s.now()
	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return token, claims.ExpiresAt.Time, nil
}

// Verify checks the signature and expiry of a token.
// It does not consult the revocation list.
func (s *TokenService) Verify(token string) Verification {
	if token == "" {
		return Verification{Err: ErrNoToken}
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Verification{Err: ErrTokenExpired}
		}
		return Verification{Err: fmt.Errorf("%w: %v", ErrTokenMalformed, err)}
	}

	if claims.UserID == "" {
		return Verification{Err: fmt.Errorf("%w: missing user id", ErrTokenMalformed)}
	}

	return Verification{Claims: claims}
}
