package auth

import (
	"net/http"
	"strings"
	"time"
)

// DefaultCookieName is the session cookie name
const DefaultCookieName = "token"

// CookieConfig controls the session cookie attributes
type CookieConfig struct {
	Name   string
	Secure bool // TLS-only, enabled in production
	MaxAge time.Duration
}

// DefaultCookieConfig returns the development cookie settings
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Name:   DefaultCookieName,
		Secure: false,
		MaxAge: DefaultTokenTTL,
	}
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultCookieName
	}
	return c.Name
}

// Issue returns a cookie carrying token
func (c CookieConfig) Issue(token string) *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// Clear returns a cookie that removes the session with matching attributes
func (c CookieConfig) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// ExtractToken finds the session token on a request.
// The cookie takes priority over the Authorization header.
func ExtractToken(r *http.Request, cookieName string) (string, error) {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}

	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	// Format: "Bearer <token>"
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", ErrNoToken
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", ErrNoToken
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
