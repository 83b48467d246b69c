package api

import (
	"net/http"

	"github.com/platinummonkey/larder/pkg/account"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/middleware"
)

var userErrors = errorMessages{notFound: "User not found"}

// AccountHandlers handles registration, sessions and identity lookups
type AccountHandlers struct {
	accounts *account.Service
	cookie   auth.CookieConfig
}

// NewAccountHandlers creates account handlers
func NewAccountHandlers(accounts *account.Service, cookie auth.CookieConfig) *AccountHandlers {
	return &AccountHandlers{
		accounts: accounts,
		cookie:   cookie,
	}
}

// sessionPayload is what register and login return beside the cookie.
// The token is included for clients that send it as a Bearer header.
func sessionPayload(session *account.Session) httputil.Envelope {
	return httputil.Envelope{
		"token":     session.Token,
		"expiresAt": session.ExpiresAt,
	}
}

// register handles POST /api/users/register
func (h *AccountHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req account.RegisterRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}

	http.SetCookie(w, h.cookie.Issue(session.Token))
	payload := sessionPayload(session)
	payload["email"] = session.Identity.Email
	payload["role"] = session.Identity.Role
	httputil.WriteCreated(w, "User created successfully", payload)
}

// login handles POST /api/users/login
func (h *AccountHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req account.LoginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	session, err := h.accounts.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}

	http.SetCookie(w, h.cookie.Issue(session.Token))
	payload := sessionPayload(session)
	payload["user"] = session.Identity.Email
	payload["role"] = session.Identity.Role
	httputil.WriteSuccess(w, "Login successful", payload)
}

// logout handles POST /api/users/logout. The cookie is cleared whatever the
// outcome.
func (h *AccountHandlers) logout(w http.ResponseWriter, r *http.Request) {
	token, _ := auth.ExtractToken(r, h.cookie.Name)
	err := h.accounts.Logout(r.Context(), token)

	http.SetCookie(w, h.cookie.Clear())
	if err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}
	httputil.WriteSuccess(w, "Logged out successfully", nil)
}

// me handles GET /api/users/me
func (h *AccountHandlers) me(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)

	user, err := h.accounts.GetSelf(r.Context(), authCtx.Identity.ID)
	if err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}

	httputil.WriteSuccess(w, "User fetched successfully", httputil.Envelope{"user": user.Public()})
}

// changePassword handles PUT /api/users/change-password
func (h *AccountHandlers) changePassword(w http.ResponseWriter, r *http.Request) {
	var req account.ChangePasswordRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	authCtx := middleware.GetAuthContext(r)
	if err := h.accounts.ChangePassword(r.Context(), authCtx.Identity.ID, req); err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}

	httputil.WriteSuccess(w, "Password changed successfully. Please login again.", nil)
}

// getUser handles GET /api/users/{id}; admin only
func (h *AccountHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	user, err := h.accounts.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, userErrors)
		return
	}

	httputil.WriteSuccess(w, "User fetched successfully", httputil.Envelope{
		"user": user.Email,
		"role": user.Role,
		"id":   user.ID,
	})
}
