package api

import (
	"errors"
	"net/http"

	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/httputil"
	"github.com/platinummonkey/larder/pkg/middleware"
	"github.com/platinummonkey/larder/pkg/observability"
	"github.com/platinummonkey/larder/pkg/storage"
)

// Client-facing messages for classified failures
const (
	msgDuplicateIdentity  = "User already exists"
	msgInvalidCredentials = "Invalid email or password"
	msgWrongPassword      = "Current password is incorrect"
	msgNotFound           = "Not found"
)

// errorMessages overrides the default text for resource-specific failures
type errorMessages struct {
	notFound  string
	forbidden string
}

// writeServiceError maps a service error onto a status code and envelope.
// Unclassified errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, msgs errorMessages) {
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		httputil.WriteValidationErrors(w, ve.Message, ve.Messages())
	case errors.Is(err, auth.ErrDuplicateIdentity):
		httputil.WriteErrorCode(w, http.StatusBadRequest, msgDuplicateIdentity, httputil.CodeDuplicate)
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, msgInvalidCredentials, httputil.CodeInvalidCredentials)
	case errors.Is(err, auth.ErrCurrentPasswordIncorrect):
		httputil.WriteUnauthorized(w, msgWrongPassword, httputil.CodeInvalidCredentials)
	case errors.Is(err, auth.ErrTokenExpired):
		httputil.WriteUnauthorized(w, middleware.MessageTokenExpired, httputil.CodeTokenExpired)
	case errors.Is(err, auth.ErrNoToken),
		errors.Is(err, auth.ErrTokenMalformed),
		errors.Is(err, auth.ErrTokenRevoked),
		errors.Is(err, auth.ErrIdentityGone):
		httputil.WriteUnauthorized(w, middleware.MessageAuthenticationFailed, httputil.CodeAuthenticationFailed)
	case errors.Is(err, auth.ErrForbidden):
		httputil.WriteForbidden(w, orDefault(msgs.forbidden, middleware.MessageAccessDenied))
	case errors.Is(err, storage.ErrNotFound):
		httputil.WriteNotFound(w, orDefault(msgs.notFound, msgNotFound))
	default:
		observability.FromContext(r.Context()).
			WithError(err).
			WithField("path", r.URL.Path).
			Error("request failed")
		httputil.WriteInternalError(w)
	}
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
