package auth

import (
	"errors"
	"strings"
)

var (
	// Auth gate failures
	ErrNoToken        = errors.New("no token provided")
	ErrTokenRevoked   = errors.New("token has been revoked")
	ErrTokenMalformed = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrIdentityGone   = errors.New("user no longer exists")

	// Account failures
	ErrInvalidCredentials       = errors.New("invalid email or password")
	ErrDuplicateIdentity        = errors.New("user already exists")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")
	ErrPasswordMismatch         = errors.New("password does not match hash")
	ErrPasswordTooLong          = errors.New("password exceeds 72 bytes")

	// Authorization failures
	ErrForbidden = errors.New("forbidden")
)

// FieldError is a single field-level validation message
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every field-level problem found in a request
type ValidationError struct {
	Message string
	Fields  []FieldError
}

// NewValidationError creates a validation error with a summary message
func NewValidationError(message string, fields ...FieldError) *ValidationError {
	return &ValidationError{Message: message, Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return e.Message + ": " + strings.Join(msgs, "; ")
}

// Messages returns the field messages in order
func (e *ValidationError) Messages() []string {
	msgs := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		msgs[i] = f.Message
	}
	return msgs
}
