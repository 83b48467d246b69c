// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding/decoding, and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Machine-readable error codes carried in the "error" field
const (
	CodeBadRequest           = "bad_request"
	CodeValidation           = "validation_error"
	CodeAuthenticationFailed = "authentication_failed"
	CodeTokenExpired         = "token_expired"
	CodeInvalidCredentials   = "invalid_credentials"
	CodeDuplicate            = "duplicate_identity"
	CodeForbidden            = "forbidden"
	CodeNotFound             = "not_found"
	CodeTooManyRequests      = "too_many_requests"
	CodeInternal             = "internal_error"
	CodeUnavailable          = "service_unavailable"
)

// InternalErrorMessage is the only text a client sees for a 500
const InternalErrorMessage = "Internal server error"

// Envelope holds payload keys written beside "message"
type Envelope map[string]interface{}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Message string   `json:"message"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteMessage writes {"message": message} merged with payload
func WriteMessage(w http.ResponseWriter, status int, message string, payload Envelope) error {
	body := make(Envelope, len(payload)+1)
	for k, v := range payload {
		body[k] = v
	}
	body["message"] = message
	return WriteJSON(w, status, body)
}

// WriteSuccess writes a 200 response with a message and payload
func WriteSuccess(w http.ResponseWriter, message string, payload Envelope) error {
	return WriteMessage(w, http.StatusOK, message, payload)
}

// WriteCreated writes a 201 response with a message and payload
func WriteCreated(w http.ResponseWriter, message string, payload Envelope) error {
	return WriteMessage(w, http.StatusCreated, message, payload)
}

// WriteErrorCode writes an error response with a human message and a machine code
func WriteErrorCode(w http.ResponseWriter, status int, message, code string) {
	WriteJSON(w, status, ErrorResponse{Message: message, Error: code})
}

// WriteValidationErrors writes a 400 listing every field problem
func WriteValidationErrors(w http.ResponseWriter, message string, errs []string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{
		Message: message,
		Error:   CodeValidation,
		Errors:  errs,
	})
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusBadRequest, message, CodeBadRequest)
}

// WriteUnauthorized writes an unauthorized error (401) with the given code
func WriteUnauthorized(w http.ResponseWriter, message, code string) {
	WriteErrorCode(w, http.StatusUnauthorized, message, code)
}

// WriteForbidden writes a forbidden error (403)
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusForbidden, message, CodeForbidden)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusNotFound, message, CodeNotFound)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusTooManyRequests, message, CodeTooManyRequests)
}

// WriteInternalError writes a generic 500; the cause belongs in the log, not the body
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorCode(w, http.StatusInternalServerError, InternalErrorMessage, CodeInternal)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusServiceUnavailable, message, CodeUnavailable)
}
