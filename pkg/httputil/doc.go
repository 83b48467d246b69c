// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Response Envelope
//
// Every response carries "message". Success payload keys sit beside it; failures
// carry a machine code in "error" and, for validation, an "errors" list:
//
//	httputil.WriteCreated(w, "Recipe created successfully", httputil.Envelope{"recipe": rec})
//	httputil.WriteUnauthorized(w, "Authentication failed", httputil.CodeAuthenticationFailed)
//	httputil.WriteValidationErrors(w, "Validation failed", verr.Messages())
//	httputil.WriteInternalError(w) // never echoes the cause
//
// # Request Parsing
//
//	var req account.LoginRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	since, err := httputil.ParseQueryTime(r, "start_time")
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RequestIDMiddleware(cfg.TrustProxy),
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(cfg.CORSOrigins),
//		httputil.MaxBytesMiddleware(1 << 20),
//		httputil.ContentTypeMiddleware,
//	)(router)
package httputil
