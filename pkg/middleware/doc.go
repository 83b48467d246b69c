// Package middleware provides HTTP middleware for authentication, authorization, and rate limiting.
//
// # Overview
//
// AuthMiddleware is the gate in front of every protected route. It resolves
// the session token, checks it against the revocation list, verifies it and
// loads the identity it names. RequireRole narrows a route to one role.
// RateLimitMiddleware counts requests per client address in fixed windows.
//
// # Middleware Components
//
// AuthMiddleware: session authentication
//
//	gate := middleware.NewAuthMiddleware(middleware.AuthConfig{
//		Tokens: tokens, Users: users, Revocations: revocations,
//	})
//	router.Handle("/api/users/me", gate.Handler(meHandler))
//	// Cookie "token" first, then "Authorization: Bearer <token>"
//
// RequireRole: role gate, applied after AuthMiddleware
//
//	adminOnly := middleware.RequireRole(auth.RoleAdmin)
//
// RateLimitMiddleware: per-IP fixed window
//
//	login := middleware.NewRateLimitMiddleware(
//		middleware.NewRateLimiter(middleware.LoginRateLimitConfig()), trustProxy, metrics)
//
// DistributedRateLimiter shares counters through Redis and can replace
// RateLimiter wherever a Limiter is accepted. It fails open.
//
// # Rate Limiting
//
// Login: 5 attempts per 15 minutes per client address
// API: 100 requests per 15 minutes per client address
//
// # Failure Responses
//
// Every gate failure except an expired token answers the same 401 body, so a
// caller cannot tell a revoked token from a forged one. The reason is kept in
// the log, the larder_auth_gate_rejections_total counter and the audit trail.
//
// # Related Packages
//
//   - pkg/auth: Token verification, cookie handling
//   - pkg/storage: Identity and revocation lookups
//   - pkg/audit: Rejection trail
package middleware
