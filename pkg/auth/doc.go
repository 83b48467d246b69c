// Package auth provides the session primitives for the larder API.
//
// # Overview
//
// This package owns everything about an authenticated session that does not
// need a database: identity and role types, signed session tokens, password
// hashing, the ownership rule for mutations, and the cookie/header transport
// of tokens. Persistence lives in pkg/storage and HTTP enforcement lives in
// pkg/middleware.
//
// # Key Components
//
// Session tokens: HS256 JWTs carrying the user id, email and role
//
//	tokens, _ := auth.NewTokenService(secret, time.Hour)
//	token, expiresAt, _ := tokens.Issue(user.ID, user.Email, user.Role)
//
//	v := tokens.Verify(token)
//	if v.Expired() {
//		// ask the client to log in again
//	}
//
// Verification never consults the revocation list. Callers that need to
// honor logout must check storage.RevocationStore first.
//
// Passwords: bcrypt at the default cost
//
//	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)
//	hash, _ := hasher.Hash("secret1")
//	err := hasher.Compare(hash, "secret1")
//
// Roles: a closed set of two values
//
//	RoleUser  - standard account, the default at registration
//	RoleAdmin - privileged account, may read other identities
//
// Ownership: mutations of owned resources require the caller to be the owner
//
//	if err := auth.AssertOwner(recipe.OwnerID, caller.ID); err != nil {
//		return err // auth.ErrForbidden
//	}
//
// Transport: tokens travel in the "token" cookie or an Authorization header
//
//	token, err := auth.ExtractToken(r, auth.DefaultCookieName)
//
// The cookie wins when both are present.
//
// # Errors
//
// All failures are sentinel values (ErrTokenExpired, ErrInvalidCredentials,
// ...) or *ValidationError, so handlers classify them with errors.Is and
// errors.As.
//
// # Related Packages
//
//   - pkg/storage: identity and revocation persistence
//   - pkg/middleware: auth gate and role gate built on this package
//   - pkg/account: register, login, logout and password change
package auth
