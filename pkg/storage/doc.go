// Package storage defines the persistence contracts for identities and the
// token revocation list.
//
// # Overview
//
// Two stores back the authentication flow:
//
//   - UserStore: identities keyed by a unique, lower-cased email
//   - RevocationStore: tokens invalidated by logout before their expiry
//
// Both are interfaces so the API can run against MongoDB in production and
// in-memory maps in tests. Recipe persistence is declared by its consumer in
// pkg/recipes and implemented alongside these stores.
//
// # Implementations
//
//	storage/memory - maps under a RWMutex, the default backend
//	storage/mongo  - users, revoked_tokens and recipes collections
//	storage/redis  - revocation list as keys with a TTL
//	storage/cache  - LRU in front of any RevocationStore
//
// # Errors
//
// Implementations translate driver errors into ErrNotFound and ErrDuplicate
// so callers never import a driver package to classify failures:
//
//	user, err := users.GetUserByID(ctx, id)
//	if errors.Is(err, storage.ErrNotFound) {
//		// identity was deleted
//	}
//
// # Revocation semantics
//
// Revoke is idempotent. An entry is only meaningful until the token's own
// expiry, after which verification rejects the token anyway; PurgeExpired
// removes such entries and is driven by pkg/janitor.
package storage
