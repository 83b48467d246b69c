// Package mongo implements the user, revocation and recipe stores on
// MongoDB (go.mongodb.org/mongo-driver/v2).
//
// Collections:
//   - users: unique index on email; ids are ObjectID hex strings
//   - revoked_tokens: unique index on token, TTL index on expiresAt
//   - recipes: owner link in userId, indexed with createdAt for listings
//
// Call EnsureIndexes once at startup. Uniqueness is enforced by the server,
// so a registration race surfaces as storage.ErrDuplicate.
package mongo
