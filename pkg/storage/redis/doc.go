// Package redis stores the token revocation list in Redis.
//
// Each revoked token becomes a key (sha256 of the token under
// DefaultKeyPrefix) written with SET NX and a TTL equal to the token's
// remaining lifetime, so entries disappear when the token would have expired
// anyway. The same client also backs the distributed rate limiter.
package redis
