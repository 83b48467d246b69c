// Package cache provides an in-process LRU in front of the revocation list,
// so repeated requests with a revoked token do not hit the backing store.
package cache
