package memory

import (
	"context"
	"sync"
	"time"

	"github.com/platinummonkey/larder/pkg/storage"
)

// RevocationStore is an in-memory revocation list
type RevocationStore struct {
	mu      sync.RWMutex
	entries map[string]storage.RevokedToken
}

// NewRevocationStore creates an empty revocation list
func NewRevocationStore() *RevocationStore {
	return &RevocationStore{entries: make(map[string]storage.RevokedToken)}
}

// Revoke records token; the first revocation wins
func (s *RevocationStore) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[token]; exists {
		return nil
	}
	s.entries[token] = storage.RevokedToken{
		Token:     token,
		ExpiresAt: expiresAt,
		RevokedAt: time.Now().UTC(),
	}
	return nil
}

// IsRevoked reports whether token is on the list
func (s *RevocationStore) IsRevoked(ctx context.Context, token string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[token]
	return ok, nil
}

// PurgeExpired drops entries whose token expired before now
func (s *RevocationStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for token, entry := range s.entries {
		if entry.ExpiresAt.Before(now) {
			delete(s.entries, token)
			purged++
		}
	}
	return purged, nil
}

// Len returns the number of entries
func (s *RevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
