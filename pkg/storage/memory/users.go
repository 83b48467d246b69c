package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/platinummonkey/larder/pkg/auth"
	"github.com/platinummonkey/larder/pkg/storage"
)

// UserStore is an in-memory credential store keyed by normalized email
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*auth.Identity
	byEmail map[string]string
}

// NewUserStore creates an empty user store
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*auth.Identity),
		byEmail: make(map[string]string),
	}
}

func emailKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a copy of user and assigns its ID
func (s *UserStore) CreateUser(ctx context.Context, user *auth.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := emailKey(user.Email)
	if _, exists := s.byEmail[key]; exists {
		return storage.ErrDuplicate
	}

	now := time.Now().UTC()
	user.ID = uuid.NewString()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	stored := *user
	s.byID[stored.ID] = &stored
	s.byEmail[key] = stored.ID
	return nil
}

// GetUserByEmail returns storage.ErrNotFound for unknown emails
func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[emailKey(email)]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := *s.byID[id]
	return &user, nil
}

// GetUserByID returns storage.ErrNotFound for unknown ids
func (s *UserStore) GetUserByID(ctx context.Context, id string) (*auth.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	user := *stored
	return &user, nil
}

// UpdatePasswordHash replaces the stored hash
func (s *UserStore) UpdatePasswordHash(ctx context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	stored.PasswordHash = passwordHash
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// DeleteUser removes an identity; used to exercise tokens outliving their owner
func (s *UserStore) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[id]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.byEmail, emailKey(stored.Email))
	delete(s.byID, id)
	return nil
}

// Len returns the number of stored identities
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
