package identity

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemStore is an in-process Store, used by tests and as the zero-config
// default. Writes are serialized with a single mutex; this is the simplest
// correct implementation of the per-key-write/concurrent-read contract in
// §5, not an optimization for high write concurrency.
type MemStore struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string // lowercased username -> ID
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
	}
}

func (s *MemStore) CreateUser(ctx context.Context, username, email string, role Role, verifier PasswordVerifier) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(username)
	if _, exists := s.byUsername[key]; exists {
		return User{}, ErrDuplicateUsername
	}

	now := time.Now().UTC()
	u := User{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Role:      role,
		SaltHash:  verifier,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.byID[u.ID] = u
	s.byUsername[key] = u.ID
	return u, nil
}

func (s *MemStore) ValidateCredentials(ctx context.Context, username string, verify func(PasswordVerifier) bool) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return User{}, ErrInvalidCredentials
	}
	u := s.byID[id]
	if !verify(u.SaltHash) {
		return User{}, ErrInvalidCredentials
	}
	u.LastLogin = time.Now().UTC()
	s.byID[u.ID] = u
	return u, nil
}

func (s *MemStore) GetByID(ctx context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemStore) GetByUsername(ctx context.Context, username string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[strings.ToLower(username)]
	if !ok {
		return User{}, ErrNotFound
	}
	return s.byID[id], nil
}

func (s *MemStore) Update(ctx context.Context, u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; !ok {
		return ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	s.byID[u.ID] = u
	return nil
}
