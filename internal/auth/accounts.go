package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var ErrAccountNotFound = errors.New("auth: account not found")

// Account is the dashboard identity that owns vaults and sessions. Tier is a
// stored string normalized by the tier package on read.
type Account struct {
	ID        string
	Email     string
	PassHash  string // argon2id encoded string
	Tier      string
	CreatedAt time.Time
}

type AccountStore interface {
	Add(ctx context.Context, a *Account) error
	FindByEmail(ctx context.Context, email string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
}

type MemoryAccountStore struct {
	mu      sync.Mutex
	byID    map[string]*Account
	byEmail map[string]*Account
}

func NewMemoryAccountStore() *MemoryAccountStore {
	return &MemoryAccountStore{
		byID:    map[string]*Account{},
		byEmail: map[string]*Account{},
	}
}

func (s *MemoryAccountStore) Add(_ context.Context, a *Account) error {
	if a == nil {
		return errors.New("account is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(a.Email))
	if _, exists := s.byEmail[email]; exists {
		return errors.New("email already exists")
	}
	clone := *a
	clone.Email = email
	s.byID[a.ID] = &clone
	s.byEmail[email] = &clone
	return nil
}

func (s *MemoryAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, ErrAccountNotFound
}

func (s *MemoryAccountStore) FindByID(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byID[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, ErrAccountNotFound
}
