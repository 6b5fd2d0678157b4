// Package memory is an in-process backend for local development and tests.
// State lives in maps guarded by one mutex and is lost on restart.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-api-magiclink/internal/domain"
)

// Store implements both the verification code store and the user directory.
type Store struct {
	mu    sync.Mutex
	users map[string]domain.User
	codes map[string]domain.VerificationCode
}

func NewStore(users ...domain.User) *Store {
	s := &Store{
		users: make(map[string]domain.User),
		codes: make(map[string]domain.VerificationCode),
	}
	for _, u := range users {
		s.users[u.UserID] = u
	}
	return s
}

// AddUser registers u, replacing any user with the same id.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.UserID] = u
}

func (s *Store) Get(_ context.Context, userID string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	return &u, nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
}

func (s *Store) Create(_ context.Context, v *domain.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[v.Code]; exists {
		return fmt.Errorf("verification code exists: %w", domain.ErrConflict)
	}
	for _, c := range s.codes {
		if c.ID == v.ID {
			return fmt.Errorf("verification code id exists: %w", domain.ErrConflict)
		}
	}
	s.codes[v.Code] = *v
	return nil
}

func (s *Store) Redeem(_ context.Context, code string) (*domain.VerificationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("verification code not found: %w", domain.ErrNotFound)
	}
	delete(s.codes, code)
	return &v, nil
}

func (s *Store) DeleteByUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code, v := range s.codes {
		if v.UserID == userID {
			delete(s.codes, code)
		}
	}
	return nil
}

// CodesFor returns the live codes of userID.
func (s *Store) CodesFor(userID string) []domain.VerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.VerificationCode
	for _, v := range s.codes {
		if v.UserID == userID {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of stored codes.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.codes)
}

func (s *Store) Ping(context.Context) error { return nil }
