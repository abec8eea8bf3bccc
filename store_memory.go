package gatehouse

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// MemoryUserStore is an in-memory UserStore for tests, examples, and small
// deployments. It also tracks login attempts and registers users, so the full
// authentication flow works without a database.
//
// Reads return copies: callers can mutate the result without racing the store.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*User
	byEmail map[string]uuid.UUID
}

var (
	_ UserStore          = (*MemoryUserStore)(nil)
	_ LoginTracker       = (*MemoryUserStore)(nil)
	_ AccountRegistrerer = (*MemoryUserStore)(nil)
)

// NewMemoryUserStore seeds the store with the given users. Users without an
// ID get one assigned.
func NewMemoryUserStore(seed ...*User) *MemoryUserStore {
	s := &MemoryUserStore{
		byID:    make(map[uuid.UUID]*User),
		byEmail: make(map[string]uuid.UUID),
	}
	for _, user := range seed {
		if user != nil {
			s.Put(user)
		}
	}
	return s
}

// Put inserts or replaces a user.
func (s *MemoryUserStore) Put(user *User) *User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.EnsureStatus()

	stored := cloneUser(user)
	if previous, ok := s.byID[stored.ID]; ok {
		delete(s.byEmail, normalizeEmail(previous.Email))
	}
	s.byID[stored.ID] = stored
	s.byEmail[normalizeEmail(stored.Email)] = stored.ID

	return cloneUser(stored)
}

// Remove deletes a user by id. Removing an unknown id is a no-op.
func (s *MemoryUserStore) Remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.byID[id]; ok {
		delete(s.byEmail, normalizeEmail(user.Email))
		delete(s.byID, id)
	}
}

// FindByEmail implements UserStore.
func (s *MemoryUserStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, userNotFound("email", email)
	}

	return cloneUser(s.byID[id]), nil
}

// FindByID implements UserStore. Identifiers that do not parse as uuids are
// reported as not found, never as a fault: a stale or garbage token subject is
// an authentication outcome.
func (s *MemoryUserStore) FindByID(_ context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, userNotFound("id", id)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[uid]
	if !ok {
		return nil, userNotFound("id", id)
	}

	return cloneUser(user), nil
}

// TrackAttemptedLogin implements LoginTracker.
func (s *MemoryUserStore) TrackAttemptedLogin(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[user.ID]
	if !ok {
		return userNotFound("id", user.ID.String())
	}

	now := time.Now()
	stored.LoginAttempts++
	stored.LoginAttemptAt = &now

	user.LoginAttempts = stored.LoginAttempts
	user.LoginAttemptAt = &now

	return nil
}

// TrackSuccessfulLogin implements LoginTracker.
func (s *MemoryUserStore) TrackSuccessfulLogin(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.byID[user.ID]
	if !ok {
		return userNotFound("id", user.ID.String())
	}

	now := time.Now()
	stored.LoginAttempts = 0
	stored.LoginAttemptAt = nil
	stored.LoggedInAt = &now

	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &now

	return nil
}

// RegisterUser implements AccountRegistrerer.
func (s *MemoryUserStore) RegisterUser(_ context.Context, email, username, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := normalizeEmail(email)
	if _, exists := s.byEmail[key]; exists {
		return nil, errors.New("email is already registered", errors.CategoryConflict).
			WithCode(errors.CodeConflict).
			WithMetadata(map[string]any{"email": email})
	}

	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Role:         RoleMember,
		Status:       UserStatusActive,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}

	s.byID[user.ID] = user
	s.byEmail[key] = user.ID

	return cloneUser(user), nil
}

// Len reports how many users the store holds.
func (s *MemoryUserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func userNotFound(field, value string) error {
	return errors.New("user not found", errors.CategoryNotFound).
		WithMetadata(map[string]any{field: value})
}

func cloneUser(user *User) *User {
	if user == nil {
		return nil
	}

	clone := *user
	if user.Metadata != nil {
		clone.Metadata = make(map[string]any, len(user.Metadata))
		for k, v := range user.Metadata {
			clone.Metadata[k] = v
		}
	}

	clone.LoginAttemptAt = copyTime(user.LoginAttemptAt)
	clone.LoggedInAt = copyTime(user.LoggedInAt)
	clone.SuspendedAt = copyTime(user.SuspendedAt)
	clone.ResetedAt = copyTime(user.ResetedAt)
	clone.CreatedAt = copyTime(user.CreatedAt)
	clone.UpdatedAt = copyTime(user.UpdatedAt)
	clone.DeletedAt = copyTime(user.DeletedAt)

	return &clone
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}
