// Package session tracks live sign-in sessions so sign-out can revoke an
// access token before it expires.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("session not found or expired")

// Data is what sheetd remembers about one signed-in token.
type Data struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Store keeps sessions keyed by token id until they expire or are revoked.
type Store interface {
	Save(ctx context.Context, tokenID string, data Data, expiresAt time.Time) error
	Lookup(ctx context.Context, tokenID string) (Data, error)
	Revoke(ctx context.Context, tokenID string) error
	Ping(ctx context.Context) error
}

type memoryEntry struct {
	data      Data
	expiresAt time.Time
}

// MemoryStore is the single-process Store used when Redis is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]memoryEntry
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: map[string]memoryEntry{}, now: time.Now}
}

func (s *MemoryStore) Save(_ context.Context, tokenID string, data Data, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[tokenID] = memoryEntry{data: data, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) Lookup(_ context.Context, tokenID string) (Data, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.sessions[tokenID]
	if !ok {
		return Data{}, ErrNotFound
	}
	if !s.now().Before(entry.expiresAt) {
		delete(s.sessions, tokenID)
		return Data{}, ErrNotFound
	}
	return entry.data, nil
}

func (s *MemoryStore) Revoke(_ context.Context, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, tokenID)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
