package store

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps users and tables in process memory. sheetd uses it when
// no DATABASE_URL is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[string]User
	tables []TableRecord
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: map[string]User{}, now: time.Now}
}

func (s *MemoryStore) CreateUser(_ context.Context, email, passwordHash string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := s.users[key]; ok {
		return User{}, ErrEmailTaken
	}
	now := s.now().UTC()
	user := User{ID: uuid.NewString(), Email: email, PasswordHash: passwordHash, CreatedAt: now, UpdatedAt: now}
	s.users[key] = user
	return user, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[strings.ToLower(email)]
	if !ok {
		return User{}, ErrNotFound
	}
	return user, nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ID == userID {
			return user, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *MemoryStore) LatestTable(_ context.Context) (TableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.tables) == 0 {
		return TableRecord{}, ErrNotFound
	}
	return copyRecord(s.tables[len(s.tables)-1]), nil
}

func (s *MemoryStore) GetTable(_ context.Context, id string) (TableRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return copyRecord(s.tables[i]), nil
	}
	return TableRecord{}, ErrNotFound
}

func (s *MemoryStore) InsertTable(_ context.Context, data, columns json.RawMessage) (TableRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	rec := TableRecord{
		ID:        uuid.NewString(),
		Data:      orEmptyArray(data),
		Columns:   orEmptyArray(columns),
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tables = append(s.tables, rec)
	return copyRecord(rec), nil
}

func (s *MemoryStore) UpdateTable(_ context.Context, id string, data, columns json.RawMessage, updatedAt time.Time) (TableRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return TableRecord{}, ErrNotFound
	}
	if updatedAt.IsZero() {
		updatedAt = s.now()
	}
	rec := &s.tables[i]
	rec.Data = orEmptyArray(data)
	rec.Columns = orEmptyArray(columns)
	rec.UpdatedAt = updatedAt.UTC()
	return copyRecord(*rec), nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) index(id string) int {
	for i := range s.tables {
		if s.tables[i].ID == id {
			return i
		}
	}
	return -1
}

func orEmptyArray(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return append(json.RawMessage(nil), raw...)
}

func copyRecord(rec TableRecord) TableRecord {
	rec.Data = append(json.RawMessage(nil), rec.Data...)
	rec.Columns = append(json.RawMessage(nil), rec.Columns...)
	return rec
}
