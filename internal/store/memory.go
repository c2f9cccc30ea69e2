package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// MemoryStore is an in-process SessionStore. It round-trips state through
// JSON so it exercises the same serialization path as the Redis store, which
// is what makes it a faithful stand-in for reload tests.
type MemoryStore struct {
	mu    sync.Mutex
	slots map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

func (s *MemoryStore) Save(_ context.Context, key string, state *model.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.slots[key] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Load(_ context.Context, key string) (*model.SessionState, error) {
	s.mu.Lock()
	raw, ok := s.slots[key]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}

	var state model.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, ErrCorrupt
	}
	if !validState(&state) {
		return nil, ErrCorrupt
	}
	return &state, nil
}

func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.slots, key)
	s.mu.Unlock()
	return nil
}

// Corrupt overwrites a slot with undecodable bytes. Test helper.
func (s *MemoryStore) Corrupt(key string) {
	s.mu.Lock()
	s.slots[key] = []byte("{not json")
	s.mu.Unlock()
}
