package presence

import (
	"context"
	"sync"
	"time"
)

// Store persists online flags and last-seen timestamps. The in-memory
// implementation is authoritative for a single process; the Redis one
// mirrors the same state so other instances can read it.
type Store interface {
	SetOnline(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string, lastSeen time.Time) error
	IsOnline(ctx context.Context, userID string) (bool, *time.Time, error)
}

type MemoryStore struct {
	mu       sync.RWMutex
	online   map[string]bool
	lastSeen map[string]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		online:   make(map[string]bool),
		lastSeen: make(map[string]time.Time),
	}
}

func (s *MemoryStore) SetOnline(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online[userID] = true
	return nil
}

func (s *MemoryStore) SetOffline(ctx context.Context, userID string, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.online, userID)
	s.lastSeen[userID] = lastSeen
	return nil
}

func (s *MemoryStore) IsOnline(ctx context.Context, userID string) (bool, *time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.online[userID] {
		return true, nil, nil
	}
	if seen, ok := s.lastSeen[userID]; ok {
		return false, &seen, nil
	}
	return false, nil, nil
}
