// Package devotp provides an in-memory store for passcodes by challenge id,
// used only when dev OTP mode is enabled (GET /dev/otp).
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain passcodes by challenge id for dev-only retrieval. Not
// used in production.
type Store interface {
	// Put stores code for challengeID until expiresAt.
	Put(ctx context.Context, challengeID, code string, expiresAt time.Time)
	// Get returns the code for challengeID if present and not expired.
	Get(ctx context.Context, challengeID string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev passcode store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: func() time.Time { return time.Now().UTC() },
	}
}

// Put stores code for challengeID until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, challengeID, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[challengeID] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for challengeID if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, challengeID string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[challengeID]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, challengeID)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
