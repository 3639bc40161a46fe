package memory

import (
	"context"
	"sync"
	"time"
)

type sessionEntry struct {
	payload   []byte
	expiresAt time.Time
}

// SessionStore keeps sealed session payloads in process memory.
// Used when Redis is not reachable; sessions do not survive a restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
	now      func() time.Time
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]sessionEntry),
		now:      time.Now,
	}
}

func (s *SessionStore) Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked()
	s.sessions[id] = sessionEntry{
		payload:   append([]byte(nil), payload...),
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

func (s *SessionStore) Load(ctx context.Context, id string, ttl time.Duration) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.sessions, id)
		return nil, nil
	}

	e.expiresAt = s.now().Add(ttl)
	s.sessions[id] = e
	return append([]byte(nil), e.payload...), nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

func (s *SessionStore) sweepLocked() {
	now := s.now()
	for k, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, k)
		}
	}
}
