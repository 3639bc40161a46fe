package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type OAuthStateStore struct {
	mu     sync.Mutex
	states map[string]stateEntry
	now    func() time.Time
}

type stateEntry struct {
	data      auth.OAuthStateData
	expiresAt time.Time
}

func NewOAuthStateStore() *OAuthStateStore {
	return &OAuthStateStore{
		states: make(map[string]stateEntry),
		now:    time.Now,
	}
}

func (s *OAuthStateStore) Save(ctx context.Context, state string, data auth.OAuthStateData, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Cleanup expired
	now := s.now()
	for k, v := range s.states {
		if now.After(v.expiresAt) {
			delete(s.states, k)
		}
	}

	s.states[state] = stateEntry{data: data, expiresAt: now.Add(ttl)}
	return nil
}

func (s *OAuthStateStore) Consume(ctx context.Context, state string) (auth.OAuthStateData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.states[state]
	delete(s.states, state) // one-time use
	if !ok || s.now().After(entry.expiresAt) {
		return auth.OAuthStateData{}, domain.ErrInvalidState()
	}
	return entry.data, nil
}
