package auth

import (
	"context"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// CurrentUser reads the session; no session is a not_authenticated error.
func (s *Service) CurrentUser(ctx context.Context, sessionID string) (*domain.SessionUser, error) {
	su, err := s.sessions.Read(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if su == nil {
		return nil, domain.ErrNotAuthenticated()
	}
	return su, nil
}
