package auth

import "context"

// Logout clears the session. Unknown or empty ids are a no-op.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return err
	}
	s.audit(ctx, "logout", nil)
	return nil
}
