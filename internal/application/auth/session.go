package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

const sessionIDBytes = 32

// Session is what the transport layer needs to set a cookie.
type Session struct {
	ID        string
	User      domain.SessionUser
	ExpiresAt time.Time
}

// SessionManager owns the lifecycle of server-side sessions. Payloads are sealed
// before they reach the store; ids are opaque and rotated on every login.
type SessionManager struct {
	store  SessionStore
	sealer Sealer
	ttl    time.Duration

	newID func() (string, error)
	now   func() time.Time
}

func NewSessionManager(store SessionStore, sealer Sealer, ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &SessionManager{
		store:  store,
		sealer: sealer,
		ttl:    ttl,
		newID:  newSessionID,
		now:    time.Now,
	}
}

func (m *SessionManager) TTL() time.Duration { return m.ttl }

// sessionPayload is the stored JSON shape. Every field is optional on read.
type sessionPayload struct {
	UserID       int64           `json:"user_id"`
	Username     string          `json:"username"`
	Email        *string         `json:"email,omitempty"`
	Provider     domain.Provider `json:"provider"`
	AccessToken  string          `json:"access_token"`
	RefreshToken *string         `json:"refresh_token,omitempty"`
}

// Establish replaces previousID (if any) with a brand new session for su.
func (m *SessionManager) Establish(ctx context.Context, previousID string, su domain.SessionUser) (Session, error) {
	if previousID != "" {
		if err := m.store.Delete(ctx, previousID); err != nil {
			return Session{}, sessionErr(err)
		}
	}

	id, err := m.newID()
	if err != nil {
		return Session{}, domain.ErrRandomFailed(err)
	}

	raw, err := json.Marshal(sessionPayload{
		UserID:       su.UserID,
		Username:     su.Username,
		Email:        su.Email,
		Provider:     su.Provider,
		AccessToken:  su.AccessToken,
		RefreshToken: su.RefreshToken,
	})
	if err != nil {
		return Session{}, domain.ErrSession(err)
	}
	sealed, err := m.sealer.Seal(raw)
	if err != nil {
		return Session{}, domain.ErrSession(err)
	}

	if err := m.store.Save(ctx, id, sealed, m.ttl); err != nil {
		return Session{}, sessionErr(err)
	}

	return Session{ID: id, User: su, ExpiresAt: m.now().Add(m.ttl)}, nil
}

// Read returns nil for an absent or expired session. A hit extends the TTL.
func (m *SessionManager) Read(ctx context.Context, id string) (*domain.SessionUser, error) {
	if id == "" {
		return nil, nil
	}

	sealed, err := m.store.Load(ctx, id, m.ttl)
	if err != nil {
		return nil, sessionErr(err)
	}
	if sealed == nil {
		return nil, nil
	}

	raw, err := m.sealer.Open(sealed)
	if err != nil {
		return nil, domain.ErrSession(err)
	}

	var p sessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, domain.ErrSession(err)
	}

	return &domain.SessionUser{
		UserID:       p.UserID,
		Username:     p.Username,
		Email:        p.Email,
		Provider:     p.Provider,
		AccessToken:  p.AccessToken,
		RefreshToken: p.RefreshToken,
	}, nil
}

// Clear removes the whole session. Clearing an unknown id is not an error.
func (m *SessionManager) Clear(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil {
		return sessionErr(err)
	}
	return nil
}

func sessionErr(err error) error {
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrSession(err)
}

func newSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
