package auth

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type Service struct {
	providers ProviderResolver
	oauth     OAuthClient
	profiles  ProfileFetcher
	users     UserStore
	states    OAuthStateStore
	sessions  *SessionManager
	pub       EventPublisher

	stateTTL        time.Duration
	providerTimeout time.Duration
	audit           AuditFunc

	// collapses concurrent first logins of one identity inside this process
	provision singleflight.Group
	now       func() time.Time
}

type Config struct {
	StateTTL        time.Duration
	ProviderTimeout time.Duration
}

func NewService(
	providers ProviderResolver,
	oauth OAuthClient,
	profiles ProfileFetcher,
	users UserStore,
	states OAuthStateStore,
	sessions *SessionManager,
	pub EventPublisher,
	cfg Config,
) *Service {
	stateTTL := cfg.StateTTL
	if stateTTL <= 0 {
		stateTTL = 10 * time.Minute
	}
	timeout := cfg.ProviderTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Service{
		providers: providers,
		oauth:     oauth,
		profiles:  profiles,
		users:     users,
		states:    states,
		sessions:  sessions,
		pub:       pub,

		stateTTL:        stateTTL,
		providerTimeout: timeout,
		audit:           func(context.Context, string, map[string]string) {},
		now:             time.Now,
	}
}

// AuditFunc receives business events. fields never carry tokens or secrets.
type AuditFunc func(ctx context.Context, action string, fields map[string]string)

func (s *Service) WithAudit(fn AuditFunc) *Service {
	if fn != nil {
		s.audit = fn
	}
	return s
}

// Sessions exposes the session manager to transport code that needs the TTL.
func (s *Service) Sessions() *SessionManager { return s.sessions }

// asDomain passes domain errors through and hides everything else behind internal_error.
func asDomain(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return domain.ErrInternal(err)
}

func (s *Service) withProviderTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.providerTimeout)
}
