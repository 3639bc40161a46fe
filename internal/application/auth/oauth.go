package auth

import (
	"context"
	"crypto/subtle"
	"strconv"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// BeginResult is what the browser needs to go to the provider's consent page.
type BeginResult struct {
	Provider domain.Provider
	AuthURL  string
	State    string
}

// Begin starts an authorization request. It never touches the session.
func (s *Service) Begin(ctx context.Context, provider string) (*BeginResult, error) {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return nil, err
	}

	cfg, err := s.providers.Resolve(p)
	if err != nil {
		return nil, err
	}

	authURL, state, err := s.oauth.BuildAuthorizationURL(cfg)
	if err != nil {
		return nil, asDomain(err)
	}

	if err := s.states.Save(ctx, state, OAuthStateData{Provider: p, CreatedAt: s.now()}, s.stateTTL); err != nil {
		return nil, asDomain(err)
	}

	s.audit(ctx, "oauth_begin", map[string]string{"provider": string(p)})
	return &BeginResult{Provider: p, AuthURL: authURL, State: state}, nil
}

// CallbackRequest is the provider redirect plus what the browser carried along.
type CallbackRequest struct {
	Provider         string
	Code             string
	State            string
	Error            string
	ErrorDescription string

	// ExpectedState is the state bound to this browser when the flow began.
	ExpectedState string
	// PreviousSessionID is replaced by the new session on success.
	PreviousSessionID string
}

type CallbackResult struct {
	User    domain.User
	Created bool
	Session Session
}

type provisionResult struct {
	user    domain.User
	created bool
}

// Callback completes the flow. A failure at any step leaves no session behind.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) (res *CallbackResult, err error) {
	p, err := domain.ParseProvider(req.Provider)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil && !domain.Is(err, "access_denied") {
			s.audit(ctx, "login_failed", map[string]string{
				"provider": string(p),
				"code":     domainCode(err),
			})
		}
	}()

	// denial is an expected outcome: no exchange, no user, no session
	if req.Error != "" {
		if req.State != "" {
			_, _ = s.states.Consume(ctx, req.State)
		}
		s.audit(ctx, "login_denied", map[string]string{
			"provider": string(p),
			"error":    req.Error,
		})
		return nil, domain.ErrAccessDenied(req.ErrorDescription)
	}

	if req.Code == "" {
		return nil, domain.ErrMissingCode()
	}

	if err := s.checkState(ctx, p, req.State, req.ExpectedState); err != nil {
		return nil, err
	}

	cfg, err := s.providers.Resolve(p)
	if err != nil {
		return nil, err
	}

	tok, err := s.exchange(ctx, cfg, req.Code)
	if err != nil {
		return nil, err
	}

	profile, err := s.fetchProfile(ctx, cfg, tok.AccessToken)
	if err != nil {
		return nil, err
	}

	pr, err := s.provisionUser(ctx, domain.NewUser{
		Provider:       p,
		ProviderUserID: profile.ID,
		Username:       profile.Username,
		Email:          profile.Email,
		AvatarURL:      profile.AvatarURL,
		AccessToken:    domain.StrPtr(tok.AccessToken),
		RefreshToken:   domain.StrPtr(tok.RefreshToken),
	})
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Establish(ctx, req.PreviousSessionID, domain.NewSessionUser(pr.user, tok))
	if err != nil {
		return nil, err
	}

	fields := map[string]string{
		"provider": string(p),
		"user_id":  strconv.FormatInt(pr.user.ID, 10),
		"created":  strconv.FormatBool(pr.created),
	}
	// the audit sink masks it
	if pr.user.Email != nil {
		fields["email"] = *pr.user.Email
	}
	s.audit(ctx, "login_succeeded", fields)

	return &CallbackResult{User: pr.user, Created: pr.created, Session: sess}, nil
}

// checkState binds the callback to the browser that began the flow, then burns
// the server-side record so the state cannot be replayed.
func (s *Service) checkState(ctx context.Context, p domain.Provider, state, expected string) error {
	if state == "" || expected == "" ||
		subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return domain.ErrInvalidState()
	}

	data, err := s.states.Consume(ctx, state)
	if err != nil {
		return asDomain(err)
	}
	if data.Provider != p {
		return domain.ErrProviderMismatch()
	}
	return nil
}

func (s *Service) exchange(ctx context.Context, cfg domain.ProviderConfig, code string) (domain.OAuthToken, error) {
	ctx, cancel := s.withProviderTimeout(ctx)
	defer cancel()

	tok, err := s.oauth.ExchangeCode(ctx, cfg, code)
	if err != nil {
		return domain.OAuthToken{}, asDomain(err)
	}
	if tok.AccessToken == "" {
		return domain.OAuthToken{}, domain.ErrTokenExchange(nil)
	}
	return tok, nil
}

func (s *Service) fetchProfile(ctx context.Context, cfg domain.ProviderConfig, accessToken string) (domain.ExternalProfile, error) {
	ctx, cancel := s.withProviderTimeout(ctx)
	defer cancel()

	profile, err := s.profiles.FetchProfile(ctx, cfg, accessToken)
	if err != nil {
		return domain.ExternalProfile{}, asDomain(err)
	}
	if profile.ID == "" {
		return domain.ExternalProfile{}, domain.ErrProfileParse(nil)
	}
	return profile, nil
}

// provisionUser runs find-or-create once per identity at a time in this process.
// The store's uniqueness constraint covers other processes. Only the caller
// whose function ran reports created; callers that shared its result did not
// create anything.
func (s *Service) provisionUser(ctx context.Context, nu domain.NewUser) (provisionResult, error) {
	key := string(nu.Provider) + ":" + nu.ProviderUserID

	// detached so one caller giving up does not fail the others sharing the call
	shared := context.WithoutCancel(ctx)

	ran := false
	v, err, _ := s.provision.Do(key, func() (any, error) {
		ran = true
		u, created, err := s.users.FindOrCreate(shared, nu)
		if err != nil {
			return provisionResult{}, err
		}
		return provisionResult{user: u, created: created}, nil
	})
	if err != nil {
		return provisionResult{}, asDomain(err)
	}
	pr := v.(provisionResult)
	pr.created = pr.created && ran

	// outside Do: a slow broker confirm holds only this caller
	if pr.created {
		s.publishProvisioned(shared, pr.user)
	}
	return pr, nil
}

func (s *Service) publishProvisioned(ctx context.Context, u domain.User) {
	if s.pub == nil {
		return
	}
	err := s.pub.PublishUserProvisioned(ctx, UserProvisionedEvent{
		UserID:         u.ID,
		Provider:       u.Provider,
		ProviderUserID: u.ProviderUserID,
		Username:       u.Username,
		Email:          u.Email,
		CreatedAt:      u.CreatedAt,
	})
	if err != nil {
		s.audit(ctx, "publish_failed", map[string]string{
			"event":   "user.provisioned",
			"user_id": strconv.FormatInt(u.ID, 10),
			"code":    domainCode(err),
		})
	}
}
