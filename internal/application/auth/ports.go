package auth

import (
	"context"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

/*
ProviderResolver
----------------
Turns a provider into its immutable configuration.
A misconfigured provider resolves to a configuration error, never a partial config.
*/
type ProviderResolver interface {
	Resolve(p domain.Provider) (domain.ProviderConfig, error)
}

/*
OAuthClient
-----------
Authorization-code flow against one provider config.
The client does not remember the state it generates.
*/
type OAuthClient interface {
	BuildAuthorizationURL(cfg domain.ProviderConfig) (authURL string, state string, err error)
	ExchangeCode(ctx context.Context, cfg domain.ProviderConfig, code string) (domain.OAuthToken, error)
}

/*
ProfileFetcher
--------------
Loads the provider profile for an access token and normalizes it.
*/
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, cfg domain.ProviderConfig, accessToken string) (domain.ExternalProfile, error)
}

/*
UserStore
---------
Persistence port for local users.
FindOrCreate inserts at most one row per (provider, provider_user_id),
even when called concurrently from several processes.
*/
type UserStore interface {
	FindOrCreate(ctx context.Context, nu domain.NewUser) (user domain.User, created bool, err error)
	UpdateTokens(ctx context.Context, provider domain.Provider, providerUserID, accessToken string, refreshToken *string) (domain.User, error)
}

/*
SessionStore
------------
Opaque session payloads keyed by session id.
Load returns (nil, nil) for a missing or expired id and pushes the expiry
out by ttl on every hit.
*/
type SessionStore interface {
	Save(ctx context.Context, id string, payload []byte, ttl time.Duration) error
	Load(ctx context.Context, id string, ttl time.Duration) ([]byte, error)
	Delete(ctx context.Context, id string) error
}

/*
Sealer
------
Authenticated encryption for anything that leaves process memory.
*/
type Sealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

/*
OAuthStateStore
---------------
Pending authorization requests.
Consume is one-time: a second call for the same state fails with invalid_oauth_state.
*/
type OAuthStateData struct {
	Provider  domain.Provider `json:"provider"`
	CreatedAt time.Time       `json:"created_at"`
}

type OAuthStateStore interface {
	Save(ctx context.Context, state string, data OAuthStateData, ttl time.Duration) error
	Consume(ctx context.Context, state string) (OAuthStateData, error)
}

/*
EventPublisher
--------------
Publishes integration events to RabbitMQ.
Other services react to new accounts. Only the login that created the account
waits, and only for the broker confirm, never on consumers.
*/
type EventPublisher interface {
	PublishUserProvisioned(ctx context.Context, evt UserProvisionedEvent) error
}

type UserProvisionedEvent struct {
	UserID         int64           `json:"user_id"`
	Provider       domain.Provider `json:"provider"`
	ProviderUserID string          `json:"provider_user_id"`
	Username       string          `json:"username"`
	Email          *string         `json:"email,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}
