package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// UserRepo is an in-process user store for tests and local runs without Postgres.
// The mutex makes find-or-create atomic.
type UserRepo struct {
	mu         sync.Mutex
	nextID     int64
	byIdentity map[string]domain.User
}

func NewUserRepo() *UserRepo {
	return &UserRepo{byIdentity: make(map[string]domain.User)}
}

func identityKey(p domain.Provider, id string) string {
	return string(p) + "\x00" + id
}

func (r *UserRepo) FindOrCreate(ctx context.Context, nu domain.NewUser) (domain.User, bool, error) {
	nu.ProviderUserID = strings.TrimSpace(nu.ProviderUserID)
	if nu.Provider == "" {
		return domain.User{}, false, domain.ErrMissingField("provider")
	}
	if nu.ProviderUserID == "" {
		return domain.User{}, false, domain.ErrMissingField("provider_user_id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	k := identityKey(nu.Provider, nu.ProviderUserID)
	if u, ok := r.byIdentity[k]; ok {
		return u, false, nil
	}

	r.nextID++
	u := domain.User{
		ID:             r.nextID,
		Provider:       nu.Provider,
		ProviderUserID: nu.ProviderUserID,
		Username:       nu.Username,
		Email:          nu.Email,
		AvatarURL:      nu.AvatarURL,
		AccessToken:    nu.AccessToken,
		RefreshToken:   nu.RefreshToken,
		CreatedAt:      time.Now().UTC(),
	}
	r.byIdentity[k] = u
	return u, true, nil
}

func (r *UserRepo) UpdateTokens(ctx context.Context, provider domain.Provider, providerUserID, accessToken string, refreshToken *string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := identityKey(provider, providerUserID)
	u, ok := r.byIdentity[k]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound()
	}
	u.AccessToken = &accessToken
	u.RefreshToken = refreshToken
	r.byIdentity[k] = u
	return u, nil
}

// Count is the number of stored users.
func (r *UserRepo) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byIdentity)
}
