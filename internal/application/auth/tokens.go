package auth

import (
	"context"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// UpdateTokens overwrites the stored provider tokens of an existing user.
// Logins never call this; the profile and tokens are frozen at creation otherwise.
// A nil refreshToken clears the stored one; an empty one is rejected.
func (s *Service) UpdateTokens(ctx context.Context, provider, providerUserID, accessToken string, refreshToken *string) (domain.User, error) {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return domain.User{}, err
	}
	providerUserID = strings.TrimSpace(providerUserID)
	if providerUserID == "" {
		return domain.User{}, domain.ErrMissingField("provider_user_id")
	}
	if accessToken == "" {
		return domain.User{}, domain.ErrMissingField("access_token")
	}
	if refreshToken != nil && strings.TrimSpace(*refreshToken) == "" {
		return domain.User{}, domain.ErrInvalidField("refresh_token", "blank")
	}

	u, err := s.users.UpdateTokens(ctx, p, providerUserID, accessToken, refreshToken)
	if err != nil {
		return domain.User{}, asDomain(err)
	}
	return u, nil
}
