package oauth

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// descriptor is everything that differs between providers.
type descriptor struct {
	authURL     string
	tokenURL    string
	userInfoURL string
	scopes      []string
	normalize   func(body []byte) (domain.ExternalProfile, error)
}

var descriptors = map[domain.Provider]descriptor{
	domain.ProviderGitHub: {
		authURL:     "https://github.com/login/oauth/authorize",
		tokenURL:    "https://github.com/login/oauth/access_token",
		userInfoURL: "https://api.github.com/user",
		scopes:      []string{"read:user", "user:email", "repo"},
		normalize:   normalizeGitHub,
	},
	domain.ProviderGitLab: {
		authURL:     "https://gitlab.com/oauth/authorize",
		tokenURL:    "https://gitlab.com/oauth/token",
		userInfoURL: "https://gitlab.com/api/v4/user",
		scopes:      []string{"read_user", "read_repository"},
		normalize:   normalizeGitLab,
	},
	domain.ProviderBitbucket: {
		authURL:     "https://bitbucket.org/site/oauth2/authorize",
		tokenURL:    "https://bitbucket.org/site/oauth2/access_token",
		userInfoURL: "https://api.bitbucket.org/2.0/user",
		scopes:      []string{"account", "repository"},
		normalize:   normalizeBitbucket,
	},
}

var errMissingID = errors.New("profile has no id")

type githubUser struct {
	ID        json.RawMessage `json:"id"`
	Login     string          `json:"login"`
	Email     *string         `json:"email"`
	AvatarURL *string         `json:"avatar_url"`
}

func normalizeGitHub(body []byte) (domain.ExternalProfile, error) {
	var u githubUser
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.ExternalProfile{}, err
	}
	return finish(u.ID, u.Login, u.Email, u.AvatarURL)
}

type gitlabUser struct {
	ID        json.RawMessage `json:"id"`
	Username  string          `json:"username"`
	Email     *string         `json:"email"`
	AvatarURL *string         `json:"avatar_url"`
}

func normalizeGitLab(body []byte) (domain.ExternalProfile, error) {
	var u gitlabUser
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.ExternalProfile{}, err
	}
	return finish(u.ID, u.Username, u.Email, u.AvatarURL)
}

type bitbucketUser struct {
	UUID     json.RawMessage `json:"uuid"`
	Username string          `json:"username"`
	Email    *string         `json:"email"`
	Links    struct {
		Avatar struct {
			Href *string `json:"href"`
		} `json:"avatar"`
	} `json:"links"`
}

func normalizeBitbucket(body []byte) (domain.ExternalProfile, error) {
	var u bitbucketUser
	if err := json.Unmarshal(body, &u); err != nil {
		return domain.ExternalProfile{}, err
	}
	return finish(u.UUID, u.Username, u.Email, u.Links.Avatar.Href)
}

func finish(rawID json.RawMessage, username string, email, avatar *string) (domain.ExternalProfile, error) {
	id := idText(rawID)
	if id == "" {
		return domain.ExternalProfile{}, errMissingID
	}
	return domain.ExternalProfile{
		ID:        id,
		Username:  username,
		Email:     nonEmpty(email),
		AvatarURL: nonEmpty(avatar),
	}, nil
}

// idText accepts both numeric ids (GitHub, GitLab) and string ids (Bitbucket uuid).
// Numbers keep their decimal text so large ids never pass through float64.
func idText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func nonEmpty(p *string) *string {
	if p == nil {
		return nil
	}
	return domain.StrPtr(strings.TrimSpace(*p))
}
