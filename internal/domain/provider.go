package domain

import "strings"

// Provider is the closed set of identity providers the service can log users in with.
type Provider string

const (
	ProviderGitHub    Provider = "github"
	ProviderGitLab    Provider = "gitlab"
	ProviderBitbucket Provider = "bitbucket"
)

// Providers lists every supported provider in a stable order.
func Providers() []Provider {
	return []Provider{ProviderGitHub, ProviderGitLab, ProviderBitbucket}
}

// ParseProvider maps a route segment onto a Provider.
func ParseProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case ProviderGitHub, ProviderGitLab, ProviderBitbucket:
		return p, nil
	default:
		return "", ErrUnknownProvider(s)
	}
}

// EnvPrefix is the prefix of the provider's environment keys, e.g. GITHUB_CLIENT_ID.
func (p Provider) EnvPrefix() string {
	return strings.ToUpper(string(p))
}

func (p Provider) String() string { return string(p) }

// ProviderConfig is immutable once resolved; the flow never mutates it.
type ProviderConfig struct {
	Provider     Provider `validate:"required"`
	AuthURL      string   `validate:"required,http_url"`
	TokenURL     string   `validate:"required,http_url"`
	UserInfoURL  string   `validate:"required,http_url"`
	Scopes       []string `validate:"min=1,dive,required"`
	ClientID     string   `validate:"required"`
	ClientSecret string   `validate:"required"`
	RedirectURL  string   `validate:"required,http_url"`
}
