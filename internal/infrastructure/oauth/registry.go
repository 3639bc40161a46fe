package oauth

import (
	"errors"
	"os"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/pkg/validate"
)

// EnvSource looks up one environment key. os.LookupEnv in production.
type EnvSource func(key string) (string, bool)

// Registry resolves provider configuration from the environment on every call,
// so rotated credentials are picked up without a restart.
type Registry struct {
	env          EnvSource
	callbackBase string
}

func NewRegistry(env EnvSource, callbackBase string) *Registry {
	if env == nil {
		env = os.LookupEnv
	}
	return &Registry{
		env:          env,
		callbackBase: strings.TrimRight(callbackBase, "/"),
	}
}

// RedirectURL is where provider p sends the browser back to.
func (r *Registry) RedirectURL(p domain.Provider) string {
	return r.callbackBase + "/api/auth/" + string(p) + "/callback"
}

func (r *Registry) Resolve(p domain.Provider) (domain.ProviderConfig, error) {
	d, ok := descriptors[p]
	if !ok {
		return domain.ProviderConfig{}, domain.ErrUnknownProvider(string(p))
	}

	prefix := p.EnvPrefix()
	cfg := domain.ProviderConfig{
		Provider:     p,
		AuthURL:      r.lookup(prefix+"_AUTH_URL", d.authURL),
		TokenURL:     r.lookup(prefix+"_TOKEN_URL", d.tokenURL),
		UserInfoURL:  r.lookup(prefix+"_API_URL", d.userInfoURL),
		Scopes:       append([]string(nil), d.scopes...),
		ClientID:     r.lookup(prefix+"_CLIENT_ID", ""),
		ClientSecret: r.lookup(prefix+"_CLIENT_SECRET", ""),
		RedirectURL:  r.RedirectURL(p),
	}

	if err := validate.Struct(cfg); err != nil {
		field := "unknown"
		var verrs validate.Errors
		if errors.As(err, &verrs) {
			field = envKey(prefix, verrs.First().Field)
		}
		return domain.ProviderConfig{}, domain.ErrProviderNotConfigured(string(p), field, err)
	}
	return cfg, nil
}

// Check resolves every provider and returns the failures keyed by provider.
func (r *Registry) Check() map[domain.Provider]error {
	out := make(map[domain.Provider]error)
	for _, p := range domain.Providers() {
		if _, err := r.Resolve(p); err != nil {
			out[p] = err
		}
	}
	return out
}

func (r *Registry) lookup(key, def string) string {
	if v, ok := r.env(key); ok {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return def
}

func envKey(prefix, field string) string {
	switch field {
	case "ClientID":
		return prefix + "_CLIENT_ID"
	case "ClientSecret":
		return prefix + "_CLIENT_SECRET"
	case "AuthURL":
		return prefix + "_AUTH_URL"
	case "TokenURL":
		return prefix + "_TOKEN_URL"
	case "UserInfoURL":
		return prefix + "_API_URL"
	case "RedirectURL":
		return "PUBLIC_BASE_URL"
	default:
		return field
	}
}
