package oauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

const (
	stateBytes     = 32
	defaultTimeout = 10 * time.Second
	userAgent      = "paas-auth-service"
)

// Client speaks the authorization-code flow against any configured provider.
// It holds no per-provider state; everything comes from the ProviderConfig.
type Client struct {
	httpClient *http.Client
	randRead   func([]byte) (int, error)
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		randRead:   rand.Read,
	}
}

func (c *Client) config(cfg domain.ProviderConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  cfg.AuthURL,
			TokenURL: cfg.TokenURL,
			// all three providers accept credentials in the form body
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: cfg.RedirectURL,
		Scopes:      cfg.Scopes,
	}
}

// BuildAuthorizationURL returns the consent URL and the fresh state embedded in it.
// Persisting the state is the caller's job.
func (c *Client) BuildAuthorizationURL(cfg domain.ProviderConfig) (string, string, error) {
	b := make([]byte, stateBytes)
	if _, err := c.randRead(b); err != nil {
		return "", "", domain.ErrRandomFailed(err)
	}
	state := base64.RawURLEncoding.EncodeToString(b)

	return c.config(cfg).AuthCodeURL(state), state, nil
}

// ExchangeCode trades an authorization code for tokens. Every failure is a
// token_exchange_failed auth error; the provider's detail stays in the cause.
func (c *Client) ExchangeCode(ctx context.Context, cfg domain.ProviderConfig, code string) (domain.OAuthToken, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	tok, err := c.config(cfg).Exchange(ctx, code)
	if err != nil {
		return domain.OAuthToken{}, domain.ErrTokenExchange(err)
	}

	scope, _ := tok.Extra("scope").(string)
	return domain.OAuthToken{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Scope:        scope,
		Expiry:       tok.Expiry,
	}, nil
}
