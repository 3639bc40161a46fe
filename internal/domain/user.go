package domain

import (
	"fmt"
	"time"
)

// User is the persisted local account. Identity is (Provider, ProviderUserID).
type User struct {
	ID             int64
	Provider       Provider
	ProviderUserID string
	Username       string
	Email          *string
	AvatarURL      *string
	AccessToken    *string
	RefreshToken   *string
	CreatedAt      time.Time
}

// NewUser carries what find-or-create needs to insert a row on first login.
type NewUser struct {
	Provider       Provider
	ProviderUserID string
	Username       string
	Email          *string
	AvatarURL      *string
	AccessToken    *string
	RefreshToken   *string
}

// ExternalProfile is a provider profile normalized to one shape.
// ID is the only mandatory field.
type ExternalProfile struct {
	ID        string
	Username  string
	Email     *string
	AvatarURL *string
}

// OAuthToken lives only for the duration of a callback.
type OAuthToken struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	Scope        string
	Expiry       time.Time
}

// String keeps tokens out of logs.
func (t OAuthToken) String() string {
	return fmt.Sprintf("OAuthToken{type=%s scope=%q access=%s refresh=%s}",
		t.TokenType, t.Scope, redact(t.AccessToken), redact(t.RefreshToken))
}

func redact(s string) string {
	if s == "" {
		return "<none>"
	}
	return "<redacted>"
}

// StrPtr returns nil for empty strings.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// StrVal dereferences p, treating nil as "".
func StrVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
