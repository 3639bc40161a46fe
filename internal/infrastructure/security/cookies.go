package security

import (
	"encoding/base64"
	"net/http"
	"time"
)

const (
	SessionCookieName = "session"
	hostPrefix        = "__Host-"
)

// cookieName applies the __Host- prefix when cookies are Secure; browsers
// refuse prefixed cookies over plain http.
func cookieName(base string, secure bool) string {
	if secure {
		return hostPrefix + base
	}
	return base
}

// SessionCookies carries the session id to the browser, sealed so a cookie
// can neither be forged nor read.
type SessionCookies struct {
	sealer *Sealer
	secure bool
}

func NewSessionCookies(sealer *Sealer, secure bool) *SessionCookies {
	return &SessionCookies{sealer: sealer, secure: secure}
}

func (c *SessionCookies) Name() string { return cookieName(SessionCookieName, c.secure) }

func (c *SessionCookies) Set(w http.ResponseWriter, sessionID string, ttl time.Duration) error {
	sealed, err := c.sealer.Seal([]byte(sessionID))
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    base64.RawURLEncoding.EncodeToString(sealed),
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
	})
	return nil
}

func (c *SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// Read returns the session id, or "" when the cookie is missing or was tampered with.
func (c *SessionCookies) Read(r *http.Request) string {
	ck, err := r.Cookie(c.Name())
	if err != nil || ck.Value == "" {
		return ""
	}
	sealed, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return ""
	}
	id, err := c.sealer.Open(sealed)
	if err != nil {
		return ""
	}
	return string(id)
}
