package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	StateCookieName = "oauth_state"

	// bytes of sha256(state) in the cookie name
	stateSlotBytes = 8
)

// StateCookies binds a pending authorization request to the browser that
// started it. The cookie is an HS256 JWT naming the state and the provider.
// Each state gets its own cookie, so flows begun in several tabs coexist.
type StateCookies struct {
	key    []byte
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

type stateClaims struct {
	State    string `json:"st"`
	Provider string `json:"prv"`
	jwt.RegisteredClaims
}

func NewStateCookies(secret []byte, ttl time.Duration, secure bool) (*StateCookies, error) {
	key, err := DeriveKey(secret, PurposeStateCookie)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateCookies{key: key, ttl: ttl, secure: secure, now: time.Now}, nil
}

// Name is the cookie that carries state.
func (s *StateCookies) Name(state string) string {
	sum := sha256.Sum256([]byte(state))
	return cookieName(StateCookieName+"_"+hex.EncodeToString(sum[:stateSlotBytes]), s.secure)
}

func (s *StateCookies) Issue(w http.ResponseWriter, provider, state string) error {
	now := s.now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		State:    state,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     s.Name(state),
		Value:    signed,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		// Lax so the cookie survives the top-level redirect back from the provider
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
	return nil
}

// Expected returns the state this browser was issued for provider under the
// slot of state, or "" if that cookie is missing, expired or forged, or was
// issued for another provider or state.
func (s *StateCookies) Expected(r *http.Request, provider, state string) string {
	if state == "" {
		return ""
	}
	ck, err := r.Cookie(s.Name(state))
	if err != nil || ck.Value == "" {
		return ""
	}

	var claims stateClaims
	_, err = jwt.ParseWithClaims(ck.Value, &claims, func(t *jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return ""
	}
	if subtle.ConstantTimeCompare([]byte(claims.Provider), []byte(provider)) != 1 {
		return ""
	}
	// a cookie moved into another slot does not vouch for that slot's state
	if subtle.ConstantTimeCompare([]byte(claims.State), []byte(state)) != 1 {
		return ""
	}
	return claims.State
}

// Clear drops the cookie of state only; other pending flows keep theirs.
func (s *StateCookies) Clear(w http.ResponseWriter, state string) {
	if state == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.Name(state),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
