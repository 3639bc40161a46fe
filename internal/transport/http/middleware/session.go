package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type ctxKey string

const ctxSessionUser ctxKey = "session_user"

// SessionLoader is satisfied by *auth.SessionManager.
type SessionLoader interface {
	Read(ctx context.Context, id string) (*domain.SessionUser, error)
	TTL() time.Duration
}

// SessionCookieJar is satisfied by *security.SessionCookies.
type SessionCookieJar interface {
	Read(r *http.Request) string
	Set(w http.ResponseWriter, sessionID string, ttl time.Duration) error
	Clear(w http.ResponseWriter)
}

func WithSession(ctx context.Context, su *domain.SessionUser) context.Context {
	return context.WithValue(ctx, ctxSessionUser, su)
}

func SessionUserFromContext(ctx context.Context) (*domain.SessionUser, bool) {
	v, ok := ctx.Value(ctxSessionUser).(*domain.SessionUser)
	return v, ok && v != nil
}

// RequireSession rejects requests without a live session with not_authenticated
// and re-issues the cookie so its lifetime follows the sliding store TTL.
func RequireSession(sessions SessionLoader, cookies SessionCookieJar, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := cookies.Read(r)
			if id == "" {
				writeErr(w, r, domain.ErrNotAuthenticated())
				return
			}

			su, err := sessions.Read(r.Context(), id)
			if err != nil {
				writeErr(w, r, err)
				return
			}
			if su == nil {
				cookies.Clear(w)
				writeErr(w, r, domain.ErrNotAuthenticated())
				return
			}

			if err := cookies.Set(w, id, sessions.TTL()); err != nil {
				writeErr(w, r, domain.ErrSession(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), su)))
		})
	}
}
