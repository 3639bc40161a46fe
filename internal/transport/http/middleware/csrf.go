package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type WriteErrFunc func(http.ResponseWriter, *http.Request, error)

// OriginCheck validates Origin/Referer headers for cookie-authenticated,
// state-changing endpoints (logout). Safe methods pass through.
func OriginCheck(allowedOrigins []string, writeErr WriteErrFunc) func(http.Handler) http.Handler {
	allowedHosts := make(map[string]struct{})
	for _, origin := range allowedOrigins {
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			allowedHosts[strings.ToLower(u.Host)] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			// Origin first, Referer as fallback
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = r.Header.Get("Referer")
			}
			if origin == "" {
				writeErr(w, r, domain.ErrOriginRejected("missing_origin"))
				return
			}

			u, err := url.Parse(origin)
			if err != nil || u.Host == "" {
				writeErr(w, r, domain.ErrOriginRejected("invalid_origin"))
				return
			}

			if _, ok := allowedHosts[strings.ToLower(u.Host)]; !ok {
				writeErr(w, r, domain.ErrOriginRejected("origin_not_allowed"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
