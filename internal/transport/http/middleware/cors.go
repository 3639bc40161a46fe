package middleware

import (
	"net/http"
	"strings"

	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
)

var (
	corsAllowedMethods = []string{"GET", "POST", "OPTIONS"}
	corsAllowedHeaders = []string{"Accept", "Content-Type", HeaderXRequestID}
	corsExposedHeaders = []string{HeaderXRequestID}
)

// CORS allows credentialed requests from the configured frontend origins.
// Entries may be exact origins or "*.example.com" subdomain wildcards. "*" is
// never honored because the session rides on cookies.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := isOriginAllowed(origin, allowedOrigins)

			w.Header().Add("Vary", "Origin")
			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
				w.Header().Set("Access-Control-Expose-Headers", strings.Join(corsExposedHeaders, ", "))
			}

			// Handle preflight requests
			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				if allowed {
					w.Header().Set("Access-Control-Allow-Methods", strings.Join(corsAllowedMethods, ", "))
					w.Header().Set("Access-Control-Allow-Headers", strings.Join(corsAllowedHeaders, ", "))
					w.Header().Set("Access-Control-Max-Age", "3600")
				}
				response.NoContent(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// isOriginAllowed checks if the given origin is in the allowed list.
func isOriginAllowed(origin string, allowedOrigins []string) bool {
	if origin == "" {
		return false
	}

	for _, allowed := range allowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
		// *.example.com matches app.example.com, but NOT example.com
		if strings.HasPrefix(allowed, "*.") {
			suffix := strings.TrimPrefix(allowed, "*")
			host := origin
			if i := strings.Index(host, "://"); i >= 0 {
				host = host[i+3:]
			}
			if j := strings.IndexByte(host, ':'); j >= 0 {
				host = host[:j]
			}
			if strings.HasSuffix(strings.ToLower(host), strings.ToLower(suffix)) && len(host) > len(suffix) {
				return true
			}
		}
	}

	return false
}
