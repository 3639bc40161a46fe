package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/middleware"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
)

const (
	authRateLimit  = 20
	authRateWindow = time.Minute
)

type HealthHandler interface {
	Healthz(w http.ResponseWriter, r *http.Request)
	Readyz(w http.ResponseWriter, r *http.Request)
}

type OAuthHandler interface {
	Begin(w http.ResponseWriter, r *http.Request)
	Callback(w http.ResponseWriter, r *http.Request)
}

type SessionHandler interface {
	Logout(w http.ResponseWriter, r *http.Request)
	Me(w http.ResponseWriter, r *http.Request)
}

type Deps struct {
	Health  HealthHandler
	OAuth   OAuthHandler
	Session SessionHandler

	// SessionMW guards /api/user/me; see middleware.RequireSession.
	SessionMW func(http.Handler) http.Handler

	// Limiter may be nil (rate limiting disabled).
	Limiter        middleware.RateLimiter
	AllowedOrigins []string
	Logger         zerolog.Logger
}

func New(deps Deps) (http.Handler, error) {
	if deps.Health == nil {
		return nil, fmt.Errorf("nil Health handler")
	}
	if deps.OAuth == nil {
		return nil, fmt.Errorf("nil OAuth handler")
	}
	if deps.Session == nil {
		return nil, fmt.Errorf("nil Session handler")
	}
	if deps.SessionMW == nil {
		return nil, fmt.Errorf("nil Session middleware")
	}

	rl := func(key string) func(http.Handler) http.Handler {
		return middleware.RateLimitFixedWindow(deps.Limiter, middleware.FixedWindowConfig{
			RouteKey: key,
			Limit:    authRateLimit,
			Window:   authRateWindow,
		}, response.WriteError)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.AccessLog(deps.Logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(deps.AllowedOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.WriteError(w, r, domain.New(domain.KindNotFound, "not_found", "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.OriginCheck(deps.AllowedOrigins, response.WriteError)).
				Post("/logout", deps.Session.Logout)

			r.With(rl("auth.begin")).Get("/{provider}", deps.OAuth.Begin)
			r.With(rl("auth.callback")).Get("/{provider}/callback", deps.OAuth.Callback)
		})

		r.With(deps.SessionMW).Get("/user/me", deps.Session.Me)
	})

	return r, nil
}
