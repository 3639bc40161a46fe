package http_handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/config"
	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/middleware"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
)

type OAuthService interface {
	Begin(ctx context.Context, provider string) (*auth.BeginResult, error)
	Callback(ctx context.Context, req auth.CallbackRequest) (*auth.CallbackResult, error)
}

// StateCookieJar is satisfied by *security.StateCookies.
type StateCookieJar interface {
	Issue(w http.ResponseWriter, provider, state string) error
	Expected(r *http.Request, provider, state string) string
	Clear(w http.ResponseWriter, state string)
}

// OAuthHandler serves the begin and callback legs of the login flow.
type OAuthHandler struct {
	svc          OAuthService
	states       StateCookieJar
	sessions     middleware.SessionCookieJar
	sessionTTL   time.Duration
	callbackMode string
	frontendURL  string
}

type OAuthHandlerConfig struct {
	Service        OAuthService
	StateCookies   StateCookieJar
	SessionCookies middleware.SessionCookieJar
	// SessionTTL is the cookie Max-Age; it matches the session store TTL.
	SessionTTL     time.Duration
	CallbackMode   string
	FrontendURL    string
}

func NewOAuthHandler(cfg OAuthHandlerConfig) *OAuthHandler {
	mode := cfg.CallbackMode
	if mode == "" {
		mode = config.CallbackModeJSON
	}
	return &OAuthHandler{
		svc:          cfg.Service,
		states:       cfg.StateCookies,
		sessions:     cfg.SessionCookies,
		sessionTTL:   cfg.SessionTTL,
		callbackMode: mode,
		frontendURL:  cfg.FrontendURL,
	}
}

type beginResponse struct {
	AuthURL string `json:"auth_url"`
}

type callbackUser struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type callbackResponse struct {
	User callbackUser `json:"user"`
}

// Begin handles GET /api/auth/{provider}
func (h *OAuthHandler) Begin(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Begin(r.Context(), chi.URLParam(r, "provider"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.states.Issue(w, string(res.Provider), res.State); err != nil {
		writeError(w, r, domain.ErrInternal(err))
		return
	}

	response.OK(w, beginResponse{AuthURL: res.AuthURL})
}

// Callback handles GET /api/auth/{provider}/callback?code=...&state=...
func (h *OAuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	provider := chi.URLParam(r, "provider")
	q := r.URL.Query()

	req := auth.CallbackRequest{
		Provider:          provider,
		Code:              q.Get("code"),
		State:             q.Get("state"),
		Error:             q.Get("error"),
		ErrorDescription:  q.Get("error_description"),
		ExpectedState:     h.states.Expected(r, provider, q.Get("state")),
		PreviousSessionID: h.sessions.Read(r),
	}

	// one attempt per state, whatever the outcome
	h.states.Clear(w, req.State)

	res, err := h.svc.Callback(r.Context(), req)
	recordOutcome(provider, err)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if err := h.sessions.Set(w, res.Session.ID, h.sessionTTL); err != nil {
		h.fail(w, r, domain.ErrSession(err))
		return
	}
	if res.Created {
		middleware.UsersProvisionedTotal.WithLabelValues(string(res.User.Provider)).Inc()
	}

	if h.callbackMode == config.CallbackModeRedirect {
		http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
		return
	}

	response.OK(w, callbackResponse{User: callbackUser{
		ID:       res.User.ID,
		Username: res.User.Username,
		Email:    res.User.Email,
	}})
}

func (h *OAuthHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if h.callbackMode != config.CallbackModeRedirect {
		writeError(w, r, err)
		return
	}

	logFailure(r, err)
	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	http.Redirect(w, r, h.frontendURL+"/login?error="+url.QueryEscape(msg), http.StatusFound)
}

func recordOutcome(provider string, err error) {
	p, perr := domain.ParseProvider(provider)
	if perr != nil {
		// unknown names would blow up label cardinality
		return
	}
	outcome := "succeeded"
	switch {
	case err == nil:
	case domain.Is(err, "access_denied"):
		outcome = "denied"
	default:
		outcome = "failed"
	}
	middleware.OAuthOutcomesTotal.WithLabelValues(string(p), outcome).Inc()
}
