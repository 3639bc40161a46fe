package http_handlers

import (
	"context"
	"net/http"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/middleware"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
)

type SessionService interface {
	Logout(ctx context.Context, sessionID string) error
	CurrentUser(ctx context.Context, sessionID string) (*domain.SessionUser, error)
}

type SessionHandler struct {
	svc     SessionService
	cookies middleware.SessionCookieJar
}

func NewSessionHandler(svc SessionService, cookies middleware.SessionCookieJar) *SessionHandler {
	return &SessionHandler{svc: svc, cookies: cookies}
}

type meResponse struct {
	ID       int64           `json:"id"`
	Username string          `json:"username"`
	Email    *string         `json:"email"`
	Provider domain.Provider `json:"provider"`
}

// Logout handles POST /api/auth/logout. Logging out twice is fine.
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), h.cookies.Read(r))
	h.cookies.Clear(w)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
}

// Me handles GET /api/user/me. Tokens are never part of the projection.
func (h *SessionHandler) Me(w http.ResponseWriter, r *http.Request) {
	su, ok := middleware.SessionUserFromContext(r.Context())
	if !ok {
		var err error
		if su, err = h.svc.CurrentUser(r.Context(), h.cookies.Read(r)); err != nil {
			writeError(w, r, err)
			return
		}
	}

	response.OK(w, meResponse{
		ID:       su.UserID,
		Username: su.Username,
		Email:    su.Email,
		Provider: su.Provider,
	})
}
