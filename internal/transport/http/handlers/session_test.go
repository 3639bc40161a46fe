package http_handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/middleware"
)

func TestLogout_ClearsSessionAndCookie(t *testing.T) {
	svc := &fakeSessionService{}
	jar := &fakeSessionJar{id: "sid"}
	h := NewSessionHandler(svc, jar)

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, rr.Body.Len())
	assert.Equal(t, []string{"sid"}, svc.loggedOut)
	assert.Equal(t, 1, jar.cleared)
}

func TestLogout_WithoutCookieIsFine(t *testing.T) {
	svc := &fakeSessionService{}
	h := NewSessionHandler(svc, &fakeSessionJar{})

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLogout_StoreFailureStillClearsCookie(t *testing.T) {
	svc := &fakeSessionService{logoutErr: domain.ErrSession(errors.New("down"))}
	jar := &fakeSessionJar{id: "sid"}
	h := NewSessionHandler(svc, jar)

	rr := httptest.NewRecorder()
	h.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, 1, jar.cleared)
}

func TestMe_FromSessionContext(t *testing.T) {
	h := NewSessionHandler(&fakeSessionService{}, &fakeSessionJar{})
	su := &domain.SessionUser{
		UserID:      7,
		Username:    "alice",
		Email:       domain.StrPtr("a@x.com"),
		Provider:    domain.ProviderGitHub,
		AccessToken: "T",
	}

	req := httptest.NewRequest(http.MethodGet, "/api/user/me", nil)
	req = req.WithContext(middleware.WithSession(req.Context(), su))
	rr := httptest.NewRecorder()
	h.Me(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), `"T"`)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, float64(7), body["id"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, "a@x.com", body["email"])
	assert.Equal(t, "github", body["provider"])
}

func TestMe_WithoutMiddlewareFallsBackToService(t *testing.T) {
	h := NewSessionHandler(&fakeSessionService{curErr: domain.ErrNotAuthenticated()}, &fakeSessionJar{})

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/api/user/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), `"code":"not_authenticated"`)
}
