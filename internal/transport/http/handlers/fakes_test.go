package http_handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type fakeOAuthService struct {
	beginRes *auth.BeginResult
	beginErr error

	cbRes *auth.CallbackResult
	cbErr error
	gotCB auth.CallbackRequest
}

func (f *fakeOAuthService) Begin(_ context.Context, provider string) (*auth.BeginResult, error) {
	if f.beginErr != nil {
		return nil, f.beginErr
	}
	return f.beginRes, nil
}

func (f *fakeOAuthService) Callback(_ context.Context, req auth.CallbackRequest) (*auth.CallbackResult, error) {
	f.gotCB = req
	return f.cbRes, f.cbErr
}

type fakeStateJar struct {
	expected string

	issuedProvider string
	issuedState    string
	lookedUpState  string
	clearedStates  []string
	cleared        int
}

func (j *fakeStateJar) Issue(_ http.ResponseWriter, provider, state string) error {
	j.issuedProvider, j.issuedState = provider, state
	return nil
}

func (j *fakeStateJar) Expected(_ *http.Request, _, state string) string {
	j.lookedUpState = state
	return j.expected
}

func (j *fakeStateJar) Clear(_ http.ResponseWriter, state string) {
	j.cleared++
	j.clearedStates = append(j.clearedStates, state)
}

type fakeSessionJar struct {
	id string

	setID   string
	setTTL  time.Duration
	cleared int
}

func (j *fakeSessionJar) Read(*http.Request) string { return j.id }

func (j *fakeSessionJar) Set(_ http.ResponseWriter, id string, ttl time.Duration) error {
	j.setID, j.setTTL = id, ttl
	return nil
}

func (j *fakeSessionJar) Clear(http.ResponseWriter) { j.cleared++ }

type fakeSessionService struct {
	logoutErr error
	loggedOut []string

	current *domain.SessionUser
	curErr  error
}

func (f *fakeSessionService) Logout(_ context.Context, id string) error {
	f.loggedOut = append(f.loggedOut, id)
	return f.logoutErr
}

func (f *fakeSessionService) CurrentUser(context.Context, string) (*domain.SessionUser, error) {
	return f.current, f.curErr
}
