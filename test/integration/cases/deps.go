//go:build integration

package cases

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/memory"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/oauth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/redis"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/security"
	itinfra "github.com/baechuer/paas-platform/services/auth-service/test/integration/infra"
)

const testSecret = "integration-session-secret-0123456789"

func newUserRepo(t *testing.T, db *sql.DB) *postgres.UserRepo {
	t.Helper()
	sealer, err := security.NewSealer([]byte(testSecret), security.PurposeUserTokens)
	require.NoError(t, err)
	return postgres.NewUserRepo(db, sealer)
}

type Deps struct {
	DB     *sql.DB
	Users  *postgres.UserRepo
	Svc    *auth.Service
	GitHub *fakeGitHub
}

// MustNewDeps wires the service against real Postgres and Redis plus a fake
// GitHub. pub may be nil.
func MustNewDeps(t *testing.T, env itinfra.Env, pub auth.EventPublisher) *Deps {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := itinfra.WaitRedis(ctx, env.RedisAddr); err != nil {
		t.Skipf("redis not reachable at %s: %v", env.RedisAddr, err)
	}

	flush := goredis.NewClient(&goredis.Options{Addr: env.RedisAddr})
	require.NoError(t, itinfra.ResetRedis(context.Background(), flush))
	_ = flush.Close()

	db := itinfra.OpenPostgres(t, env)

	rc := redis.New(env.RedisAddr, "", 0)
	t.Cleanup(func() { _ = rc.Close() })

	gh := newFakeGitHub(t)
	reg := oauth.NewRegistry(gh.env, "http://localhost:8080")

	sealer, err := security.NewSealer([]byte(testSecret), security.PurposeSessionPayload)
	require.NoError(t, err)

	if pub == nil {
		pub = memory.NewNoopPublisher()
	}

	client := oauth.NewClient(5 * time.Second)
	users := newUserRepo(t, db)
	sessions := auth.NewSessionManager(redis.NewSessionStore(rc), sealer, time.Hour)
	svc := auth.NewService(reg, client, client, users, redis.NewOAuthStateStore(rc), sessions, pub, auth.Config{
		StateTTL:        time.Minute,
		ProviderTimeout: 5 * time.Second,
	})

	return &Deps{DB: db, Users: users, Svc: svc, GitHub: gh}
}

// fakeGitHub serves the token and user endpoints for one fixed account.
type fakeGitHub struct {
	srv *httptest.Server
}

func newFakeGitHub(t *testing.T) *fakeGitHub {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"bad_verification_code"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"gho_it","token_type":"bearer","scope":"read:user"}`))
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer gho_it" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":12345,"login":"alice","email":"a@x.com"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return &fakeGitHub{srv: srv}
}

func (g *fakeGitHub) env(key string) (string, bool) {
	switch key {
	case "GITHUB_CLIENT_ID":
		return "it-client", true
	case "GITHUB_CLIENT_SECRET":
		return "it-secret", true
	case "GITHUB_AUTH_URL":
		return g.srv.URL + "/login/oauth/authorize", true
	case "GITHUB_TOKEN_URL":
		return g.srv.URL + "/login/oauth/access_token", true
	case "GITHUB_API_URL":
		return g.srv.URL + "/user", true
	}
	return "", false
}
