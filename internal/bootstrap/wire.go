package bootstrap

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/audit"
	"github.com/baechuer/paas-platform/services/auth-service/internal/config"
	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/db/postgres"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/memory"
	rabbitmq_pub "github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/messaging/rabbitmq"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/oauth"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/redis"
	"github.com/baechuer/paas-platform/services/auth-service/internal/infrastructure/security"
	"github.com/baechuer/paas-platform/services/auth-service/internal/logger"
	http_handlers "github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/handlers"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/middleware"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/router"
)

/*
========================
 Public entry (prod)
========================
*/

func NewServer() (*http.Server, func(), error) {
	return newServer(defaultDeps())
}

// NewServerWithDeps allows injecting dependencies for testing
func NewServerWithDeps(deps Deps) (*http.Server, func(), error) {
	return newServer(deps)
}

/*
========================
 Dependency injection
========================
*/

type Deps struct {
	LoadConfig func() (*config.Config, error)

	NewDB func(addr string, debug bool) (*sql.DB, error)

	// NewRedis is only called when REDIS_ADDR is set.
	NewRedis func(addr, password string, db int) *redis.Client

	// NewPublisher is only called when RABBIT_URL is set.
	NewPublisher func(url, exchange string) (Publisher, error)

	NewRouter func(router.Deps) (http.Handler, error)

	// LookupEnv feeds the provider registry; nil means os.LookupEnv.
	LookupEnv oauth.EnvSource
}

type Publisher interface {
	auth.EventPublisher
	Close() error
}

const (
	redisPingTimeout = 2 * time.Second
	migrateTimeout   = 10 * time.Second
	devSecretBytes   = 32
)

/*
========================
 Core bootstrap logic
========================
*/

func newServer(deps Deps) (*http.Server, func(), error) {
	lg := logger.Component("bootstrap")

	// 0) config
	cfg, err := deps.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 1) db
	db, err := deps.NewDB(cfg.DBAddr, cfg.DBDebug)
	if err != nil {
		return nil, nil, domain.ErrDatabase(err)
	}

	cleanupFns := []func(){
		func() { _ = db.Close() },
	}
	fail := func(err error) (*http.Server, func(), error) {
		runCleanup(cleanupFns)
		return nil, nil, err
	}

	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		err := postgres.EnsureSchema(ctx, db)
		cancel()
		if err != nil {
			return fail(err)
		}
		lg.Info().Msg("schema ensured")
	}

	// 2) redis (memory fallback in dev only)
	var redisCli *redis.Client
	if cfg.RedisAddr != "" && deps.NewRedis != nil {
		c := deps.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		err := c.Ping(ctx)
		cancel()

		if err != nil {
			_ = c.Close()
			if !cfg.IsDev() {
				return fail(domain.ErrRedisUnavailable(err))
			}
			lg.Warn().Err(err).Msg("redis unavailable; using in-memory stores")
		} else {
			lg.Info().Msg("redis connected")
			redisCli = c
			cleanupFns = append(cleanupFns, func() { _ = c.Close() })
		}
	} else if !cfg.IsDev() {
		return fail(fmt.Errorf("missing required env var: REDIS_ADDR"))
	}

	var sessionStore auth.SessionStore
	var stateStore auth.OAuthStateStore
	if redisCli != nil {
		sessionStore = redis.NewSessionStore(redisCli)
		stateStore = redis.NewOAuthStateStore(redisCli)
	} else {
		sessionStore = memory.NewSessionStore()
		stateStore = memory.NewOAuthStateStore()
	}
	// nil client: the limiter fails open
	limiter := redis.NewFixedWindowLimiter(redisCli)

	// 3) publisher
	var pub auth.EventPublisher = memory.NewNoopPublisher()
	if cfg.RabbitURL != "" && deps.NewPublisher != nil {
		p, err := deps.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			if !cfg.IsDev() {
				return fail(err)
			}
			lg.Warn().Err(err).Msg("rabbitmq unavailable; using noop publisher")
		} else {
			pub = p
			cleanupFns = append(cleanupFns, func() { _ = p.Close() })
		}
	} else {
		lg.Warn().Msg("RABBIT_URL not set; provisioning events are only logged")
	}

	// 4) security
	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, devSecretBytes)
		if _, err := rand.Read(secret); err != nil {
			return fail(domain.ErrRandomFailed(err))
		}
		lg.Warn().Msg("SESSION_SECRET not set; using a random per-process secret, sessions and stored provider tokens will not survive a restart")
	}

	payloadSealer, err := security.NewSealer(secret, security.PurposeSessionPayload)
	if err != nil {
		return fail(err)
	}
	cookieSealer, err := security.NewSealer(secret, security.PurposeSessionCookie)
	if err != nil {
		return fail(err)
	}
	stateCookies, err := security.NewStateCookies(secret, cfg.OAuthStateTTL, cfg.CookieSecure)
	if err != nil {
		return fail(err)
	}
	sessionCookies := security.NewSessionCookies(cookieSealer, cfg.CookieSecure)
	tokenSealer, err := security.NewSealer(secret, security.PurposeUserTokens)
	if err != nil {
		return fail(err)
	}
	users := postgres.NewUserRepo(db, tokenSealer)

	// 5) providers
	lookup := deps.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	registry := oauth.NewRegistry(lookup, cfg.PublicBaseURL)
	for p, err := range registry.Check() {
		// not fatal for the process; the provider answers provider_not_configured
		lg.Warn().Err(err).Str("provider", string(p)).Msg("oauth provider disabled")
	}
	client := oauth.NewClient(cfg.ProviderTimeout)

	// 6) service
	sessions := auth.NewSessionManager(sessionStore, payloadSealer, cfg.SessionTTL)
	authSvc := auth.NewService(
		registry,
		client,
		client,
		users,
		stateStore,
		sessions,
		pub,
		auth.Config{
			StateTTL:        cfg.OAuthStateTTL,
			ProviderTimeout: cfg.ProviderTimeout,
		},
	).WithAudit(audit.New(logger.Logger).Record)

	// 7) handlers + middleware
	oauthH := http_handlers.NewOAuthHandler(http_handlers.OAuthHandlerConfig{
		Service:        authSvc,
		StateCookies:   stateCookies,
		SessionCookies: sessionCookies,
		SessionTTL:     cfg.SessionTTL,
		CallbackMode:   cfg.CallbackMode,
		FrontendURL:    cfg.FrontendURL,
	})
	sessionH := http_handlers.NewSessionHandler(authSvc, sessionCookies)
	healthH := http_handlers.NewHealthHandler(db)

	// 8) router
	newRouter := deps.NewRouter
	if newRouter == nil {
		newRouter = router.New
	}
	mux, err := newRouter(router.Deps{
		Health:         healthH,
		OAuth:          oauthH,
		Session:        sessionH,
		SessionMW:      middleware.RequireSession(authSvc.Sessions(), sessionCookies, response.WriteError),
		Limiter:        limiter,
		AllowedOrigins: cfg.CORSOrigins,
		Logger:         logger.Component("http"),
	})
	if err != nil {
		return fail(err)
	}

	// 9) server
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      mux,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	cleanup := func() {
		runCleanup(cleanupFns)
	}

	return srv, cleanup, nil
}

/*
========================
 Default deps (prod)
========================
*/

func defaultDeps() Deps {
	return Deps{
		LoadConfig: config.Load,
		NewDB:      config.NewDB,
		NewRedis:   redis.New,
		NewPublisher: func(url, exchange string) (Publisher, error) {
			return rabbitmq_pub.NewPublisher(url, exchange)
		},
		NewRouter: router.New,
	}
}

/*
========================
 helpers
========================
*/

func runCleanup(fns []func()) {
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
