package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/baechuer/paas-platform/services/auth-service/internal/pkg/validate"
)

const (
	CallbackModeJSON     = "json"
	CallbackModeRedirect = "redirect"

	minSessionSecretLen = 32
)

type Config struct {
	//App
	Env string `validate:"required,oneof=dev staging prod test"`
	//HTTP
	HTTPAddr      string `validate:"required"`
	Host          string `validate:"required"`
	Port          string `validate:"required,numeric"`
	PublicBaseURL string `validate:"required,http_url"`
	FrontendURL   string `validate:"required,http_url"`
	CORSOrigins   []string
	CallbackMode  string `validate:"oneof=json redirect"`

	// Sessions / OAuth flow
	SessionSecret   string
	SessionTTL      time.Duration `validate:"gt=0"`
	OAuthStateTTL   time.Duration `validate:"gt=0"`
	ProviderTimeout time.Duration `validate:"gt=0"`
	CookieSecure    bool

	// Infrastructure
	DBAddr        string `validate:"required"`
	DBDebug       bool
	DBAutoMigrate bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int `validate:"gte=0"`

	RabbitURL      string
	RabbitExchange string `validate:"required"`

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadDotEnv loads a .env file if one exists. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	err := godotenv.Load(paths...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:            getEnv("ENV", "dev"),
		Host:           getEnv("HOST", "127.0.0.1"),
		Port:           getEnv("PORT", "3000"),
		FrontendURL:    strings.TrimRight(getEnv("FRONTEND_URL", "http://127.0.0.1:8080"), "/"),
		CallbackMode:   strings.ToLower(getEnv("CALLBACK_MODE", CallbackModeJSON)),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		RabbitExchange: getEnv("RABBIT_EXCHANGE", "paas.events"),
	}
	cfg.HTTPAddr = getEnv("HTTP_ADDR", net.JoinHostPort("", cfg.Port))
	cfg.PublicBaseURL = strings.TrimRight(
		getEnv("PUBLIC_BASE_URL", "http://"+net.JoinHostPort(cfg.Host, cfg.Port)), "/")
	cfg.CORSOrigins = getList("CORS_ALLOWED_ORIGINS", defaultOrigins(cfg.FrontendURL))

	// The auth-service cannot provision users without its database.
	cfg.DBAddr = os.Getenv("DB_ADDR")
	if cfg.DBAddr == "" {
		return nil, fmt.Errorf("missing required env var: DB_ADDR")
	}

	var err error
	if cfg.DBDebug, err = getBool("DB_DEBUG", false); err != nil {
		return nil, err
	}
	if cfg.DBAutoMigrate, err = getBool("DB_AUTO_MIGRATE", cfg.Env == "dev" || cfg.Env == "test"); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = getInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", cfg.Env != "dev" && cfg.Env != "test"); err != nil {
		return nil, err
	}

	// Session secret: required outside dev; a random per-process secret is
	// generated by bootstrap when it is empty in dev.
	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" && cfg.Env != "dev" && cfg.Env != "test" {
		return nil, fmt.Errorf("missing required env var: SESSION_SECRET")
	}
	if cfg.SessionSecret != "" && len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("SESSION_SECRET must be at least %d characters", minSessionSecretLen)
	}

	durations := []struct {
		key string
		def time.Duration
		dst *time.Duration
	}{
		{"SESSION_TTL", 7 * 24 * time.Hour, &cfg.SessionTTL},
		{"OAUTH_STATE_TTL", 10 * time.Minute, &cfg.OAuthStateTTL},
		{"PROVIDER_TIMEOUT", 10 * time.Second, &cfg.ProviderTimeout},
		{"HTTP_READ_TIMEOUT", 10 * time.Second, &cfg.HTTPReadTimeout},
		{"HTTP_WRITE_TIMEOUT", 30 * time.Second, &cfg.HTTPWriteTimeout},
		{"HTTP_IDLE_TIMEOUT", time.Minute, &cfg.HTTPIdleTimeout},
	}
	for _, d := range durations {
		v, err := getDuration(d.key, d.def)
		if err != nil {
			return nil, err
		}
		*d.dst = v
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.Env == "prod" && !cfg.CookieSecure {
		return nil, fmt.Errorf("COOKIE_SECURE must be enabled when ENV=prod")
	}

	return cfg, nil
}

// IsDev reports whether degraded fallbacks (memory stores, noop publisher) are allowed.
func (c *Config) IsDev() bool {
	return c.Env == "dev" || c.Env == "test"
}

func defaultOrigins(frontend string) []string {
	origins := []string{frontend}
	// the frontend is commonly opened on either loopback name during development
	switch {
	case strings.Contains(frontend, "127.0.0.1"):
		origins = append(origins, strings.Replace(frontend, "127.0.0.1", "localhost", 1))
	case strings.Contains(frontend, "localhost"):
		origins = append(origins, strings.Replace(frontend, "localhost", "127.0.0.1", 1))
	}
	return origins
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimRight(strings.TrimSpace(part), "/"); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %q: %w", key, v, err)
	}
	return b, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %q: %w", key, v, err)
	}
	return n, nil
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %q: %w", key, v, err)
	}
	return d, nil
}
