package audit

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	appCtx "github.com/baechuer/paas-platform/services/auth-service/internal/pkg/context"
)

// Logger provides structured audit logging for auth business events
type Logger struct {
	log zerolog.Logger
}

// New creates a new audit logger
func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

var warnActions = map[string]struct{}{
	"login_failed":   {},
	"publish_failed": {},
}

var messages = map[string]string{
	"oauth_begin":     "OAuth flow started",
	"login_denied":    "User declined provider consent",
	"login_failed":    "OAuth login failed",
	"login_succeeded": "User logged in",
	"logout":          "User logged out",
	"publish_failed":  "Event publish failed",
}

// Record is an auth.AuditFunc.
func (l *Logger) Record(ctx context.Context, action string, fields map[string]string) {
	ev := l.log.Info()
	if _, ok := warnActions[action]; ok {
		ev = l.log.Warn()
	}

	ev = ev.Str("action", action).Str("request_id", appCtx.GetRequestID(ctx))
	for k, v := range fields {
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}

	msg, ok := messages[action]
	if !ok {
		msg = action
	}
	ev.Msg(msg)
}

// maskEmail partially masks email for privacy in logs
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
