package http_handlers

import (
	"net/http"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
	"github.com/baechuer/paas-platform/services/auth-service/internal/transport/http/response"
)

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	logFailure(r, err)
	response.WriteError(w, r, err)
}

// logFailure logs server-side failures with their cause; 4xx outcomes are
// already covered by the access log and audit trail.
func logFailure(r *http.Request, err error) {
	status := response.StatusFromKind(domain.KindOf(err))
	if status < 500 {
		return
	}
	zlog.Error().
		Err(err).
		Str("request_id", response.RequestIDFromContext(r)).
		Int("status", status).
		Msg("request failed")
}
