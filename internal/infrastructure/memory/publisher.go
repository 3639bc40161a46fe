package memory

import (
	"context"

	zlog "github.com/rs/zerolog/log"

	"github.com/baechuer/paas-platform/services/auth-service/internal/application/auth"
)

// NoopPublisher logs events instead of sending them. Used when RABBIT_URL is unset.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

func (p *NoopPublisher) PublishUserProvisioned(ctx context.Context, evt auth.UserProvisionedEvent) error {
	zlog.Info().
		Str("component", "noop-pub").
		Int64("user_id", evt.UserID).
		Str("provider", string(evt.Provider)).
		Msg("user provisioned (not published)")
	return nil
}
