package postgres

import (
	"context"
	"database/sql"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

// Schema is the users table. The unique constraint is what makes
// find-or-create safe across processes.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id               BIGSERIAL PRIMARY KEY,
    provider         TEXT        NOT NULL,
    provider_user_id TEXT        NOT NULL,
    username         TEXT        NOT NULL DEFAULT '',
    email            TEXT        NULL,
    avatar_url       TEXT        NULL,
    access_token     TEXT        NULL,
    refresh_token    TEXT        NULL,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT users_provider_identity_key UNIQUE (provider, provider_user_id)
);
`

// EnsureSchema creates the users table when it is missing. Safe to run on every start.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return domain.ErrDatabase(err)
	}
	return nil
}
