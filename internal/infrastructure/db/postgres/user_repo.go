package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

const uniqueViolation = "23505"

// UserRepo keeps provider tokens sealed in their columns.
type UserRepo struct {
	db     *sql.DB
	sealer TokenSealer
}

func NewUserRepo(db *sql.DB, sealer TokenSealer) *UserRepo {
	return &UserRepo{db: db, sealer: sealer}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ---------- auth.UserStore ----------

// FindOrCreate returns the row for the identity, inserting it on first sight.
// Two racing inserts are settled by UNIQUE (provider, provider_user_id):
// the loser re-reads the winner's row and reports created=false.
func (r *UserRepo) FindOrCreate(ctx context.Context, nu domain.NewUser) (domain.User, bool, error) {
	nu.ProviderUserID = strings.TrimSpace(nu.ProviderUserID)
	if nu.Provider == "" {
		return domain.User{}, false, domain.ErrMissingField("provider")
	}
	if nu.ProviderUserID == "" {
		return domain.User{}, false, domain.ErrMissingField("provider_user_id")
	}

	u, err := r.getByIdentity(ctx, nu.Provider, nu.ProviderUserID)
	if err == nil {
		return u, false, nil
	}
	if !domain.Is(err, "user_not_found") {
		return domain.User{}, false, err
	}

	access, err := r.sealToken(nu.AccessToken)
	if err != nil {
		return domain.User{}, false, err
	}
	refresh, err := r.sealToken(nu.RefreshToken)
	if err != nil {
		return domain.User{}, false, err
	}

	const q = `
INSERT INTO users (provider, provider_user_id, username, email, avatar_url, access_token, refresh_token)
VALUES ($1,$2,$3,$4,$5,$6,$7)
RETURNING ` + userColumns + `;
`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q,
		string(nu.Provider),
		nu.ProviderUserID,
		nu.Username,
		nu.Email,
		nu.AvatarURL,
		access,
		refresh,
	))
	if err != nil {
		if isUniqueViolation(err) {
			u, err := r.getByIdentity(ctx, nu.Provider, nu.ProviderUserID)
			if err != nil {
				return domain.User{}, false, err
			}
			return u, false, nil
		}
		return domain.User{}, false, domain.ErrDatabase(err)
	}
	return r.toDomainUser(ur), true, nil
}

func (r *UserRepo) UpdateTokens(ctx context.Context, provider domain.Provider, providerUserID, accessToken string, refreshToken *string) (domain.User, error) {
	const q = `
UPDATE users
SET access_token = $3, refresh_token = $4
WHERE provider = $1 AND provider_user_id = $2
RETURNING ` + userColumns + `;
`
	access, err := r.sealToken(&accessToken)
	if err != nil {
		return domain.User{}, err
	}
	refresh, err := r.sealToken(refreshToken)
	if err != nil {
		return domain.User{}, err
	}
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, string(provider), providerUserID, access, refresh))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDatabase(err)
	}
	return r.toDomainUser(ur), nil
}

func (r *UserRepo) getByIdentity(ctx context.Context, provider domain.Provider, providerUserID string) (domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE provider = $1 AND provider_user_id = $2
LIMIT 1;
`
	ur, err := scanUser(r.db.QueryRowContext(ctx, q, string(provider), providerUserID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound()
		}
		return domain.User{}, domain.ErrDatabase(err)
	}
	return r.toDomainUser(ur), nil
}
