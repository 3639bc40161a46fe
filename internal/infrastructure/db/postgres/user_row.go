package postgres

import (
	"database/sql"
	"time"

	"github.com/baechuer/paas-platform/services/auth-service/internal/domain"
)

type userRow struct {
	ID             int64
	Provider       string
	ProviderUserID string
	Username       string
	Email          sql.NullString
	AvatarURL      sql.NullString
	AccessToken    sql.NullString
	RefreshToken   sql.NullString
	CreatedAt      time.Time
}

const userColumns = `id, provider, provider_user_id, username, email, avatar_url, access_token, refresh_token, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (userRow, error) {
	var ur userRow
	err := row.Scan(
		&ur.ID,
		&ur.Provider,
		&ur.ProviderUserID,
		&ur.Username,
		&ur.Email,
		&ur.AvatarURL,
		&ur.AccessToken,
		&ur.RefreshToken,
		&ur.CreatedAt,
	)
	return ur, err
}

func nullPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func (r *UserRepo) toDomainUser(ur userRow) domain.User {
	return domain.User{
		ID:             ur.ID,
		Provider:       domain.Provider(ur.Provider),
		ProviderUserID: ur.ProviderUserID,
		Username:       ur.Username,
		Email:          nullPtr(ur.Email),
		AvatarURL:      nullPtr(ur.AvatarURL),
		AccessToken:    r.openToken(ur.AccessToken),
		RefreshToken:   r.openToken(ur.RefreshToken),
		CreatedAt:      ur.CreatedAt,
	}
}
