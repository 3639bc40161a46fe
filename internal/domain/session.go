package domain

// SessionUser is the authenticated identity stored in a session.
// It is written whole on login and removed whole on logout.
type SessionUser struct {
	UserID       int64
	Username     string
	Email        *string
	Provider     Provider
	AccessToken  string
	RefreshToken *string
}

// NewSessionUser derives the session view of u plus the live tokens of the current login.
func NewSessionUser(u User, tok OAuthToken) SessionUser {
	return SessionUser{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Provider:     u.Provider,
		AccessToken:  tok.AccessToken,
		RefreshToken: StrPtr(tok.RefreshToken),
	}
}
