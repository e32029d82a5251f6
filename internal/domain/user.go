package domain

import "time"

// ============================================================================
// Session
// ============================================================================

const (
	// SessionCookieName is the cookie carrying the bearer token
	SessionCookieName = "auth_token"

	// SessionLifetime is how long a session cookie stays in the browser
	SessionLifetime = 7 * 24 * time.Hour
)

// ============================================================================
// User
// ============================================================================

// User is the profile returned by the backend for an authenticated token.
// CreatedAt is kept as the backend's string so it survives a decode/encode
// round trip unchanged.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt string `json:"created_at"`
	Name      string `json:"name,omitempty"`
}

// DisplayName prefers the full name over the login
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}
