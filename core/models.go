package core

import "time"

// User represents a registered account.
//
// VerifiedAt is nil until the user confirms their email address. Unverified
// users may hold a session but should be kept away from protected content.
type User struct {
	ID           string     `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	CreatedAt    time.Time  `json:"createdAt"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`
}

// Verified reports whether the user has confirmed their email address.
func (u *User) Verified() bool {
	return u.VerifiedAt != nil
}

// Session represents an active login session.
//
// ID is the SHA-256 hex digest of the bearer token. The token itself is
// never persisted; it exists only in the client's cookie.
type Session struct {
	ID        string    `json:"-"` // Never expose in JSON (it indexes the row)
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// VerificationRequest is a short-lived one-time code bound to a user and an
// email address. At most one live request exists per user; creating a new
// one supersedes all prior requests.
type VerificationRequest struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Code      string    `json:"-"` // Never expose in JSON
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionData combines user and session info.
// The model returned to clients.
type SessionData struct {
	User    *User    `json:"user"`
	Session *Session `json:"session"`
}
