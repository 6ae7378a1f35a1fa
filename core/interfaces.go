package core

import (
	"context"
	"time"
)

// Ports define interfaces for external dependencies.

// ============================================
// STORAGE PORTS (Database operations)
// ============================================

// UserStorage defines user-related database operations.
type UserStorage interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUserByLogin matches the identifier against username OR email.
	GetUserByLogin(ctx context.Context, identifier string) (*User, error)

	// SetUserVerified stamps VerifiedAt for the user.
	SetUserVerified(ctx context.Context, userID string, at time.Time) error

	// DeleteUser removes the user. Sessions and verification requests
	// cascade away with the row.
	DeleteUser(ctx context.Context, id string) error
}

// SessionStorage defines session persistence.
type SessionStorage interface {
	CreateSession(ctx context.Context, session *Session) error

	// ValidateSession loads the session and its owning user by session ID
	// and applies the expiry policy in a single transaction:
	//
	//   - absent row: ErrSessionNotFound
	//   - now past ExpiresAt: delete the row, ErrSessionNotFound
	//   - now past ExpiresAt - lifetime/2: extend ExpiresAt to now+lifetime
	//     and persist before returning
	//
	// Two concurrent calls must never both renew, and neither may observe a
	// session another call just deleted; implementations without
	// transactions must provide equivalent isolation.
	ValidateSession(ctx context.Context, sessionID string, lifetime time.Duration) (*Session, *User, error)

	// DeleteSession removes the session; deleting an absent session is not
	// an error.
	DeleteSession(ctx context.Context, sessionID string) error

	DeleteUserSessions(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes every session past its expiry and
	// returns how many rows went away.
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// VerificationStorage defines verification request persistence.
type VerificationStorage interface {
	CreateVerificationRequest(ctx context.Context, r *VerificationRequest) error

	// GetVerificationRequest is scoped to both the user and the request id
	// so ids cannot be guessed across users.
	GetVerificationRequest(ctx context.Context, userID, id string) (*VerificationRequest, error)

	DeleteUserVerificationRequests(ctx context.Context, userID string) error
}

// AuthStorage is the full storage surface the library needs.
type AuthStorage interface {
	UserStorage
	SessionStorage
	VerificationStorage
}

// ============================================
// RATE LIMITER PORTS
// ============================================

// Bucket is a refilling token bucket keyed per identifier. Consume must be
// atomic with respect to concurrent callers for the same key and must not
// mutate state when it rejects.
type Bucket interface {
	Consume(ctx context.Context, key string, cost int) (bool, error)
}

// Throttle enforces exponentially increasing wait times between consecutive
// failures for a key. Reset restores the key to the initial ungated state
// and must be called after a verified-successful authentication.
type Throttle interface {
	Consume(ctx context.Context, key string) (bool, error)
	Reset(ctx context.Context, key string) error
}

// ============================================
// EMAIL PORT
// ============================================

// Mailer delivers verification codes. The transport is the caller's choice.
type Mailer interface {
	SendVerificationCode(ctx context.Context, to, code string) error
}
