package services

import (
	"context"
	"fmt"
	"time"

	"github.com/avennor/sluice/core"
	"github.com/avennor/sluice/pkg/crypto"
)

// SessionConfig tunes session lifetime.
type SessionConfig struct {
	// Lifetime is how long a session lives without renewal.
	Lifetime time.Duration
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Lifetime: 7 * 24 * time.Hour,
	}
}

// SessionManager issues, validates, renews and invalidates sessions.
//
// A session row stores only the SHA-256 hash of the bearer token; the token
// itself goes to the client and is never persisted. Validation renews the
// expiry once the session passes the midpoint of its validity window, so an
// active session is rewritten at most once per half-lifetime rather than on
// every request.
type SessionManager struct {
	config  SessionConfig
	storage core.SessionStorage
}

func NewSessionManager(config SessionConfig, storage core.SessionStorage) *SessionManager {
	if config.Lifetime <= 0 {
		config.Lifetime = DefaultSessionConfig().Lifetime
	}
	return &SessionManager{config: config, storage: storage}
}

// Lifetime returns the configured session lifetime.
func (sm *SessionManager) Lifetime() time.Duration {
	return sm.config.Lifetime
}

// GenerateToken returns a fresh bearer token for use with Create.
func (sm *SessionManager) GenerateToken() (string, error) {
	return crypto.GenerateToken()
}

// Create persists a new session for the user under the token's hash.
func (sm *SessionManager) Create(ctx context.Context, token, userID string) (*core.Session, error) {
	now := time.Now()
	session := &core.Session{
		ID:        crypto.HashToken(token),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(sm.config.Lifetime),
	}

	if err := sm.storage.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Validate re-derives the session ID from the token and checks it against
// storage. Expired sessions are deleted on read; sessions past the halflife
// of their window come back with the expiry already extended. Missing and
// expired sessions are indistinguishable to the caller.
func (sm *SessionManager) Validate(ctx context.Context, token string) (*core.Session, *core.User, error) {
	if token == "" {
		return nil, nil, core.ErrSessionNotFound
	}

	sessionID := crypto.HashToken(token)

	session, user, err := sm.storage.ValidateSession(ctx, sessionID, sm.config.Lifetime)
	if err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

// Invalidate deletes the session; deleting an already-gone session is fine.
func (sm *SessionManager) Invalidate(ctx context.Context, sessionID string) error {
	if err := sm.storage.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// InvalidateUserSessions deletes every session belonging to the user.
func (sm *SessionManager) InvalidateUserSessions(ctx context.Context, userID string) error {
	if err := sm.storage.DeleteUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// InvalidateExpired sweeps sessions past their expiry. Validation already
// self-heals on read, so this is housekeeping and safe to run
// opportunistically after any auth mutation.
func (sm *SessionManager) InvalidateExpired(ctx context.Context) (int64, error) {
	count, err := sm.storage.DeleteExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return count, nil
}
