package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avennor/sluice/core"
)

func (a *Adapter) CreateSession(ctx context.Context, session *core.Session) error {
	q := `INSERT INTO sessions (id, user_id, created_at, expires_at)
	      VALUES ($1, $2, $3, $4)`

	_, err := a.pool.Exec(ctx, q, session.ID, session.UserID, session.CreatedAt, session.ExpiresAt)
	return err
}

// ValidateSession runs the whole read-check-write sequence in one
// transaction with the session row locked, so two concurrent requests can
// neither both renew nor revive a session the other just deleted.
func (a *Adapter) ValidateSession(ctx context.Context, sessionID string, lifetime time.Duration) (*core.Session, *core.User, error) {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback(ctx)

	q := `SELECT s.id, s.user_id, s.created_at, s.expires_at,
	             u.id, u.username, u.email, u.password_hash, u.created_at, u.verified_at
	      FROM sessions s
	      JOIN users u ON u.id = s.user_id
	      WHERE s.id = $1
	      FOR UPDATE OF s`

	session := &core.Session{}
	user := &core.User{}
	err = tx.QueryRow(ctx, q, sessionID).Scan(
		&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt,
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.VerifiedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, core.ErrSessionNotFound
		}
		return nil, nil, err
	}

	now := time.Now()

	// Expired: delete on read and report as never-existed.
	if !now.Before(session.ExpiresAt) {
		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, session.ID); err != nil {
			return nil, nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, nil, err
		}
		return nil, nil, core.ErrSessionNotFound
	}

	// Past the halflife: extend the expiry. Doing this only past the
	// midpoint bounds writes to at most one renewal per half-lifetime.
	if !now.Before(session.ExpiresAt.Add(-lifetime / 2)) {
		session.ExpiresAt = now.Add(lifetime)
		if _, err := tx.Exec(ctx, `UPDATE sessions SET expires_at = $1 WHERE id = $2`, session.ExpiresAt, session.ID); err != nil {
			return nil, nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, err
	}

	return session, user, nil
}

func (a *Adapter) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID)
	return err
}

func (a *Adapter) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	return err
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < now()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
