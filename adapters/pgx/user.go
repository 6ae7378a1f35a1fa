package pgx

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/avennor/sluice/core"
)

const userCols = `id, username, email, password_hash, created_at, verified_at`

func scanUser(row pgx.Row) (*core.User, error) {
	u := &core.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.VerifiedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (a *Adapter) CreateUser(ctx context.Context, user *core.User) error {
	q := `INSERT INTO users (id, username, email, password_hash, created_at)
	      VALUES ($1, $2, $3, $4, $5)`

	_, err := a.pool.Exec(ctx, q, user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt)
	if err != nil {
		if uniqueViolation(err, "users_username_key") {
			return core.ErrUsernameTaken
		}
		if uniqueViolation(err, "users_email_key") {
			return core.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (a *Adapter) GetUserByID(ctx context.Context, id string) (*core.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE id = $1`

	user, err := scanUser(a.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (a *Adapter) GetUserByLogin(ctx context.Context, identifier string) (*core.User, error) {
	q := `SELECT ` + userCols + ` FROM users WHERE username = $1 OR email = $1 LIMIT 1`

	user, err := scanUser(a.pool.QueryRow(ctx, q, identifier))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (a *Adapter) SetUserVerified(ctx context.Context, userID string, at time.Time) error {
	tag, err := a.pool.Exec(ctx, `UPDATE users SET verified_at = $1 WHERE id = $2`, at, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

func (a *Adapter) DeleteUser(ctx context.Context, id string) error {
	// Sessions and verification requests cascade via foreign keys.
	_, err := a.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
