package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avennor/sluice/core"
)

func (a *Adapter) CreateVerificationRequest(ctx context.Context, r *core.VerificationRequest) error {
	q := `INSERT INTO verification_requests (id, user_id, email, code, created_at, expires_at)
	      VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := a.pool.Exec(ctx, q, r.ID, r.UserID, r.Email, r.Code, r.CreatedAt, r.ExpiresAt)
	return err
}

func (a *Adapter) GetVerificationRequest(ctx context.Context, userID, id string) (*core.VerificationRequest, error) {
	// Scoped to both fields so request ids cannot be guessed across users.
	q := `SELECT id, user_id, email, code, created_at, expires_at
	      FROM verification_requests
	      WHERE id = $1 AND user_id = $2`

	r := &core.VerificationRequest{}
	err := a.pool.QueryRow(ctx, q, id, userID).Scan(
		&r.ID, &r.UserID, &r.Email, &r.Code, &r.CreatedAt, &r.ExpiresAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, core.ErrVerificationNotFound
		}
		return nil, err
	}
	return r, nil
}

func (a *Adapter) DeleteUserVerificationRequests(ctx context.Context, userID string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM verification_requests WHERE user_id = $1`, userID)
	return err
}
