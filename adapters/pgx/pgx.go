// Package pgx provides a PostgreSQL storage adapter backed by pgxpool.
// The expected schema ships in schema.sql.
package pgx

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avennor/sluice/core"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ core.AuthStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}

// uniqueViolation reports whether err is a violation of the named unique
// constraint.
func uniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}
