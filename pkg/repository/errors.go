package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrConstraint reports a row rejected by a CHECK or NOT NULL constraint.
var ErrConstraint = errors.New("constraint violation")

// PostgreSQL SQLSTATE codes.
const (
	codeNotNull = "23502"
	codeUnique  = "23505"
	codeCheck   = "23514"
)

// MapError translates driver errors into domain errors: sql.ErrNoRows
// becomes notFound, a unique violation becomes duplicate, and CHECK or
// NOT NULL violations wrap ErrConstraint with the constraint name.
// Anything else is returned unchanged.
func MapError(err error, notFound, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUnique:
		return duplicate
	case codeCheck, codeNotNull:
		name := pgErr.ConstraintName
		if name == "" {
			name = pgErr.ColumnName
		}
		return fmt.Errorf("%w: %s", ErrConstraint, name)
	}
	return err
}
