package storage

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("storage: not found")

// ErrMultipleFound is returned when a lookup that should identify one row
// matches several.
var ErrMultipleFound = errors.New("storage: multiple found")

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("storage: duplicate")

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
