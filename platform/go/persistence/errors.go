package persistence

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// foreignKeyViolation returns the violated constraint name, if err is a foreign key violation.
func foreignKeyViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// referenceErrorFor maps a foreign key or range check violation on the events table to the matching sentinel.
func referenceErrorFor(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation && strings.Contains(pgErr.ConstraintName, "end_not_before_start") {
		return ErrInvalidEventRange
	}
	constraint, ok := foreignKeyViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(constraint, "client"):
		return ErrInvalidClientRef
	case strings.Contains(constraint, "studio"):
		return ErrInvalidStudioRef
	case strings.Contains(constraint, "owner"):
		return ErrPhotographerNotFound
	default:
		return nil
	}
}
