package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the storage layer reacts to.
const (
	CodeUniqueViolation = "23505"
	CodeUndefinedTable  = "42P01"
)

// IsUniqueViolation reports whether err is a PostgreSQL unique-key conflict.
func IsUniqueViolation(err error) bool {
	return hasCode(err, CodeUniqueViolation)
}

// IsUndefinedTable reports whether err means the schema has not been migrated.
func IsUndefinedTable(err error) bool {
	return hasCode(err, CodeUndefinedTable)
}

// ConstraintName returns the violated constraint, if any.
func ConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
