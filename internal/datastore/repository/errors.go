// Package repository provides data access interfaces and their GORM
// implementations.
package repository

import (
	"github.com/mattn/go-sqlite3"

	"github.com/go-sql-driver/mysql"

	"github.com/debatetab/debatetab/internal/errors"
)

// Sentinel errors for repository operations.
// Callers distinguish failure modes with errors.Is instead of GORM errors.
var (
	// ErrTournamentNotFound indicates the requested tournament does not exist.
	ErrTournamentNotFound = errors.NewStd("tournament not found")

	// ErrRoundNotFound indicates the requested round does not exist in the tournament.
	ErrRoundNotFound = errors.NewStd("round not found")

	// ErrSpeakerNotFound indicates the requested speaker does not exist.
	ErrSpeakerNotFound = errors.NewStd("speaker not found")

	// ErrDuplicateKey indicates a unique constraint violation.
	ErrDuplicateKey = errors.NewStd("duplicate key")

	// ErrInvalidInput indicates invalid input parameters.
	ErrInvalidInput = errors.NewStd("invalid input")
)

// mysqlDuplicateEntry is the MySQL error number for a unique key violation.
const mysqlDuplicateEntry = 1062

// isDuplicateKey reports whether err is a unique constraint violation on
// either supported backend.
func isDuplicateKey(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == mysqlDuplicateEntry
	}
	return false
}

// dbError wraps a database error with repository context.
func dbError(err error, operation string) error {
	if isDuplicateKey(err) {
		return errors.New(errors.Join(ErrDuplicateKey, err)).
			Component("datastore").
			Category(errors.CategoryConflict).
			Context("operation", operation).
			Build()
	}
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("operation", operation).
		Build()
}
