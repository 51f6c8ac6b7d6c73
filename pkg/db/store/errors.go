package store

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mwantia/sham/pkg/fault"
	"gorm.io/gorm"

	sqlitedriver "github.com/glebarez/go-sqlite"
)

// sqliteConstraint is the primary result code SQLITE_CONSTRAINT; extended
// codes keep it in the low byte.
const sqliteConstraint = 19

// classify wraps a database error with its fault class. Constraint
// violations are not pre-validated, they are recognised from the driver.
func classify(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case isConstraintViolation(err):
		return fault.Wrap(fault.ErrConstraintViolation, err, format, args...)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fault.Wrap(fault.ErrNotFound, err, format, args...)
	default:
		return fault.Wrap(fault.ErrDB, err, format, args...)
	}
}

func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}

	var sqliteErr *sqlitedriver.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xff == sqliteConstraint
	}

	// SQLSTATE class 23: integrity constraint violation
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "23")
	}

	return false
}
