package store

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/roach88/mallstore/internal/gateway"
)

// pqUniqueViolation is the SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

// mapError translates driver errors into gateway sentinels, keeping the
// driver error in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey {
			return fmt.Errorf("%w: %v", gateway.ErrUniqueViolation, err)
		}
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) == pqUniqueViolation {
			return fmt.Errorf("%w: %s", gateway.ErrUniqueViolation, pqErr.Message)
		}
		return err
	}

	if errors.Is(err, driver.ErrBadConn) {
		return fmt.Errorf("%w: %v", gateway.ErrUnavailable, err)
	}

	return err
}
