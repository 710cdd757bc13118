package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"evently-backend/internal/repository"
)

// PostgreSQL error codes
const (
	uniqueViolationCode      = "23505"
	foreignKeyViolationCode  = "23503"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
)

// mapError translates driver errors into repository sentinels, keeping the original in the chain.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", repository.ErrNotFound, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case uniqueViolationCode:
			return fmt.Errorf("%w: %s: %v", repository.ErrConflict, pqErr.Constraint, err)
		case serializationFailureCode, deadlockDetectedCode:
			return fmt.Errorf("%w: %v", repository.ErrSerialization, err)
		}
	}

	return err
}

// isUniqueViolation reports whether err is a unique constraint violation, optionally on a named constraint.
func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolationCode {
		return false
	}
	return constraint == "" || pqErr.Constraint == constraint
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolationCode
}
