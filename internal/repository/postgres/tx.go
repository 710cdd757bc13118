package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"evently-backend/internal/logger"
)

type txFn func(ctx context.Context, tx *sql.Tx) error

// runInTx executes fn inside a transaction. The transaction is rolled back
// when fn returns an error or panics, and committed otherwise.
func runInTx(ctx context.Context, db *sql.DB, fn txFn) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Error("Failed to roll back transaction after panic", "error", rbErr, "panic", p)
			}
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error("Failed to roll back transaction", "rollback_error", rbErr, "error", err)
			return fmt.Errorf("error rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapError(err))
	}
	return nil
}
