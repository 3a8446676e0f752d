package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// Transactor runs fn inside one transaction: fn's error rolls everything back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) error
}

type postgresTransactor struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPostgresTransactor(db *sql.DB, logger *slog.Logger) Transactor {
	return &postgresTransactor{db: db, logger: logger}
}

func (t *postgresTransactor) WithinTx(ctx context.Context, fn func(exec SQLExecutor) error) (txErr error) {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		} else if txErr != nil {
			t.logger.DebugContext(ctx, "rolling back transaction", slog.Any("error", txErr))
			if rbErr := tx.Rollback(); rbErr != nil {
				t.logger.ErrorContext(ctx, "rollback failed", slog.Any("error", rbErr), slog.Any("original_error", txErr))
				txErr = fmt.Errorf("transaction processing error: %w (rollback also failed: %v)", txErr, rbErr)
			}
		} else if cErr := tx.Commit(); cErr != nil {
			t.logger.ErrorContext(ctx, "commit failed", slog.Any("error", cErr))
			txErr = fmt.Errorf("failed to commit transaction: %w", cErr)
		}
	}()

	txErr = fn(tx)
	return txErr
}
