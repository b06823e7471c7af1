package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"orderbot/core/logger"
)

const insertOrder = `
	INSERT INTO orders (user_id, category, product, quantity, delivery_date, created_at)
	VALUES (:user_id, :category, :product, :quantity, :delivery_date, :created_at)`

// PostgresStore appends orders to the orders table. Row inserts are atomic,
// so no additional serialization is needed across conversations.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Append inserts one order row.
func (s *PostgresStore) Append(ctx context.Context, order Order) error {
	start := time.Now()
	if _, err := s.db.NamedExecContext(ctx, insertOrder, order); err != nil {
		logger.Store.Error("order insert failed",
			slog.String("event", "store.append"),
			slog.String("backend", "postgres"),
			slog.Int64("user_id", order.UserID),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("%w: insert order: %v", ErrUnavailable, err)
	}
	logger.Store.Info("order appended",
		slog.String("event", "store.append"),
		slog.String("backend", "postgres"),
		slog.Int64("user_id", order.UserID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}
