// Package orders persists confirmed orders to an append-only log.
package orders

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the backing medium cannot be written.
var ErrUnavailable = errors.New("order storage unavailable")

// Order is the immutable record of a completed conversation.
type Order struct {
	UserID   int64  `db:"user_id"`
	Category string `db:"category"`
	Product  string `db:"product"`
	Quantity int    `db:"quantity"`
	// DeliveryDate is the normalized dd-mm-yyyy form entered by the user.
	DeliveryDate string    `db:"delivery_date"`
	CreatedAt    time.Time `db:"created_at"`
}

// Store durably records confirmed orders. Implementations must make each
// append atomic at the record level; no update or delete operations exist.
type Store interface {
	Append(ctx context.Context, order Order) error
}
