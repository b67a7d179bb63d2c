// Package repository keeps the in-memory board of open orders.
package repository

import (
	"context"

	"github.com/okian/ordertriage/internal/domain/board"
	"github.com/okian/ordertriage/internal/domain/model"
	"github.com/okian/ordertriage/internal/domain/types"
)

// Store provides read/write access to the board. Writes are last-write-wins;
// nothing is persisted.
type Store interface {
	// Upsert stores o on the queue implied by its escalation state.
	// Returns true if the order was not on the board before.
	Upsert(ctx context.Context, o model.Order) (bool, error)

	// Remove drops an order from whichever queue holds it.
	Remove(ctx context.Context, orderID string) (bool, error)

	// Replace swaps the whole content of one queue, as after a backend poll.
	Replace(ctx context.Context, role types.Role, orders []model.Order) error

	// Get returns ErrNotFound if the order is unknown.
	Get(ctx context.Context, orderID string) (model.Order, types.Role, error)

	// Orders returns a copy of the orders on a queue.
	Orders(ctx context.Context, role types.Role) []model.Order

	// TopN ranks a queue for the given view.
	TopN(ctx context.Context, view board.View) ([]types.Entry, []board.Skipped, error)

	// Count returns the number of orders on a queue, or on both for "".
	Count(ctx context.Context, role types.Role) int

	// Close stops background work.
	Close() error
}

var _ Store = (*BoardStore)(nil)
