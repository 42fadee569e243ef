package ports

import (
	"context"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
)

// OrderRepository defines the persistence contract for order aggregates and
// their status history. An order and its history entries are always written
// together.
type OrderRepository interface {
	// Add persists a new order with its pending history entries.
	// Returns errs.ObjectAlreadyExistsError when the order number is taken.
	// A failed Add leaves the surrounding transaction usable.
	Add(ctx context.Context, aggregate *order.Order) error

	// Update persists status and updated_at together with the pending history entries.
	Update(ctx context.Context, aggregate *order.Order) error

	// Get retrieves an order with its full history, oldest entry first.
	// Returns errs.ObjectNotFoundError when the order does not exist.
	Get(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// GetForUpdate is Get holding a row lock on the order until the transaction ends.
	GetForUpdate(ctx context.Context, id kernel.UUID) (*order.Order, error)

	// ExistsByOrderNumber reports whether the business key is already used,
	// including rows written earlier in the same transaction.
	ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error)

	// SaveDeliveryProgress stores the delivery job state of an order.
	// Returns errs.ObjectNotFoundError when the order does not exist.
	SaveDeliveryProgress(ctx context.Context, id kernel.UUID, progress DeliveryProgress) error

	// FindResumable returns orders whose delivery job should be running but may
	// have been lost, least recently updated first.
	FindResumable(ctx context.Context, criteria ResumeCriteria) ([]ResumableOrder, error)
}

// DeliveryProgress is the delivery job state kept with an order, so a job lost
// with the process can continue where it stopped.
type DeliveryProgress struct {
	// Attempts is the number of finished delivery attempts.
	Attempts int
	// NextAttemptAt is when the next attempt is due. Zero means none is scheduled.
	NextAttemptAt time.Time
}

// ResumeCriteria selects orders for recovery.
type ResumeCriteria struct {
	// StaleBefore picks pending and processing orders not updated since.
	StaleBefore time.Time
	// RetryDueBy picks failed orders whose scheduled retry is due by then.
	RetryDueBy time.Time
	// MaxAttempts leaves out failed orders that used every attempt.
	MaxAttempts int
	Limit       int
}

// ResumableOrder is an order whose job restarts at attempt Attempts+1.
type ResumableOrder struct {
	ID       kernel.UUID
	Attempts int
}
