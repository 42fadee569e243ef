package ports

import (
	"context"

	"orderflow/internal/core/domain/model/kernel"
)

// DeliveryJobQueue schedules one delivery job per order id.
type DeliveryJobQueue interface {
	// Enqueue returns as soon as the job is scheduled. Enqueuing an order that
	// already has an active job is a no-op.
	Enqueue(ctx context.Context, orderID kernel.UUID) error
}
