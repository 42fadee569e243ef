package queries

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderView is the read model of an order. Values are shared through the
// cache, so they are never mutated after a handler returns them.
type OrderView struct {
	ID          kernel.UUID
	OrderNumber string
	Customer    string
	Product     string
	Quantity    int
	Status      order.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// StatusHistoryView is one entry of an order's status history.
type StatusHistoryView struct {
	Status    order.Status
	Notes     string
	CreatedAt time.Time
}

// OrderStatusView is the current status of an order together with its full
// history, oldest entry first.
type OrderStatusView struct {
	OrderID       kernel.UUID
	OrderNumber   string
	Customer      string
	Product       string
	Quantity      int
	CurrentStatus order.Status
	History       []StatusHistoryView
}

const orderColumns = `id, order_number, customer, product, quantity, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrderView(row rowScanner) (OrderView, error) {
	var (
		view   OrderView
		rawID  uuid.UUID
		status string
	)

	if err := row.Scan(
		&rawID,
		&view.OrderNumber,
		&view.Customer,
		&view.Product,
		&view.Quantity,
		&status,
		&view.CreatedAt,
		&view.UpdatedAt,
	); err != nil {
		return OrderView{}, err
	}

	id, err := kernel.UUIDFromRaw(rawID)
	if err != nil {
		return OrderView{}, err
	}
	view.ID = id
	view.Status = order.Status(status)
	view.CreatedAt = view.CreatedAt.UTC()
	view.UpdatedAt = view.UpdatedAt.UTC()

	return view, nil
}
