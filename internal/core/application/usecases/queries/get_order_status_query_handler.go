package queries

import (
	"context"
	"database/sql"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
)

// GetOrderStatusQueryHandler always reads from the database. Status is what
// clients poll while delivery is in flight, so it bypasses the cache.
type GetOrderStatusQueryHandler struct {
	db *gorm.DB
}

func NewGetOrderStatusQueryHandler(db *gorm.DB) GetOrderStatusQueryHandler {
	return GetOrderStatusQueryHandler{db: db}
}

// Handle returns the order's status with history ordered by creation time,
// ties broken by insertion order. Both reads share one read-only transaction,
// so the current status always matches the last history entry.
func (h GetOrderStatusQueryHandler) Handle(ctx context.Context, query GetOrderStatusQuery) (OrderStatusView, error) {
	if err := query.Validate(); err != nil {
		return OrderStatusView{}, err
	}

	var result OrderStatusView
	err := h.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = readOrderStatus(tx, query.OrderID())
		return err
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return OrderStatusView{}, err
	}
	return result, nil
}

func readOrderStatus(tx *gorm.DB, orderID kernel.UUID) (OrderStatusView, error) {
	id := orderID.Raw()

	view, err := scanOrderView(tx.Raw(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ?
	`, id).Row())
	if errors.Is(err, sql.ErrNoRows) {
		return OrderStatusView{}, errs.NewObjectNotFoundError("orderID", orderID.String())
	}
	if err != nil {
		return OrderStatusView{}, err
	}

	rows, err := tx.Raw(`
		SELECT
			status,
			notes,
			created_at
		FROM order_status_history
		WHERE order_id = ?
		ORDER BY created_at ASC, seq ASC
	`, id).Rows()
	if err != nil {
		return OrderStatusView{}, err
	}
	defer rows.Close()

	history := make([]StatusHistoryView, 0)
	for rows.Next() {
		var (
			entry  StatusHistoryView
			status string
			notes  sql.NullString
		)
		if err = rows.Scan(&status, &notes, &entry.CreatedAt); err != nil {
			return OrderStatusView{}, err
		}
		entry.Status = order.Status(status)
		entry.Notes = notes.String
		entry.CreatedAt = entry.CreatedAt.UTC()
		history = append(history, entry)
	}
	if err = rows.Err(); err != nil {
		return OrderStatusView{}, err
	}

	return OrderStatusView{
		OrderID:       view.ID,
		OrderNumber:   view.OrderNumber,
		Customer:      view.Customer,
		Product:       view.Product,
		Quantity:      view.Quantity,
		CurrentStatus: view.Status,
		History:       history,
	}, nil
}
