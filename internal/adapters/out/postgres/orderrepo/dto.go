package orderrepo

import (
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/google/uuid"
)

// OrderDTO is the row of the orders table. The order number carries a unique
// index, which is the last line of defence against duplicate imports racing
// each other.
type OrderDTO struct {
	ID          uuid.UUID          `gorm:"type:uuid;primaryKey"`
	OrderNumber string             `gorm:"size:50;not null;uniqueIndex"`
	Customer    string             `gorm:"size:255;not null"`
	Product     string             `gorm:"size:255;not null"`
	Quantity    int                `gorm:"not null"`
	Status      string             `gorm:"size:20;not null;index:idx_orders_status_updated,priority:1"`
	CreatedAt   time.Time          `gorm:"not null;autoCreateTime:false;index"`
	UpdatedAt   time.Time          `gorm:"not null;autoUpdateTime:false;index:idx_orders_status_updated,priority:2"`
	History     []StatusHistoryDTO `gorm:"foreignKey:OrderID;references:ID;constraint:OnDelete:CASCADE"`

	// Delivery job state, written by SaveDeliveryProgress only.
	Attempts      int        `gorm:"not null;default:0"`
	NextAttemptAt *time.Time `gorm:"index"`
}

func (OrderDTO) TableName() string {
	return "orders"
}

// StatusHistoryDTO is one row of the append-only order_status_history table.
// Seq breaks ties between entries written within the same timestamp.
type StatusHistoryDTO struct {
	Seq       int64     `gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID `gorm:"type:uuid;not null;index:idx_history_order_created,priority:1"`
	Status    string    `gorm:"size:20;not null"`
	Notes     string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime:false;index:idx_history_order_created,priority:2"`
}

func (StatusHistoryDTO) TableName() string {
	return "order_status_history"
}

// fromDomain maps the order columns. History rows are written separately.
func fromDomain(aggregate *order.Order) OrderDTO {
	return OrderDTO{
		ID:          aggregate.ID().Raw(),
		OrderNumber: aggregate.OrderNumber(),
		Customer:    aggregate.Customer(),
		Product:     aggregate.Product(),
		Quantity:    aggregate.Quantity(),
		Status:      aggregate.Status().String(),
		CreatedAt:   aggregate.CreatedAt(),
		UpdatedAt:   aggregate.UpdatedAt(),
	}
}

func historyFromDomain(orderID uuid.UUID, entry order.StatusHistoryEntry) StatusHistoryDTO {
	return StatusHistoryDTO{
		OrderID:   orderID,
		Status:    entry.Status().String(),
		Notes:     entry.Notes(),
		CreatedAt: entry.CreatedAt(),
	}
}

// toDomain rebuilds the aggregate; dto.History must be sorted oldest first.
func toDomain(dto OrderDTO) (*order.Order, error) {
	id, err := kernel.UUIDFromRaw(dto.ID)
	if err != nil {
		return nil, err
	}

	history := make([]order.StatusHistoryEntry, 0, len(dto.History))
	for _, h := range dto.History {
		entry, entryErr := order.RestoreStatusHistoryEntry(h.Seq, order.Status(h.Status), h.Notes, h.CreatedAt)
		if entryErr != nil {
			return nil, entryErr
		}
		history = append(history, entry)
	}

	return order.RestoreOrder(
		id,
		dto.OrderNumber,
		dto.Customer,
		dto.Product,
		dto.Quantity,
		order.Status(dto.Status),
		dto.CreatedAt,
		dto.UpdatedAt,
		history,
	)
}
