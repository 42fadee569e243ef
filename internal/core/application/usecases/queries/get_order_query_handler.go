package queries

import (
	"context"
	"database/sql"
	"errors"

	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"gorm.io/gorm"
)

// GetOrderQueryHandler reads one order through the orders:{id} cache entry.
type GetOrderQueryHandler struct {
	db    *gorm.DB
	cache ports.Cache[OrderView]
}

func NewGetOrderQueryHandler(db *gorm.DB, cache ports.Cache[OrderView]) GetOrderQueryHandler {
	return GetOrderQueryHandler{db: db, cache: cache}
}

// Handle returns the cached view when present, otherwise loads it from the
// database and caches it. Unknown ids yield errs.ObjectNotFoundError and are
// not cached.
func (h GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (OrderView, error) {
	if err := query.Validate(); err != nil {
		return OrderView{}, err
	}

	key := ports.OrderCacheKey(query.OrderID())
	if view, ok := h.cache.Get(key); ok {
		return view, nil
	}

	row := h.db.WithContext(ctx).Raw(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = ?
	`, query.OrderID().Raw()).Row()

	view, err := scanOrderView(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderView{}, errs.NewObjectNotFoundError("orderID", query.OrderID().String())
	}
	if err != nil {
		return OrderView{}, err
	}

	h.cache.Set(key, view)
	return view, nil
}
