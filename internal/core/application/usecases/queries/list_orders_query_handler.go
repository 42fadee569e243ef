package queries

import (
	"context"

	"orderflow/internal/core/ports"

	"gorm.io/gorm"
)

// ListOrdersQueryHandler serves order listings from the orders:all cache entry,
// which holds every order newest first. Filtering and paging happen on a copy.
type ListOrdersQueryHandler struct {
	db    *gorm.DB
	cache ports.Cache[[]OrderView]
}

func NewListOrdersQueryHandler(db *gorm.DB, cache ports.Cache[[]OrderView]) ListOrdersQueryHandler {
	return ListOrdersQueryHandler{db: db, cache: cache}
}

func (h ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (ListOrdersResult, error) {
	if err := query.Validate(); err != nil {
		return ListOrdersResult{}, err
	}

	all, err := h.allOrders(ctx)
	if err != nil {
		return ListOrdersResult{}, err
	}

	matching := make([]OrderView, 0, len(all))
	for _, view := range all {
		if query.Status() == "" || view.Status == query.Status() {
			matching = append(matching, view)
		}
	}

	total := len(matching)
	lastPage := (total + query.PerPage() - 1) / query.PerPage()
	if lastPage < 1 {
		lastPage = 1
	}

	start := (query.Page() - 1) * query.PerPage()
	if start > total {
		start = total
	}
	end := min(start+query.PerPage(), total)

	return ListOrdersResult{
		Orders:   matching[start:end],
		Page:     query.Page(),
		PerPage:  query.PerPage(),
		Total:    total,
		LastPage: lastPage,
	}, nil
}

func (h ListOrdersQueryHandler) allOrders(ctx context.Context) ([]OrderView, error) {
	if cached, ok := h.cache.Get(ports.AllOrdersCacheKey); ok {
		return cached, nil
	}

	rows, err := h.db.WithContext(ctx).Raw(`
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC, order_number ASC
	`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]OrderView, 0)
	for rows.Next() {
		view, scanErr := scanOrderView(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		orders = append(orders, view)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	h.cache.Set(ports.AllOrdersCacheKey, orders)
	return orders, nil
}
