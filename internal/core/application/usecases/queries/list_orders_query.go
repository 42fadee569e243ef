package queries

import (
	"errors"
	"strings"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

var (
	ErrListOrdersQueryIsNotConstructed = errors.New(
		"ListOrdersQuery must be created via NewListOrdersQuery constructor",
	)
)

// ListOrdersQuery pages through orders, newest first, optionally filtered by status.
//
// Example:
//
//	query, err := NewListOrdersQuery(2, 15, "failed")
//	if err != nil {
//	    return err
//	}
//
//	result, err := handler.Handle(ctx, query)
//	fmt.Printf("page %d of %d, %d orders total\n", result.Page, result.LastPage, result.Total)
type ListOrdersQuery struct {
	page    int
	perPage int
	status  order.Status

	guard guard.ConstructorGuard
}

// NewListOrdersQuery builds a list query. Page and perPage values below 1 fall
// back to the first page and DefaultPerPage. An empty status lists every order.
func NewListOrdersQuery(page, perPage int, status string) (ListOrdersQuery, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		return ListOrdersQuery{}, errs.NewValueIsOutOfRangeError("per_page", perPage, 1, MaxPerPage)
	}

	var filter order.Status
	if strings.TrimSpace(status) != "" {
		parsed, err := order.ParseStatus(status)
		if err != nil {
			return ListOrdersQuery{}, err
		}
		filter = parsed
	}

	return ListOrdersQuery{
		page:    page,
		perPage: perPage,
		status:  filter,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (q ListOrdersQuery) Validate() error {
	return q.guard.Validate(ErrListOrdersQueryIsNotConstructed)
}

func (q ListOrdersQuery) Page() int {
	return q.page
}

func (q ListOrdersQuery) PerPage() int {
	return q.perPage
}

// Status returns the filter, or "" when every status is listed.
func (q ListOrdersQuery) Status() order.Status {
	return q.status
}

// ListOrdersResult is one page of orders with pagination metadata.
type ListOrdersResult struct {
	Orders   []OrderView
	Page     int
	PerPage  int
	Total    int
	LastPage int
}
