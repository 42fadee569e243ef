package http

import (
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type dataResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type importItemError struct {
	Index       int    `json:"index"`
	OrderNumber string `json:"order_number"`
	Error       string `json:"error"`
}

type importData struct {
	TotalOrders int               `json:"total_orders"`
	Imported    int               `json:"imported"`
	Failed      int               `json:"failed"`
	Errors      []importItemError `json:"errors"`
	Status      string            `json:"status"`
}

type importResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Data    importData `json:"data"`
}

func newImportData(result commands.ImportResult) importData {
	items := make([]importItemError, 0, len(result.Errors))
	for _, e := range result.Errors {
		items = append(items, importItemError{Index: e.Index, OrderNumber: e.OrderNumber, Error: e.Err.Error()})
	}
	return importData{
		TotalOrders: result.Total,
		Imported:    result.Success,
		Failed:      result.Failed,
		Errors:      items,
		Status:      "processing",
	}
}

type orderResponse struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	Customer    string    `json:"customer"`
	Product     string    `json:"product"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newOrderResponse(view queries.OrderView) orderResponse {
	return orderResponse{
		ID:          view.ID.String(),
		OrderNumber: view.OrderNumber,
		Customer:    view.Customer,
		Product:     view.Product,
		Quantity:    view.Quantity,
		Status:      view.Status.String(),
		CreatedAt:   view.CreatedAt,
		UpdatedAt:   view.UpdatedAt,
	}
}

type listMeta struct {
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
	Total       int `json:"total"`
	LastPage    int `json:"last_page"`
}

type listResponse struct {
	Success bool            `json:"success"`
	Data    []orderResponse `json:"data"`
	Meta    listMeta        `json:"meta"`
}

type historyResponse struct {
	Status    string    `json:"status"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

type orderStatusResponse struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	CurrentStatus string            `json:"current_status"`
	Customer      string            `json:"customer"`
	Product       string            `json:"product"`
	Quantity      int               `json:"quantity"`
	History       []historyResponse `json:"history"`
}

func newOrderStatusResponse(view queries.OrderStatusView) orderStatusResponse {
	history := make([]historyResponse, 0, len(view.History))
	for _, h := range view.History {
		history = append(history, historyResponse{Status: h.Status.String(), Notes: h.Notes, CreatedAt: h.CreatedAt})
	}
	return orderStatusResponse{
		OrderID:       view.OrderID.String(),
		OrderNumber:   view.OrderNumber,
		CurrentStatus: view.CurrentStatus.String(),
		Customer:      view.Customer,
		Product:       view.Product,
		Quantity:      view.Quantity,
		History:       history,
	}
}

type healthResponse struct {
	Status          string    `json:"status"`
	Service         string    `json:"service"`
	Timestamp       time.Time `json:"timestamp"`
	ExternalService bool      `json:"external_service"`
}
