package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"

	"github.com/labstack/echo/v4"
	"github.com/oapi-codegen/runtime"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// MaxUploadSize is the largest accepted import file.
const MaxUploadSize = 10 << 20

// HealthChecker reports whether the external delivery service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) bool
}

// Server maps HTTP requests onto the order use cases.
type Server struct {
	// Command handlers
	importHandler *commands.ImportOrdersCommandHandler

	// Query handlers
	getOrderHandler       queries.GetOrderQueryHandler
	getOrderStatusHandler queries.GetOrderStatusQueryHandler
	listOrdersHandler     queries.ListOrdersQueryHandler

	api         *OpenAPI
	parser      FileParser
	health      HealthChecker
	serviceName string
	logger      *slog.Logger
}

// NewServer creates a new HTTP server with the required command and query handlers.
func NewServer(
	importHandler *commands.ImportOrdersCommandHandler,
	getOrderHandler queries.GetOrderQueryHandler,
	getOrderStatusHandler queries.GetOrderStatusQueryHandler,
	listOrdersHandler queries.ListOrdersQueryHandler,
	api *OpenAPI,
	health HealthChecker,
	serviceName string,
	logger *slog.Logger,
) *Server {
	return &Server{
		importHandler:         importHandler,
		getOrderHandler:       getOrderHandler,
		getOrderStatusHandler: getOrderStatusHandler,
		listOrdersHandler:     listOrdersHandler,
		api:                   api,
		parser:                NewFileParser(logger),
		health:                health,
		serviceName:           serviceName,
		logger:                logger.With("component", "http"),
	}
}

// RegisterRoutes mounts the API, the OpenAPI document and the Swagger UI.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", s.Health)
	e.GET("/api/openapi.json", s.OpenAPIDocument)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	orders := e.Group("/api/orders")
	orders.POST("/import", s.ImportOrdersFile)
	orders.POST("/import-json", s.ImportOrdersJSON)
	orders.GET("", s.ListOrders)
	orders.GET("/:id", s.GetOrder)
	orders.GET("/:id/status", s.GetOrderStatus)
}

// ImportOrdersFile handles POST /api/orders/import with a multipart CSV or JSON file.
func (s *Server) ImportOrdersFile(ctx echo.Context) error {
	format := ctx.FormValue("format")
	if format != FormatCSV && format != FormatJSON {
		return s.fail(ctx, http.StatusUnprocessableEntity, "The format field must be csv or json")
	}

	header, err := ctx.FormFile("file")
	if err != nil {
		return s.fail(ctx, http.StatusUnprocessableEntity, "Please upload a file")
	}
	if header.Size > MaxUploadSize {
		return s.fail(ctx, http.StatusUnprocessableEntity, "File too large, the maximum size is 10MB")
	}

	file, err := header.Open()
	if err != nil {
		return s.fail(ctx, http.StatusUnprocessableEntity, "Uploaded file could not be read")
	}
	defer file.Close()

	drafts, err := s.parser.Parse(format, io.LimitReader(file, MaxUploadSize))
	if err != nil {
		return s.fail(ctx, http.StatusUnprocessableEntity, err.Error())
	}
	if len(drafts) == 0 {
		return s.fail(ctx, http.StatusUnprocessableEntity, "No orders available to import")
	}

	s.logger.InfoContext(ctx.Request().Context(), "Importing orders from file",
		"file", header.Filename, "format", format, "drafts", len(drafts))
	return s.importDrafts(ctx, drafts)
}

// ImportOrdersJSON handles POST /api/orders/import-json.
func (s *Server) ImportOrdersJSON(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, MaxUploadSize))
	if err != nil {
		return s.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if err = s.api.ValidateImportRequest(body); err != nil {
		return s.fail(ctx, http.StatusUnprocessableEntity, err.Error())
	}

	var request struct {
		Orders []commands.OrderDraft `json:"orders"`
	}
	if err = json.Unmarshal(body, &request); err != nil {
		return s.fail(ctx, http.StatusUnprocessableEntity, "Invalid request body")
	}

	return s.importDrafts(ctx, request.Orders)
}

func (s *Server) importDrafts(ctx echo.Context, drafts []commands.OrderDraft) error {
	cmd, err := commands.NewImportOrdersCommand(drafts)
	if err != nil {
		return s.respondError(ctx, err, "Invalid import")
	}

	result, err := s.importHandler.Handle(ctx.Request().Context(), cmd)
	if err != nil {
		s.logger.ErrorContext(ctx.Request().Context(), "Error importing orders", "error", err)
		return s.fail(ctx, http.StatusInternalServerError, "Error importing orders: "+err.Error())
	}

	s.logger.InfoContext(ctx.Request().Context(), "Orders imported",
		"total", result.Total, "success", result.Success, "failed", result.Failed)

	return ctx.JSON(http.StatusCreated, importResponse{
		Success: true,
		Message: "Orders imported and processing started",
		Data:    newImportData(result),
	})
}

// ListOrders handles GET /api/orders.
func (s *Server) ListOrders(ctx echo.Context) error {
	var (
		page    int
		perPage int
		status  string
	)
	params := ctx.QueryParams()
	if err := runtime.BindQueryParameter("form", true, false, "page", params, &page); err != nil {
		return s.fail(ctx, http.StatusBadRequest, "Invalid page parameter")
	}
	if err := runtime.BindQueryParameter("form", true, false, "per_page", params, &perPage); err != nil {
		return s.fail(ctx, http.StatusBadRequest, "Invalid per_page parameter")
	}
	if err := runtime.BindQueryParameter("form", true, false, "status", params, &status); err != nil {
		return s.fail(ctx, http.StatusBadRequest, "Invalid status parameter")
	}

	query, err := queries.NewListOrdersQuery(page, perPage, status)
	if err != nil {
		return s.respondError(ctx, err, "Invalid list parameters")
	}

	result, err := s.listOrdersHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.respondError(ctx, err, "Error retrieving orders")
	}

	data := make([]orderResponse, 0, len(result.Orders))
	for _, view := range result.Orders {
		data = append(data, newOrderResponse(view))
	}

	return ctx.JSON(http.StatusOK, listResponse{
		Success: true,
		Data:    data,
		Meta: listMeta{
			CurrentPage: result.Page,
			PerPage:     result.PerPage,
			Total:       result.Total,
			LastPage:    result.LastPage,
		},
	})
}

// GetOrder handles GET /api/orders/{id}.
func (s *Server) GetOrder(ctx echo.Context) error {
	id, err := s.bindOrderID(ctx)
	if err != nil {
		return s.fail(ctx, http.StatusNotFound, "Order not found")
	}

	query, err := queries.NewGetOrderQuery(id)
	if err != nil {
		return s.respondError(ctx, err, "Invalid order id")
	}

	view, err := s.getOrderHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.respondError(ctx, err, "Error retrieving order")
	}

	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: newOrderResponse(view)})
}

// GetOrderStatus handles GET /api/orders/{id}/status.
func (s *Server) GetOrderStatus(ctx echo.Context) error {
	id, err := s.bindOrderID(ctx)
	if err != nil {
		return s.fail(ctx, http.StatusNotFound, "Order not found")
	}

	query, err := queries.NewGetOrderStatusQuery(id)
	if err != nil {
		return s.respondError(ctx, err, "Invalid order id")
	}

	view, err := s.getOrderStatusHandler.Handle(ctx.Request().Context(), query)
	if err != nil {
		return s.respondError(ctx, err, "Error retrieving order status")
	}

	return ctx.JSON(http.StatusOK, dataResponse{Success: true, Data: newOrderStatusResponse(view)})
}

// Health handles GET /health.
func (s *Server) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, healthResponse{
		Status:          "ok",
		Service:         s.serviceName,
		Timestamp:       time.Now().UTC(),
		ExternalService: s.health.HealthCheck(ctx.Request().Context()),
	})
}

// OpenAPIDocument handles GET /api/openapi.json.
func (s *Server) OpenAPIDocument(ctx echo.Context) error {
	return ctx.JSONBlob(http.StatusOK, s.api.Document())
}

func (s *Server) bindOrderID(ctx echo.Context) (kernel.UUID, error) {
	var raw string
	err := runtime.BindStyledParameterWithOptions("simple", "id", ctx.Param("id"), &raw,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return kernel.UUID{}, err
	}
	return kernel.UUIDFromString(raw)
}

// respondError maps use case errors: missing orders to 404, validation to 422,
// anything else to 500 with fallback as the message.
func (s *Server) respondError(ctx echo.Context, err error, fallback string) error {
	switch {
	case errors.Is(err, errs.ErrObjectNotFound):
		return s.fail(ctx, http.StatusNotFound, "Order not found")
	case errs.IsValidation(err):
		return s.fail(ctx, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.ErrorContext(ctx.Request().Context(), fallback, "error", err)
		return s.fail(ctx, http.StatusInternalServerError, fallback)
	}
}

func (s *Server) fail(ctx echo.Context, code int, message string) error {
	return ctx.JSON(code, errorResponse{Success: false, Message: message})
}

// NewEcho returns an echo instance with the API error format applied to
// errors raised outside the handlers, such as unknown routes.
func NewEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}
		code := http.StatusInternalServerError
		message := http.StatusText(code)
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			message = fmt.Sprint(he.Message)
		}
		_ = ctx.JSON(code, errorResponse{Success: false, Message: message})
	}
	return e
}
