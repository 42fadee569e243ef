package cmd

import (
	"context"
	"fmt"
	"log/slog"

	httpadapter "orderflow/internal/adapters/in/http"
	"orderflow/internal/adapters/out/cache"
	"orderflow/internal/adapters/out/delivery"
	"orderflow/internal/adapters/out/postgres"
	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/application/usecases/queries"
	"orderflow/internal/core/domain/services"
	"orderflow/internal/jobs"

	"gorm.io/gorm"
)

// CompositionRoot owns the process-wide singletons: the caches, the status
// machine, the delivery client and the job manager. Handlers are created on
// demand around them.
type CompositionRoot struct {
	cfg        Config
	gormDB     *gorm.DB
	uowFactory *postgres.GormUnitOfWorkFactory
	logger     *slog.Logger

	orderCache *cache.SturdyCache[queries.OrderView]
	listCache  *cache.SturdyCache[[]queries.OrderView]
	machine    services.StatusMachine
	client     *delivery.Client
	jobManager *jobs.JobManager
}

func NewCompositionRoot(cfg Config, gormDB *gorm.DB, logger *slog.Logger) (*CompositionRoot, error) {
	mode, err := services.ParseTransitionMode(cfg.StatusTransitions)
	if err != nil {
		return nil, fmt.Errorf("STATUS_TRANSITIONS: %w", err)
	}
	machine, err := services.NewStatusMachine(mode)
	if err != nil {
		return nil, err
	}

	client, err := delivery.NewClient(delivery.Config{
		BaseURL:    cfg.ExternalAPIURL,
		Timeout:    cfg.ExternalAPITimeout,
		RetryTimes: cfg.ExternalAPIRetryTimes,
		RetryDelay: cfg.ExternalAPIRetryDelay,
		RateLimit:  cfg.ExternalAPIRateLimit,
		SourceName: cfg.ExternalSourceName,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("delivery client: %w", err)
	}

	backoff, err := jobs.ParseBackoff(cfg.JobBackoffStrategy, cfg.JobBackoff)
	if err != nil {
		return nil, fmt.Errorf("JOB_BACKOFF_STRATEGY: %w", err)
	}

	c := &CompositionRoot{
		cfg:        cfg,
		gormDB:     gormDB,
		uowFactory: postgres.NewGormUnitOfWorkFactory(gormDB),
		logger:     logger,
		orderCache: cache.NewSturdyCache[queries.OrderView](cfg.CacheCapacity, cfg.CacheTTL),
		listCache:  cache.NewSturdyCache[[]queries.OrderView](cfg.CacheCapacity, cfg.CacheTTL),
		machine:    machine,
		client:     client,
	}

	statusHandler := c.CreateChangeOrderStatusCommandHandler()
	processHandler := c.CreateProcessOrderCommandHandler(&statusHandler)
	c.jobManager = jobs.NewJobManager(
		&processHandler,
		&statusHandler,
		c.orderUoWFactory(),
		jobs.RetryPolicy{MaxAttempts: cfg.JobMaxAttempts, Backoff: backoff},
		cfg.QueueWorkers,
		cfg.RecoverySchedule,
		cfg.RecoveryStaleAfter,
		logger,
	)
	return c, nil
}

func (c *CompositionRoot) JobManager() *jobs.JobManager {
	return c.jobManager
}

func (c *CompositionRoot) DeliveryClient() *delivery.Client {
	return c.client
}

func (c *CompositionRoot) invalidators() cache.Invalidators {
	return cache.Invalidators{c.orderCache, c.listCache}
}

func (c *CompositionRoot) orderUoWFactory() commands.OrderUoWFactory {
	return FuncOrderUoWFactory(func() commands.OrderUoW {
		return c.uowFactory.Create()
	})
}

func (c *CompositionRoot) CreateChangeOrderStatusCommandHandler() commands.ChangeOrderStatusCommandHandler {
	return commands.NewChangeOrderStatusCommandHandler(c.orderUoWFactory(), c.machine, c.invalidators())
}

func (c *CompositionRoot) CreateProcessOrderCommandHandler(statuses commands.StatusChanger) commands.ProcessOrderCommandHandler {
	return commands.NewProcessOrderCommandHandler(c.orderUoWFactory(), statuses, c.client, c.logger)
}

func (c *CompositionRoot) CreateImportOrdersCommandHandler() commands.ImportOrdersCommandHandler {
	return commands.NewImportOrdersCommandHandler(c.orderUoWFactory(), c.jobManager.Queue(), c.invalidators(), c.logger)
}

func (c *CompositionRoot) CreateGetOrderQueryHandler() queries.GetOrderQueryHandler {
	return queries.NewGetOrderQueryHandler(c.gormDB, c.orderCache)
}

func (c *CompositionRoot) CreateGetOrderStatusQueryHandler() queries.GetOrderStatusQueryHandler {
	return queries.NewGetOrderStatusQueryHandler(c.gormDB)
}

func (c *CompositionRoot) CreateListOrdersQueryHandler() queries.ListOrdersQueryHandler {
	return queries.NewListOrdersQueryHandler(c.gormDB, c.listCache)
}

// CreateHTTPServer loads the OpenAPI document and builds the HTTP adapter.
func (c *CompositionRoot) CreateHTTPServer(ctx context.Context, serviceName string) (*httpadapter.Server, error) {
	api, err := httpadapter.LoadOpenAPI(ctx)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	importHandler := c.CreateImportOrdersCommandHandler()
	return httpadapter.NewServer(
		&importHandler,
		c.CreateGetOrderQueryHandler(),
		c.CreateGetOrderStatusQueryHandler(),
		c.CreateListOrdersQueryHandler(),
		api,
		c.client,
		serviceName,
		c.logger,
	), nil
}

type FuncOrderUoWFactory func() commands.OrderUoW

func (f FuncOrderUoWFactory) Create() commands.OrderUoW {
	return f()
}
