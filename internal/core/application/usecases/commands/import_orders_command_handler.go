package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"
)

// ImportItemError describes why one draft of a batch was not persisted.
type ImportItemError struct {
	Index       int
	OrderNumber string
	Err         error
}

func (e ImportItemError) Error() string {
	return fmt.Sprintf("item %d (%s): %v", e.Index, e.OrderNumber, e.Err)
}

func (e ImportItemError) Unwrap() error {
	return e.Err
}

// ImportResult summarizes one batch. Imported lists the persisted order ids in input order.
type ImportResult struct {
	Total    int
	Success  int
	Failed   int
	Errors   []ImportItemError
	Imported []kernel.UUID
}

// ImportOrdersCommandHandler persists the valid drafts of a batch in one transaction
// and schedules a delivery job for each of them once the transaction has committed.
//
// Invalid and duplicate drafts are reported per item and never abort the batch.
// Any other storage error rolls back the whole batch, so no job is enqueued for an
// order that was not committed.
type ImportOrdersCommandHandler struct {
	uowFactory OrderUoWFactory
	queue      ports.DeliveryJobQueue
	cache      ports.CacheInvalidator
	validator  DraftValidator
	logger     *slog.Logger
}

func NewImportOrdersCommandHandler(
	uowFactory OrderUoWFactory,
	queue ports.DeliveryJobQueue,
	cache ports.CacheInvalidator,
	logger *slog.Logger,
) ImportOrdersCommandHandler {
	return ImportOrdersCommandHandler{
		uowFactory: uowFactory,
		queue:      queue,
		cache:      cache,
		validator:  NewDraftValidator(),
		logger:     logger.With("component", "import-orders"),
	}
}

func (h *ImportOrdersCommandHandler) Handle(ctx context.Context, cmd ImportOrdersCommand) (ImportResult, error) {
	if err := cmd.Validate(); err != nil {
		return ImportResult{}, err
	}

	drafts := cmd.Drafts()
	result := ImportResult{Total: len(drafts)}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return ImportResult{}, err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	for i, draft := range drafts {
		id, err := h.persistDraft(ctx, repo, draft)
		if err != nil {
			if !isItemError(err) {
				return ImportResult{}, fmt.Errorf("import item %d: %w", i, err)
			}
			result.Errors = append(result.Errors, ImportItemError{Index: i, OrderNumber: draft.OrderNumber, Err: err})
			continue
		}
		result.Imported = append(result.Imported, id)
	}

	if err := uow.Commit(ctx); err != nil {
		return ImportResult{}, err
	}

	result.Success = len(result.Imported)
	result.Failed = len(result.Errors)

	if result.Success > 0 {
		h.cache.Invalidate(ports.AllOrdersCacheKey)
	}

	for _, id := range result.Imported {
		if err := h.queue.Enqueue(ctx, id); err != nil {
			// the recovery sweep picks up pending orders whose job never started
			h.logger.ErrorContext(ctx, "Failed to enqueue delivery job", "order_id", id.String(), "error", err)
		}
	}

	h.logger.InfoContext(ctx, "Batch imported",
		"total", result.Total, "success", result.Success, "failed", result.Failed)

	return result, nil
}

func (h *ImportOrdersCommandHandler) persistDraft(ctx context.Context, repo ports.OrderRepository, draft OrderDraft) (kernel.UUID, error) {
	if err := h.validator.Validate(draft); err != nil {
		return kernel.UUID{}, err
	}

	o, err := order.NewOrder(kernel.NewUUID(), draft.OrderNumber, draft.Customer, draft.Product, draft.Quantity, time.Now())
	if err != nil {
		return kernel.UUID{}, err
	}

	exists, err := repo.ExistsByOrderNumber(ctx, o.OrderNumber())
	if err != nil {
		return kernel.UUID{}, err
	}
	if exists {
		return kernel.UUID{}, errs.NewObjectAlreadyExistsError("order_number", o.OrderNumber())
	}

	if err = repo.Add(ctx, o); err != nil {
		return kernel.UUID{}, err
	}

	return o.ID(), nil
}

func isItemError(err error) bool {
	return errs.IsValidation(err) || errors.Is(err, errs.ErrObjectAlreadyExists)
}
