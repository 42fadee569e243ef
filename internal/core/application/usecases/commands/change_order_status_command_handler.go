package commands

import (
	"context"
	"time"

	"orderflow/internal/core/domain/services"
	"orderflow/internal/core/ports"
)

// ChangeOrderStatusCommandHandler applies one status transition atomically: the
// order row is locked, the transition is checked against the status machine, and
// the new status is stored together with its history entry in one transaction.
//
// Errors:
//   - errs.ObjectNotFoundError when the order does not exist
//   - services.ErrTransitionNotAllowed when the status machine refuses the move
//
// Cached copies of the order and of the order list are dropped after commit.
type ChangeOrderStatusCommandHandler struct {
	uowFactory OrderUoWFactory
	machine    services.StatusMachine
	cache      ports.CacheInvalidator
}

func NewChangeOrderStatusCommandHandler(
	uowFactory OrderUoWFactory,
	machine services.StatusMachine,
	cache ports.CacheInvalidator,
) ChangeOrderStatusCommandHandler {
	return ChangeOrderStatusCommandHandler{
		uowFactory: uowFactory,
		machine:    machine,
		cache:      cache,
	}
}

func (h *ChangeOrderStatusCommandHandler) Handle(ctx context.Context, cmd ChangeOrderStatusCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	uow := h.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		_ = uow.Rollback(ctx)
	}()

	repo := uow.OrderRepository()
	o, err := repo.GetForUpdate(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	if err = h.machine.Check(o.Status(), cmd.Status()); err != nil {
		return err
	}

	if err = o.ChangeStatus(cmd.Status(), cmd.Notes(), time.Now()); err != nil {
		return err
	}

	if err = repo.Update(ctx, o); err != nil {
		return err
	}

	if progress, ok := cmd.DeliveryProgress(); ok {
		if err = repo.SaveDeliveryProgress(ctx, o.ID(), progress); err != nil {
			return err
		}
	}

	if err = uow.Commit(ctx); err != nil {
		return err
	}

	h.cache.Invalidate(ports.OrderCacheKey(o.ID()), ports.AllOrdersCacheKey)
	return nil
}
