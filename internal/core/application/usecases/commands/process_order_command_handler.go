package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
)

// StatusChanger applies status transitions. ChangeOrderStatusCommandHandler implements it.
type StatusChanger interface {
	Handle(ctx context.Context, cmd ChangeOrderStatusCommand) error
}

// ProcessOrderCommandHandler runs a single delivery attempt:
//
//  1. the order moves to processing (skipped when it is already there after a restart)
//  2. the delivery client forwards it to the external service
//  3. the order moves to completed with the response in the notes, or to failed
//     with the reason in the notes
//
// A failed attempt returns an error wrapping ports.ErrDeliveryRejected or
// ports.ErrDeliveryUnreachable so the scheduler can decide on a retry. A missing
// order surfaces as errs.ObjectNotFoundError. Completed orders are left alone,
// and so are failed ones unless the attempt is a retry.
//
// The failed and completed transitions also store the delivery progress: the
// attempt number and, when the command announces a retry, when it is due.
type ProcessOrderCommandHandler struct {
	uowFactory OrderUoWFactory
	statuses   StatusChanger
	client     ports.DeliveryClient
	logger     *slog.Logger
}

func NewProcessOrderCommandHandler(
	uowFactory OrderUoWFactory,
	statuses StatusChanger,
	client ports.DeliveryClient,
	logger *slog.Logger,
) ProcessOrderCommandHandler {
	return ProcessOrderCommandHandler{
		uowFactory: uowFactory,
		statuses:   statuses,
		client:     client,
		logger:     logger.With("component", "process-order"),
	}
}

func (h *ProcessOrderCommandHandler) Handle(ctx context.Context, cmd ProcessOrderCommand) error {
	if err := cmd.Validate(); err != nil {
		return err
	}

	o, err := h.uowFactory.Create().OrderRepository().Get(ctx, cmd.OrderID())
	if err != nil {
		return err
	}

	log := h.logger.With("order_id", o.ID().String(), "order_number", o.OrderNumber(), "attempt", cmd.Attempt())

	// A failed order is only picked up again by the job that failed it, which
	// always comes back with a later attempt.
	retrying := o.Status() == order.Failed && cmd.Attempt() > 1

	switch {
	case o.Status().IsTerminal() && !retrying:
		log.InfoContext(ctx, "Order is in a terminal status, skipping delivery", "status", o.Status().String())
		return nil
	case o.Status() == order.Processing:
		log.InfoContext(ctx, "Order already processing, resuming delivery")
	default:
		notes := fmt.Sprintf("Delivery attempt %d started", cmd.Attempt())
		if err = h.changeStatus(ctx, o, order.Processing, notes, nil); err != nil {
			return err
		}
	}

	progress := ports.DeliveryProgress{Attempts: cmd.Attempt()}

	outcome := h.client.Deliver(ctx, o)
	if outcome.Kind == ports.Delivered {
		notes := fmt.Sprintf("Delivered to external service, external id %s: %s", outcome.ExternalID, outcome.RawResponse)
		if err = h.changeStatus(ctx, o, order.Completed, notes, &progress); err != nil {
			return err
		}
		log.InfoContext(ctx, "Order delivered", "external_id", outcome.ExternalID)
		return nil
	}

	deliveryErr := outcome.Err()
	log.WarnContext(ctx, "Delivery attempt failed", "outcome", outcome.Kind.String(), "error", deliveryErr)

	if delay, ok := cmd.RetryDelay(); ok {
		progress.NextAttemptAt = time.Now().Add(delay)
	}
	if err = h.changeStatus(ctx, o, order.Failed, deliveryErr.Error(), &progress); err != nil {
		return errors.Join(deliveryErr, err)
	}
	return deliveryErr
}

func (h *ProcessOrderCommandHandler) changeStatus(
	ctx context.Context,
	o *order.Order,
	status order.Status,
	notes string,
	progress *ports.DeliveryProgress,
) error {
	cmd, err := NewChangeOrderStatusCommand(o.ID(), status, notes)
	if err != nil {
		return err
	}
	if progress != nil {
		cmd = cmd.WithDeliveryProgress(*progress)
	}
	if err = h.statuses.Handle(ctx, cmd); err != nil {
		return fmt.Errorf("move order %s to %s: %w", o.ID(), status, err)
	}
	return nil
}
