package commands

import (
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/guard"
)

var ErrChangeOrderStatusCommandIsNotConstructed = errors.New(
	"ChangeOrderStatusCommand must be created via NewChangeOrderStatusCommand constructor",
)

// ChangeOrderStatusCommand requests a status transition for one order.
// Empty notes are replaced with "Status changed from X to Y" when applied.
type ChangeOrderStatusCommand struct {
	orderID kernel.UUID
	status  order.Status
	notes   string

	progress    ports.DeliveryProgress
	hasProgress bool

	guard guard.ConstructorGuard
}

func NewChangeOrderStatusCommand(orderID kernel.UUID, status order.Status, notes string) (ChangeOrderStatusCommand, error) {
	if err := errors.Join(orderID.Validate(), status.Validate()); err != nil {
		return ChangeOrderStatusCommand{}, err
	}

	return ChangeOrderStatusCommand{
		orderID: orderID,
		status:  status,
		notes:   notes,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c ChangeOrderStatusCommand) Validate() error {
	return c.guard.Validate(ErrChangeOrderStatusCommandIsNotConstructed)
}

func (c ChangeOrderStatusCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ChangeOrderStatusCommand) Status() order.Status {
	return c.status
}

func (c ChangeOrderStatusCommand) Notes() string {
	return c.notes
}

// WithDeliveryProgress returns a copy that also stores the delivery job state,
// in the same transaction as the transition.
func (c ChangeOrderStatusCommand) WithDeliveryProgress(progress ports.DeliveryProgress) ChangeOrderStatusCommand {
	c.progress = progress
	c.hasProgress = true
	return c
}

func (c ChangeOrderStatusCommand) DeliveryProgress() (ports.DeliveryProgress, bool) {
	return c.progress, c.hasProgress
}
