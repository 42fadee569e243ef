package commands

import (
	"errors"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/guard"
)

var ErrProcessOrderCommandIsNotConstructed = errors.New(
	"ProcessOrderCommand must be created via NewProcessOrderCommand constructor",
)

// ProcessOrderCommand is one delivery attempt for an order. Attempt starts at 1.
type ProcessOrderCommand struct {
	orderID kernel.UUID
	attempt int

	retryDelay time.Duration
	retries    bool

	guard guard.ConstructorGuard
}

func NewProcessOrderCommand(orderID kernel.UUID, attempt int) (ProcessOrderCommand, error) {
	if err := orderID.Validate(); err != nil {
		return ProcessOrderCommand{}, err
	}
	if attempt < 1 {
		attempt = 1
	}

	return ProcessOrderCommand{
		orderID: orderID,
		attempt: attempt,
		guard:   guard.NewConstructorGuard(),
	}, nil
}

func (c ProcessOrderCommand) Validate() error {
	return c.guard.Validate(ErrProcessOrderCommandIsNotConstructed)
}

func (c ProcessOrderCommand) OrderID() kernel.UUID {
	return c.orderID
}

func (c ProcessOrderCommand) Attempt() int {
	return c.attempt
}

// WithRetry returns a copy announcing that a failed attempt is retried after delay.
func (c ProcessOrderCommand) WithRetry(delay time.Duration) ProcessOrderCommand {
	c.retryDelay = delay
	c.retries = true
	return c
}

// RetryDelay reports the delay before the next attempt, if one follows.
func (c ProcessOrderCommand) RetryDelay() (time.Duration, bool) {
	return c.retryDelay, c.retries
}
