package commands

import (
	"errors"

	"orderflow/internal/pkg/errs"
	"orderflow/internal/pkg/guard"
)

var ErrImportOrdersCommandIsNotConstructed = errors.New(
	"ImportOrdersCommand must be created via NewImportOrdersCommand constructor",
)

// ImportOrdersCommand carries one batch of drafts in input order.
//
// Example:
//
//	cmd, err := NewImportOrdersCommand([]OrderDraft{
//	    {OrderNumber: "ORD-1", Customer: "Ana", Product: "Mouse", Quantity: 2},
//	})
//	if err != nil {
//	    return err
//	}
//	result, err := handler.Handle(ctx, cmd)
type ImportOrdersCommand struct {
	drafts []OrderDraft

	guard guard.ConstructorGuard
}

// NewImportOrdersCommand rejects an empty batch. Individual drafts are validated by the handler.
func NewImportOrdersCommand(drafts []OrderDraft) (ImportOrdersCommand, error) {
	if len(drafts) == 0 {
		return ImportOrdersCommand{}, errs.NewValueIsRequiredError("orders")
	}

	return ImportOrdersCommand{
		drafts: append([]OrderDraft(nil), drafts...),
		guard:  guard.NewConstructorGuard(),
	}, nil
}

func (c ImportOrdersCommand) Validate() error {
	return c.guard.Validate(ErrImportOrdersCommandIsNotConstructed)
}

// Drafts returns a copy of the batch.
func (c ImportOrdersCommand) Drafts() []OrderDraft {
	return append([]OrderDraft(nil), c.drafts...)
}
