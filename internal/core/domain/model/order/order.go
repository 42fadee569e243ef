package order

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/pkg/errs"
)

const (
	// MaxOrderNumberLength bounds the business key.
	MaxOrderNumberLength = 50

	// MaxTextLength bounds customer and product.
	MaxTextLength = 255

	// CreatedNotes annotates the history entry written together with a new order.
	CreatedNotes = "Order created"
)

var (
	// ErrOrderIsNotConstructed is returned when an Order instance was not created through
	// NewOrder or RestoreOrder.
	ErrOrderIsNotConstructed = errors.New("Order must be created via NewOrder or RestoreOrder")

	// ErrHistoryMismatch is returned when storage acknowledges a different number of
	// history entries than the order has pending.
	ErrHistoryMismatch = errors.New("persisted history does not match pending entries")
)

// Order is the aggregate root of the pipeline. It owns its status history, which
// is append-only: every status change adds exactly one entry and nothing ever
// edits or removes one.
//
// Order follows these invariants:
//   - order number is non-empty and at most MaxOrderNumberLength characters
//   - customer and product are 1..MaxTextLength characters
//   - quantity is at least 1
//   - status is one of the four Status values
//
// Entries appended since the order was loaded stay "pending" until the
// repository reports them persisted through MarkHistoryPersisted.
type Order struct {
	id          kernel.UUID
	orderNumber string
	customer    string
	product     string
	quantity    int
	status      Status
	createdAt   time.Time
	updatedAt   time.Time

	// history holds entries already stored, oldest first.
	history []StatusHistoryEntry

	// pending holds entries appended since load, oldest first.
	pending []StatusHistoryEntry

	isConstructed bool
}

// NewOrder creates an order in Pending status together with its initial
// history entry.
//
// Parameters:
//   - id: storage identity of the order
//   - orderNumber: business key, unique across all orders
//   - customer, product: free text, trimmed
//   - quantity: number of items, at least 1
//   - now: creation time for the order and its first history entry
//
// Returns every field error joined together, so callers can report all of them
// at once:
//
//	o, err := order.NewOrder(kernel.NewUUID(), "ORD-1", "Ana", "Mouse", 2, time.Now())
//	if errs.IsValidation(err) {
//	    // record a per-item failure
//	}
func NewOrder(id kernel.UUID, orderNumber, customer, product string, quantity int, now time.Time) (*Order, error) {
	o := &Order{
		status:        Pending,
		createdAt:     now.UTC(),
		updatedAt:     now.UTC(),
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setOrderNumber(orderNumber),
		o.setCustomer(customer),
		o.setProduct(product),
		o.setQuantity(quantity),
	); err != nil {
		return nil, err
	}

	entry, err := NewStatusHistoryEntry(Pending, CreatedNotes, now)
	if err != nil {
		return nil, err
	}
	o.pending = append(o.pending, entry)

	return o, nil
}

// RestoreOrder rebuilds an order loaded from storage. History must already be
// sorted oldest first and is taken as persisted.
func RestoreOrder(
	id kernel.UUID,
	orderNumber, customer, product string,
	quantity int,
	status Status,
	createdAt, updatedAt time.Time,
	history []StatusHistoryEntry,
) (*Order, error) {
	o := &Order{
		createdAt:     createdAt.UTC(),
		updatedAt:     updatedAt.UTC(),
		isConstructed: true,
	}

	if err := errors.Join(
		o.setID(id),
		o.setOrderNumber(orderNumber),
		o.setCustomer(customer),
		o.setProduct(product),
		o.setQuantity(quantity),
		status.Validate(),
	); err != nil {
		return nil, err
	}
	o.status = status

	for _, entry := range history {
		if err := entry.Validate(); err != nil {
			return nil, err
		}
	}
	o.history = append([]StatusHistoryEntry(nil), history...)

	return o, nil
}

// Validate ensures the Order instance was created through NewOrder or RestoreOrder.
func (o *Order) Validate() error {
	if o == nil || !o.isConstructed {
		return ErrOrderIsNotConstructed
	}
	return nil
}

// IsEqual compares two orders by identity.
func (o *Order) IsEqual(other *Order) bool {
	return other != nil && o.id.IsEqual(other.id)
}

func (o *Order) ID() kernel.UUID {
	return o.id
}

func (o *Order) OrderNumber() string {
	return o.orderNumber
}

func (o *Order) Customer() string {
	return o.customer
}

func (o *Order) Product() string {
	return o.product
}

func (o *Order) Quantity() int {
	return o.quantity
}

func (o *Order) Status() Status {
	return o.status
}

func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

func (o *Order) UpdatedAt() time.Time {
	return o.updatedAt
}

// History returns stored and pending entries, oldest first. The slice is a copy.
func (o *Order) History() []StatusHistoryEntry {
	all := make([]StatusHistoryEntry, 0, len(o.history)+len(o.pending))
	all = append(all, o.history...)
	return append(all, o.pending...)
}

// PendingHistory returns entries appended since the order was loaded.
func (o *Order) PendingHistory() []StatusHistoryEntry {
	return append([]StatusHistoryEntry(nil), o.pending...)
}

// ChangeStatus moves the order to newStatus and appends the matching history
// entry. Empty notes are replaced by DefaultTransitionNotes.
//
// Legality of the move is not checked here; callers consult the status machine
// first. Repeating the current status is allowed and still records an entry.
func (o *Order) ChangeStatus(newStatus Status, notes string, now time.Time) error {
	if err := newStatus.Validate(); err != nil {
		return err
	}

	if strings.TrimSpace(notes) == "" {
		notes = DefaultTransitionNotes(o.status, newStatus)
	}

	entry, err := NewStatusHistoryEntry(newStatus, notes, now)
	if err != nil {
		return err
	}

	o.status = newStatus
	o.updatedAt = now.UTC()
	o.pending = append(o.pending, entry)
	return nil
}

// MarkHistoryPersisted moves pending entries into the stored history, assigning
// the sequence numbers storage generated for them, in the same order.
func (o *Order) MarkHistoryPersisted(seqs []int64) error {
	if len(seqs) != len(o.pending) {
		return fmt.Errorf("%w: %d pending, %d persisted", ErrHistoryMismatch, len(o.pending), len(seqs))
	}

	for i := range o.pending {
		o.pending[i].seq = seqs[i]
	}
	o.history = append(o.history, o.pending...)
	o.pending = nil
	return nil
}

// DefaultTransitionNotes is the note recorded when a status change carries none.
func DefaultTransitionNotes(from, to Status) string {
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

func (o *Order) setID(id kernel.UUID) error {
	if err := id.Validate(); err != nil {
		return err
	}
	o.id = id
	return nil
}

func (o *Order) setOrderNumber(orderNumber string) error {
	orderNumber = strings.TrimSpace(orderNumber)
	if err := validateText("order_number", orderNumber, MaxOrderNumberLength); err != nil {
		return err
	}
	o.orderNumber = orderNumber
	return nil
}

func (o *Order) setCustomer(customer string) error {
	customer = strings.TrimSpace(customer)
	if err := validateText("customer", customer, MaxTextLength); err != nil {
		return err
	}
	o.customer = customer
	return nil
}

func (o *Order) setProduct(product string) error {
	product = strings.TrimSpace(product)
	if err := validateText("product", product, MaxTextLength); err != nil {
		return err
	}
	o.product = product
	return nil
}

func (o *Order) setQuantity(quantity int) error {
	if quantity < 1 {
		return errs.NewValueIsOutOfRangeError("quantity", quantity, 1, "unbounded")
	}
	o.quantity = quantity
	return nil
}

func validateText(field, value string, maxLength int) error {
	if value == "" {
		return errs.NewValueIsRequiredError(field)
	}
	if n := utf8.RuneCountInString(value); n > maxLength {
		return errs.NewValueIsOutOfRangeError(field+" length", n, 1, maxLength)
	}
	return nil
}
