package order

import (
	"errors"
	"time"

	"orderflow/internal/pkg/guard"
)

var ErrStatusHistoryEntryIsNotConstructed = errors.New(
	"StatusHistoryEntry must be created via NewStatusHistoryEntry or RestoreStatusHistoryEntry",
)

// StatusHistoryEntry is one immutable row of an order's audit log.
//
// Entries are ordered by CreatedAt and then by Seq. Seq is assigned by storage
// when the entry is written and is zero for entries that are not persisted yet.
type StatusHistoryEntry struct {
	seq       int64
	status    Status
	notes     string
	createdAt time.Time

	guard guard.ConstructorGuard
}

// NewStatusHistoryEntry builds an entry that has not been persisted yet.
func NewStatusHistoryEntry(status Status, notes string, createdAt time.Time) (StatusHistoryEntry, error) {
	if err := status.Validate(); err != nil {
		return StatusHistoryEntry{}, err
	}

	return StatusHistoryEntry{
		status:    status,
		notes:     notes,
		createdAt: createdAt.UTC(),
		guard:     guard.NewConstructorGuard(),
	}, nil
}

// RestoreStatusHistoryEntry rebuilds a stored entry.
func RestoreStatusHistoryEntry(seq int64, status Status, notes string, createdAt time.Time) (StatusHistoryEntry, error) {
	entry, err := NewStatusHistoryEntry(status, notes, createdAt)
	if err != nil {
		return StatusHistoryEntry{}, err
	}
	entry.seq = seq
	return entry, nil
}

func (e StatusHistoryEntry) Validate() error {
	return e.guard.Validate(ErrStatusHistoryEntryIsNotConstructed)
}

func (e StatusHistoryEntry) Seq() int64 {
	return e.seq
}

func (e StatusHistoryEntry) Status() Status {
	return e.status
}

func (e StatusHistoryEntry) Notes() string {
	return e.notes
}

func (e StatusHistoryEntry) CreatedAt() time.Time {
	return e.createdAt
}

// Before orders two entries by creation time, then by sequence.
func (e StatusHistoryEntry) Before(other StatusHistoryEntry) bool {
	if !e.createdAt.Equal(other.createdAt) {
		return e.createdAt.Before(other.createdAt)
	}
	return e.seq < other.seq
}
