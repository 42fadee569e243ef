package commands_test

import (
	"testing"
	"time"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/require"
)

func restoredOrder(t *testing.T, status order.Status) *order.Order {
	t.Helper()
	now := time.Now().UTC()
	entry, err := order.RestoreStatusHistoryEntry(1, order.Pending, order.CreatedNotes, now)
	require.NoError(t, err)

	o, err := order.RestoreOrder(kernel.NewUUID(), "ORD-1", "Ana", "Mouse", 2, status, now, now,
		[]order.StatusHistoryEntry{entry})
	require.NoError(t, err)
	return o
}
