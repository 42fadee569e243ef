package order_test

import (
	"testing"

	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Validate(t *testing.T) {
	for _, s := range order.AllStatuses() {
		t.Run("should accept "+s.String(), func(t *testing.T) {
			require.NoError(t, s.Validate())
		})
	}

	for _, raw := range []string{"", "Pending", "shipped", "unknown"} {
		t.Run("should reject "+raw, func(t *testing.T) {
			err := order.Status(raw).Validate()
			require.ErrorIs(t, err, errs.ErrValueIsInvalid)
		})
	}
}

func TestParseStatus(t *testing.T) {
	t.Run("should normalize case and whitespace", func(t *testing.T) {
		s, err := order.ParseStatus("  Completed ")

		require.NoError(t, err)
		assert.Equal(t, order.Completed, s)
	})

	t.Run("should reject unknown values", func(t *testing.T) {
		_, err := order.ParseStatus("cancelled")

		require.Error(t, err)
		assert.Contains(t, err.Error(), `"cancelled" is not a valid status`)
	})
}

func TestStatus_IsTerminal(t *testing.T) {
	assert.False(t, order.Pending.IsTerminal())
	assert.False(t, order.Processing.IsTerminal())
	assert.True(t, order.Completed.IsTerminal())
	assert.True(t, order.Failed.IsTerminal())
}

func TestAllStatuses(t *testing.T) {
	assert.Equal(t,
		[]order.Status{order.Pending, order.Processing, order.Completed, order.Failed},
		order.AllStatuses())
}
