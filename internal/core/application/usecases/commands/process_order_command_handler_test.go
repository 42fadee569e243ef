package commands_test

import (
	"errors"
	"testing"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type processFixture struct {
	repo     *MockOrderRepository
	uow      *MockOrderUoW
	factory  *MockOrderUoWFactory
	statuses *MockStatusChanger
	client   *MockDeliveryClient
	handler  commands.ProcessOrderCommandHandler
}

func newProcessFixture() *processFixture {
	f := &processFixture{
		repo:     new(MockOrderRepository),
		uow:      new(MockOrderUoW),
		factory:  new(MockOrderUoWFactory),
		statuses: new(MockStatusChanger),
		client:   new(MockDeliveryClient),
	}
	f.factory.On("Create").Return(f.uow).Once()
	f.uow.On("OrderRepository").Return(f.repo).Once()
	f.handler = commands.NewProcessOrderCommandHandler(f.factory, f.statuses, f.client, discardLogger)
	return f
}

func (f *processFixture) assertExpectations(t *testing.T) {
	t.Helper()
	f.repo.AssertExpectations(t)
	f.uow.AssertExpectations(t)
	f.factory.AssertExpectations(t)
	f.statuses.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_Delivered(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Pending)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Processing)).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewDeliveredOutcome("ext-42", `{"id":"ext-42"}`)).Once(),
		f.statuses.On("Handle", ctx, mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
			return cmd.Status() == order.Completed && cmd.Notes() ==
				`Delivered to external service, external id ext-42: {"id":"ext-42"}`
		})).Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	require.NoError(t, f.handler.Handle(ctx, cmd))
	f.assertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_Unreachable(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Failed)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
			return cmd.Status() == order.Processing && cmd.Notes() == "Delivery attempt 2 started"
		})).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewUnreachableOutcome("connection refused")).Once(),
		f.statuses.On("Handle", ctx, mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
			return cmd.Status() == order.Failed && cmd.Notes() == "external service unreachable: connection refused"
		})).Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 2)
	err := f.handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, ports.ErrDeliveryUnreachable)
	f.assertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_Rejected(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Pending)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Processing)).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewRejectedOutcome("out of stock", 422, "")).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Failed)).Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	err := f.handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, ports.ErrDeliveryRejected)
	assert.Contains(t, err.Error(), "out of stock")
	f.assertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_ResumesProcessingOrder(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Processing)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewDeliveredOutcome("ext-1", "{}")).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Completed)).Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	require.NoError(t, f.handler.Handle(ctx, cmd))
	f.assertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_SkipsCompletedOrder(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Completed)

	f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once()

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	require.NoError(t, f.handler.Handle(ctx, cmd))
	f.client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	f.statuses.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func TestProcessOrderCommandHandler_Handle_SkipsFailedOrderOnFirstAttempt(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Failed)

	f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once()

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	require.NoError(t, f.handler.Handle(ctx, cmd))
	f.client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
	f.statuses.AssertNotCalled(t, "Handle", mock.Anything, mock.Anything)
}

func progressOf(t *testing.T, cmd commands.ChangeOrderStatusCommand) ports.DeliveryProgress {
	t.Helper()
	progress, ok := cmd.DeliveryProgress()
	require.True(t, ok, "transition to %s carries no delivery progress", cmd.Status())
	return progress
}

func TestProcessOrderCommandHandler_Handle_FailureStoresRetryTime(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Pending)

	var failed commands.ChangeOrderStatusCommand
	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
			_, ok := cmd.DeliveryProgress()
			return cmd.Status() == order.Processing && !ok
		})).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewUnreachableOutcome("timeout")).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Failed)).
			Run(func(args mock.Arguments) {
				failed = args.Get(1).(commands.ChangeOrderStatusCommand)
			}).
			Return(nil).Once(),
	)

	before := time.Now()
	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	err := f.handler.Handle(ctx, cmd.WithRetry(time.Minute))

	require.ErrorIs(t, err, ports.ErrDeliveryUnreachable)
	f.assertExpectations(t)

	progress := progressOf(t, failed)
	assert.Equal(t, 1, progress.Attempts)
	assert.WithinRange(t, progress.NextAttemptAt, before.Add(time.Minute), time.Now().Add(time.Minute))
}

func TestProcessOrderCommandHandler_Handle_LastAttemptStoresNoRetry(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Failed)

	var failed commands.ChangeOrderStatusCommand
	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Processing)).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewRejectedOutcome("bad gateway", 502, "")).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Failed)).
			Run(func(args mock.Arguments) {
				failed = args.Get(1).(commands.ChangeOrderStatusCommand)
			}).
			Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 3)
	require.ErrorIs(t, f.handler.Handle(ctx, cmd), ports.ErrDeliveryRejected)
	f.assertExpectations(t)

	progress := progressOf(t, failed)
	assert.Equal(t, 3, progress.Attempts)
	assert.True(t, progress.NextAttemptAt.IsZero())
}

func TestProcessOrderCommandHandler_Handle_CompletionStoresAttempts(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Processing)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewDeliveredOutcome("ext-7", "{}")).Once(),
		f.statuses.On("Handle", ctx, mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
			progress, ok := cmd.DeliveryProgress()
			return cmd.Status() == order.Completed && ok &&
				progress == ports.DeliveryProgress{Attempts: 2}
		})).Return(nil).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 2)
	require.NoError(t, f.handler.Handle(ctx, cmd.WithRetry(time.Minute)))
	f.assertExpectations(t)
}

func TestProcessOrderCommandHandler_Handle_OrderNotFound(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	id := kernel.NewUUID()

	f.repo.On("Get", ctx, id).Return(nil, errs.NewObjectNotFoundError("order", id.String())).Once()

	cmd, _ := commands.NewProcessOrderCommand(id, 1)
	err := f.handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, errs.ErrObjectNotFound)
	f.client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestProcessOrderCommandHandler_Handle_TransitionErrorStopsAttempt(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Pending)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Processing)).Return(errors.New("deadlock")).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	err := f.handler.Handle(ctx, cmd)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	f.client.AssertNotCalled(t, "Deliver", mock.Anything, mock.Anything)
}

func TestProcessOrderCommandHandler_Handle_FailTransitionErrorIsJoined(t *testing.T) {
	ctx := t.Context()
	f := newProcessFixture()
	o := restoredOrder(t, order.Pending)

	mock.InOrder(
		f.repo.On("Get", ctx, o.ID()).Return(o, nil).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Processing)).Return(nil).Once(),
		f.client.On("Deliver", ctx, o).Return(ports.NewUnreachableOutcome("timeout")).Once(),
		f.statuses.On("Handle", ctx, statusIs(order.Failed)).Return(errors.New("db down")).Once(),
	)

	cmd, _ := commands.NewProcessOrderCommand(o.ID(), 1)
	err := f.handler.Handle(ctx, cmd)

	require.ErrorIs(t, err, ports.ErrDeliveryUnreachable)
	assert.Contains(t, err.Error(), "db down")
}

func TestNewProcessOrderCommand(t *testing.T) {
	id := kernel.NewUUID()

	cmd, err := commands.NewProcessOrderCommand(id, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cmd.Attempt())
	assert.Equal(t, id, cmd.OrderID())

	_, err = commands.NewProcessOrderCommand(kernel.UUID{}, 1)
	require.ErrorIs(t, err, kernel.ErrUUIDIsNotConstructed)

	require.ErrorIs(t, commands.ProcessOrderCommand{}.Validate(), commands.ErrProcessOrderCommandIsNotConstructed)

	_, ok := cmd.RetryDelay()
	assert.False(t, ok)

	delay, ok := cmd.WithRetry(5 * time.Second).RetryDelay()
	assert.True(t, ok)
	assert.Equal(t, 5*time.Second, delay)
}
