package commands_test

import (
	"context"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"

	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct{ mock.Mock }

func (m *MockOrderRepository) Add(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Update(ctx context.Context, o *order.Order) error {
	args := m.Called(ctx, o)
	return args.Error(0)
}

func (m *MockOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	o, _ := args.Get(0).(*order.Order)
	return o, args.Error(1)
}

func (m *MockOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	args := m.Called(ctx, orderNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) SaveDeliveryProgress(ctx context.Context, id kernel.UUID, progress ports.DeliveryProgress) error {
	args := m.Called(ctx, id, progress)
	return args.Error(0)
}

func (m *MockOrderRepository) FindResumable(ctx context.Context, criteria ports.ResumeCriteria) ([]ports.ResumableOrder, error) {
	args := m.Called(ctx, criteria)
	orders, _ := args.Get(0).([]ports.ResumableOrder)
	return orders, args.Error(1)
}

type MockOrderUoW struct{ mock.Mock }

func (m *MockOrderUoW) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockOrderUoW) OrderRepository() ports.OrderRepository {
	args := m.Called()
	return args.Get(0).(ports.OrderRepository)
}

type MockOrderUoWFactory struct{ mock.Mock }

func (m *MockOrderUoWFactory) Create() commands.OrderUoW {
	args := m.Called()
	return args.Get(0).(commands.OrderUoW)
}

type MockJobQueue struct{ mock.Mock }

func (m *MockJobQueue) Enqueue(ctx context.Context, id kernel.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockCacheInvalidator struct{ mock.Mock }

func (m *MockCacheInvalidator) Invalidate(keys ...string) {
	m.Called(keys)
}

type MockDeliveryClient struct{ mock.Mock }

func (m *MockDeliveryClient) Deliver(ctx context.Context, o *order.Order) ports.DeliveryOutcome {
	args := m.Called(ctx, o)
	return args.Get(0).(ports.DeliveryOutcome)
}

func (m *MockDeliveryClient) HealthCheck(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

type MockStatusChanger struct{ mock.Mock }

func (m *MockStatusChanger) Handle(ctx context.Context, cmd commands.ChangeOrderStatusCommand) error {
	args := m.Called(ctx, cmd)
	return args.Error(0)
}

// statusIs matches a ChangeOrderStatusCommand by target status.
func statusIs(status order.Status) any {
	return mock.MatchedBy(func(cmd commands.ChangeOrderStatusCommand) bool {
		return cmd.Status() == status
	})
}
