package queries_test

import (
	"context"
	"sync"
	"time"

	postgres_adapter "orderflow/internal/adapters/out/postgres"
	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// mapCache is an in-memory ports.Cache without expiry.
type mapCache[T any] struct {
	mu    sync.Mutex
	items map[string]T
	sets  int
}

func newMapCache[T any]() *mapCache[T] {
	return &mapCache[T]{items: make(map[string]T)}
}

func (c *mapCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *mapCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.sets++
}

func (c *mapCache[T]) Invalidate(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.items, key)
	}
}

// sqliteQuerySuite gives each test an empty in-memory order store.
type sqliteQuerySuite struct {
	suite.Suite
	db   *gorm.DB
	repo *orderrepo.GormOrderRepository
	base time.Time
}

func (s *sqliteQuerySuite) SetupSuite() {
	db, err := postgres_adapter.Open(postgres_adapter.DriverSQLite, postgres_adapter.MemorySQLiteDSN("queries_test"))
	s.Require().NoError(err)
	s.Require().NoError(postgres_adapter.Migrate(db))
	s.db = db
	s.repo = orderrepo.NewGormOrderRepository(db)
	s.base = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
}

func (s *sqliteQuerySuite) TearDownSuite() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (s *sqliteQuerySuite) SetupTest() {
	s.Require().NoError(s.db.Exec("DELETE FROM order_status_history").Error)
	s.Require().NoError(s.db.Exec("DELETE FROM orders").Error)
}

// seedOrder stores an order created minutesAfterBase minutes after the suite's
// base time and walks it through the given statuses one second apart.
func (s *sqliteQuerySuite) seedOrder(number string, minutesAfterBase int, path ...order.Status) *order.Order {
	created := s.base.Add(time.Duration(minutesAfterBase) * time.Minute)
	o, err := order.NewOrder(kernel.NewUUID(), number, "Customer "+number, "Product", 1, created)
	s.Require().NoError(err)

	ctx := context.Background()
	s.Require().NoError(s.repo.Add(ctx, o))

	for i, status := range path {
		s.Require().NoError(o.ChangeStatus(status, "", created.Add(time.Duration(i+1)*time.Second)))
		s.Require().NoError(s.repo.Update(ctx, o))
	}
	return o
}
