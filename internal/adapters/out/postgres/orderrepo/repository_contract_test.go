package orderrepo_test

import (
	"context"
	"time"

	"orderflow/internal/adapters/out/postgres/orderrepo"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// repositoryContractSuite holds the behaviour every dialect must show. Dialect
// suites embed it and provide db and cleanup.
type repositoryContractSuite struct {
	suite.Suite
	db         *gorm.DB
	cleanup    func(db *gorm.DB) error
	repository *orderrepo.GormOrderRepository
}

func (s *repositoryContractSuite) SetupTest() {
	s.Require().NoError(s.cleanup(s.db))
	s.repository = orderrepo.NewGormOrderRepository(s.db)
}

func (s *repositoryContractSuite) repositoryFor(db *gorm.DB) *orderrepo.GormOrderRepository {
	return orderrepo.NewGormOrderRepository(db)
}

func (s *repositoryContractSuite) newOrder(number string, at time.Time) *order.Order {
	o, err := order.NewOrder(kernel.NewUUID(), number, "Ana", "Mouse", 2, at)
	s.Require().NoError(err)
	return o
}

func (s *repositoryContractSuite) TestAdd_PersistsOrderWithInitialHistory() {
	ctx := context.Background()
	o := s.newOrder("ORD-1", time.Now())

	s.Require().NoError(s.repository.Add(ctx, o))

	s.Empty(o.PendingHistory())

	loaded, err := s.repository.Get(ctx, o.ID())
	s.Require().NoError(err)
	s.Equal("ORD-1", loaded.OrderNumber())
	s.Equal("Ana", loaded.Customer())
	s.Equal("Mouse", loaded.Product())
	s.Equal(2, loaded.Quantity())
	s.Equal(order.Pending, loaded.Status())

	history := loaded.History()
	s.Require().Len(history, 1)
	s.Equal(order.Pending, history[0].Status())
	s.Equal(order.CreatedNotes, history[0].Notes())
	s.Positive(history[0].Seq())
}

func (s *repositoryContractSuite) TestAdd_DuplicateOrderNumber() {
	ctx := context.Background()
	s.Require().NoError(s.repository.Add(ctx, s.newOrder("ORD-2", time.Now())))

	err := s.repository.Add(ctx, s.newOrder("ORD-2", time.Now()))

	s.Require().ErrorIs(err, errs.ErrObjectAlreadyExists)
	s.Contains(err.Error(), "ORD-2")
}

func (s *repositoryContractSuite) TestAdd_DuplicateKeepsOuterTransactionUsable() {
	ctx := context.Background()
	s.Require().NoError(s.repository.Add(ctx, s.newOrder("ORD-2", time.Now())))

	tx := s.db.Begin()
	s.Require().NoError(tx.Error)
	txRepo := s.repositoryFor(tx)

	s.Require().NoError(txRepo.Add(ctx, s.newOrder("ORD-10", time.Now())))
	s.Require().ErrorIs(txRepo.Add(ctx, s.newOrder("ORD-2", time.Now())), errs.ErrObjectAlreadyExists)
	s.Require().NoError(txRepo.Add(ctx, s.newOrder("ORD-11", time.Now())))
	s.Require().NoError(tx.Commit().Error)

	var count int64
	s.Require().NoError(s.db.Model(&orderrepo.OrderDTO{}).Count(&count).Error)
	s.Equal(int64(3), count)
}

func (s *repositoryContractSuite) TestAdd_InvalidAggregate() {
	err := s.repository.Add(context.Background(), &order.Order{})

	s.Require().ErrorIs(err, order.ErrOrderIsNotConstructed)
}

func (s *repositoryContractSuite) TestGet_NonExistentOrder_ReturnsNotFoundError() {
	_, err := s.repository.Get(context.Background(), kernel.NewUUID())

	s.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (s *repositoryContractSuite) TestUpdate_AppendsHistoryInOrder() {
	ctx := context.Background()
	start := time.Now().UTC().Truncate(time.Millisecond)
	o := s.newOrder("ORD-1", start)
	s.Require().NoError(s.repository.Add(ctx, o))

	s.Require().NoError(o.ChangeStatus(order.Processing, "", start.Add(time.Second)))
	s.Require().NoError(s.repository.Update(ctx, o))
	s.Require().NoError(o.ChangeStatus(order.Completed, "done", start.Add(2*time.Second)))
	s.Require().NoError(o.ChangeStatus(order.Completed, "done again", start.Add(2*time.Second)))
	s.Require().NoError(s.repository.Update(ctx, o))

	loaded, err := s.repository.Get(ctx, o.ID())
	s.Require().NoError(err)
	s.Equal(order.Completed, loaded.Status())
	s.WithinDuration(start.Add(2*time.Second), loaded.UpdatedAt(), time.Millisecond)

	history := loaded.History()
	s.Require().Len(history, 4)
	s.Equal(
		[]order.Status{order.Pending, order.Processing, order.Completed, order.Completed},
		[]order.Status{history[0].Status(), history[1].Status(), history[2].Status(), history[3].Status()},
	)
	s.Equal("Status changed from pending to processing", history[1].Notes())
	s.Equal("done", history[2].Notes())
	s.Equal("done again", history[3].Notes())
	s.Less(history[2].Seq(), history[3].Seq())
}

func (s *repositoryContractSuite) TestUpdate_NonExistentOrder_ReturnsNotFound() {
	o := s.newOrder("ORD-404", time.Now())
	s.Require().NoError(o.ChangeStatus(order.Processing, "", time.Now()))

	err := s.repository.Update(context.Background(), o)

	s.Require().ErrorIs(err, errs.ErrObjectNotFound)

	var historyRows int64
	s.Require().NoError(s.db.Model(&orderrepo.StatusHistoryDTO{}).Count(&historyRows).Error)
	s.Zero(historyRows)
}

func (s *repositoryContractSuite) TestGetForUpdate_WithinTransaction() {
	ctx := context.Background()
	o := s.newOrder("ORD-1", time.Now())
	s.Require().NoError(s.repository.Add(ctx, o))

	tx := s.db.Begin()
	s.Require().NoError(tx.Error)
	txRepo := s.repositoryFor(tx)

	locked, err := txRepo.GetForUpdate(ctx, o.ID())
	s.Require().NoError(err)
	s.Require().NoError(locked.ChangeStatus(order.Processing, "locked", time.Now()))
	s.Require().NoError(txRepo.Update(ctx, locked))
	s.Require().NoError(tx.Commit().Error)

	loaded, err := s.repository.Get(ctx, o.ID())
	s.Require().NoError(err)
	s.Equal(order.Processing, loaded.Status())
	s.Len(loaded.History(), 2)
}

func (s *repositoryContractSuite) TestExistsByOrderNumber_SeesSameTransactionWrites() {
	ctx := context.Background()

	tx := s.db.Begin()
	s.Require().NoError(tx.Error)
	txRepo := s.repositoryFor(tx)

	exists, err := txRepo.ExistsByOrderNumber(ctx, "ORD-9")
	s.Require().NoError(err)
	s.False(exists)

	s.Require().NoError(txRepo.Add(ctx, s.newOrder("ORD-9", time.Now())))

	exists, err = txRepo.ExistsByOrderNumber(ctx, "ORD-9")
	s.Require().NoError(err)
	s.True(exists)

	s.Require().NoError(tx.Rollback().Error)

	exists, err = s.repository.ExistsByOrderNumber(ctx, "ORD-9")
	s.Require().NoError(err)
	s.False(exists)
}

func (s *repositoryContractSuite) resumeCriteria(now time.Time, limit int) ports.ResumeCriteria {
	return ports.ResumeCriteria{
		StaleBefore: now.Add(-5 * time.Minute),
		RetryDueBy:  now,
		MaxAttempts: 3,
		Limit:       limit,
	}
}

func (s *repositoryContractSuite) TestFindResumable_StalePendingAndProcessing() {
	ctx := context.Background()
	now := time.Now().UTC()

	stalePending := s.newOrder("ORD-1", now.Add(-time.Hour))
	staleProcessing := s.newOrder("ORD-2", now.Add(-2*time.Hour))
	s.Require().NoError(staleProcessing.ChangeStatus(order.Processing, "", now.Add(-30*time.Minute)))
	freshPending := s.newOrder("ORD-3", now)
	staleCompleted := s.newOrder("ORD-4", now.Add(-time.Hour))
	s.Require().NoError(staleCompleted.ChangeStatus(order.Completed, "", now.Add(-time.Hour)))

	for _, o := range []*order.Order{stalePending, staleProcessing, freshPending, staleCompleted} {
		s.Require().NoError(s.repository.Add(ctx, o))
	}
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, staleProcessing.ID(), ports.DeliveryProgress{Attempts: 1}))

	found, err := s.repository.FindResumable(ctx, s.resumeCriteria(now, 10))
	s.Require().NoError(err)
	s.Require().Len(found, 2)
	s.True(found[0].ID.IsEqual(stalePending.ID()), "oldest update first")
	s.Zero(found[0].Attempts)
	s.True(found[1].ID.IsEqual(staleProcessing.ID()))
	s.Equal(1, found[1].Attempts)

	limited, err := s.repository.FindResumable(ctx, s.resumeCriteria(now, 1))
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func (s *repositoryContractSuite) TestFindResumable_FailedWithDueRetry() {
	ctx := context.Background()
	now := time.Now().UTC()

	failed := func(number string) *order.Order {
		o := s.newOrder(number, now.Add(-time.Hour))
		s.Require().NoError(o.ChangeStatus(order.Failed, "timeout", now.Add(-time.Minute)))
		s.Require().NoError(s.repository.Add(ctx, o))
		return o
	}

	due := failed("ORD-1")
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, due.ID(),
		ports.DeliveryProgress{Attempts: 2, NextAttemptAt: now.Add(-time.Second)}))

	later := failed("ORD-2")
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, later.ID(),
		ports.DeliveryProgress{Attempts: 1, NextAttemptAt: now.Add(time.Minute)}))

	usedUp := failed("ORD-3")
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, usedUp.ID(),
		ports.DeliveryProgress{Attempts: 3, NextAttemptAt: now.Add(-time.Second)}))

	unscheduled := failed("ORD-4")
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, unscheduled.ID(),
		ports.DeliveryProgress{Attempts: 1}))

	found, err := s.repository.FindResumable(ctx, s.resumeCriteria(now, 10))
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.True(found[0].ID.IsEqual(due.ID()))
	s.Equal(2, found[0].Attempts)
}

func (s *repositoryContractSuite) TestSaveDeliveryProgress() {
	ctx := context.Background()
	o := s.newOrder("ORD-1", time.Now())
	s.Require().NoError(s.repository.Add(ctx, o))

	next := time.Now().Add(time.Minute)
	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, o.ID(), ports.DeliveryProgress{Attempts: 2, NextAttemptAt: next}))

	var row orderrepo.OrderDTO
	s.Require().NoError(s.db.First(&row, "id = ?", o.ID().Raw()).Error)
	s.Equal(2, row.Attempts)
	s.Require().NotNil(row.NextAttemptAt)
	s.WithinDuration(next, *row.NextAttemptAt, time.Second)
	s.Equal(order.Pending.String(), row.Status, "status is left alone")

	s.Require().NoError(s.repository.SaveDeliveryProgress(ctx, o.ID(), ports.DeliveryProgress{Attempts: 3}))
	row = orderrepo.OrderDTO{}
	s.Require().NoError(s.db.First(&row, "id = ?", o.ID().Raw()).Error)
	s.Equal(3, row.Attempts)
	s.Nil(row.NextAttemptAt)
}

func (s *repositoryContractSuite) TestSaveDeliveryProgress_UnknownOrder() {
	err := s.repository.SaveDeliveryProgress(context.Background(), kernel.NewUUID(), ports.DeliveryProgress{Attempts: 1})
	s.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (s *repositoryContractSuite) TestDeleteOrder_CascadesHistory() {
	ctx := context.Background()
	o := s.newOrder("ORD-1", time.Now())
	s.Require().NoError(s.repository.Add(ctx, o))

	s.Require().NoError(s.db.Delete(&orderrepo.OrderDTO{}, "id = ?", o.ID().Raw()).Error)

	var historyRows int64
	s.Require().NoError(s.db.Model(&orderrepo.StatusHistoryDTO{}).Where("order_id = ?", o.ID().Raw()).Count(&historyRows).Error)
	s.Zero(historyRows)
}
