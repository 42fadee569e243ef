package orderrepo

import (
	"context"
	"errors"

	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements OrderRepository using GORM.
//
// Writes run inside db.Transaction, which opens a savepoint when db is already
// a transaction. A failed Add therefore leaves the caller's transaction usable,
// which the batch import relies on.
//
// gorm.ErrDuplicatedKey is only produced when the *gorm.DB was opened with
// TranslateError enabled.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// Add saves a new order and its pending history entries.
func (r *GormOrderRepository) Add(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	dto := fromDomain(aggregate)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&dto).Error; err != nil {
			return err
		}
		return appendHistory(tx, aggregate)
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errs.NewObjectAlreadyExistsErrorWithCause("order_number", aggregate.OrderNumber(), err)
	}
	return err
}

// Update saves status and updated_at together with the pending history entries.
func (r *GormOrderRepository) Update(ctx context.Context, aggregate *order.Order) error {
	if err := aggregate.Validate(); err != nil {
		return err
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&OrderDTO{}).
			Where("id = ?", aggregate.ID().Raw()).
			Updates(map[string]any{
				"status":     aggregate.Status().String(),
				"updated_at": aggregate.UpdatedAt(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errs.NewObjectNotFoundError("order", aggregate.ID().String())
		}
		return appendHistory(tx, aggregate)
	})
}

// Get retrieves an order by ID with its history.
func (r *GormOrderRepository) Get(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	return r.find(ctx, id, false)
}

// GetForUpdate retrieves an order by ID, locking its row until the transaction
// ends. SQLite has no row locks and serializes writers on its own.
func (r *GormOrderRepository) GetForUpdate(ctx context.Context, id kernel.UUID) (*order.Order, error) {
	return r.find(ctx, id, true)
}

// ExistsByOrderNumber checks the business key, seeing rows written earlier in the same transaction.
func (r *GormOrderRepository) ExistsByOrderNumber(ctx context.Context, orderNumber string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("order_number = ?", orderNumber).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveDeliveryProgress updates the attempt counter and the next retry time.
func (r *GormOrderRepository) SaveDeliveryProgress(ctx context.Context, id kernel.UUID, progress ports.DeliveryProgress) error {
	if err := id.Validate(); err != nil {
		return err
	}

	var nextAttemptAt any
	if !progress.NextAttemptAt.IsZero() {
		nextAttemptAt = progress.NextAttemptAt.UTC()
	}

	result := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Where("id = ?", id.Raw()).
		Updates(map[string]any{
			"attempts":        progress.Attempts,
			"next_attempt_at": nextAttemptAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errs.NewObjectNotFoundError("order", id.String())
	}
	return nil
}

// FindResumable selects pending and processing orders untouched since
// StaleBefore, and failed orders with attempts left whose retry is due by
// RetryDueBy. A failed order without a scheduled retry is never selected.
func (r *GormOrderRepository) FindResumable(ctx context.Context, criteria ports.ResumeCriteria) ([]ports.ResumableOrder, error) {
	var rows []struct {
		ID       uuid.UUID
		Attempts int
	}

	query := r.db.WithContext(ctx).
		Model(&OrderDTO{}).
		Select("id", "attempts").
		Where(
			"(status IN ? AND updated_at < ?) OR "+
				"(status = ? AND next_attempt_at IS NOT NULL AND next_attempt_at <= ? AND attempts < ?)",
			[]string{order.Pending.String(), order.Processing.String()},
			criteria.StaleBefore.UTC(),
			order.Failed.String(),
			criteria.RetryDueBy.UTC(),
			max(criteria.MaxAttempts, 1),
		).
		Order("updated_at ASC")
	if criteria.Limit > 0 {
		query = query.Limit(criteria.Limit)
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	resumable := make([]ports.ResumableOrder, 0, len(rows))
	for _, row := range rows {
		id, err := kernel.UUIDFromRaw(row.ID)
		if err != nil {
			return nil, err
		}
		resumable = append(resumable, ports.ResumableOrder{ID: id, Attempts: row.Attempts})
	}
	return resumable, nil
}

func (r *GormOrderRepository) find(ctx context.Context, id kernel.UUID, lock bool) (*order.Order, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}

	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var dto OrderDTO
	if err := query.First(&dto, "id = ?", id.Raw()).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NewObjectNotFoundError("order", id.String())
		}
		return nil, err
	}

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", dto.ID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&dto.History).Error; err != nil {
		return nil, err
	}

	return toDomain(dto)
}

// appendHistory inserts the pending entries one by one so each gets its sequence back.
func appendHistory(tx *gorm.DB, aggregate *order.Order) error {
	pending := aggregate.PendingHistory()
	if len(pending) == 0 {
		return nil
	}

	seqs := make([]int64, 0, len(pending))
	for _, entry := range pending {
		row := historyFromDomain(aggregate.ID().Raw(), entry)
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		seqs = append(seqs, row.Seq)
	}

	return aggregate.MarkHistoryPersisted(seqs)
}
