package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/domain/model/order"
	"orderflow/internal/core/ports"
	"orderflow/internal/pkg/errs"

	"github.com/gammazero/workerpool"
)

// ErrQueueStopped is returned by Enqueue and Resume after Stop.
var ErrQueueStopped = errors.New("delivery queue is stopped")

// OrderProcessor runs one delivery attempt. ProcessOrderCommandHandler implements it.
type OrderProcessor interface {
	Handle(ctx context.Context, cmd commands.ProcessOrderCommand) error
}

// DeliveryQueue runs delivery jobs on a bounded worker pool.
//
// An order has at most one active job: queued, running or waiting for a retry.
// Retries are scheduled with timers so no worker sleeps through a backoff.
// Once the retry policy gives up, the order is moved to failed with a note
// naming the number of attempts and the last error.
//
// Jobs live in memory only. Every attempt stores its number on the order, and
// a failed attempt that will be retried also stores when the retry is due.
// Orders whose job was lost, with the process or with Stop, are picked up
// again by RecoverySweepJob from the stored attempt.
type DeliveryQueue struct {
	processor OrderProcessor
	statuses  commands.StatusChanger
	policy    RetryPolicy
	pool      *workerpool.WorkerPool
	logger    *slog.Logger

	mu      sync.Mutex
	active  map[kernel.UUID]struct{}
	timers  map[kernel.UUID]*time.Timer
	stopped bool
}

var _ ports.DeliveryJobQueue = (*DeliveryQueue)(nil)

func NewDeliveryQueue(
	processor OrderProcessor,
	statuses commands.StatusChanger,
	policy RetryPolicy,
	workers int,
	logger *slog.Logger,
) *DeliveryQueue {
	if workers < 1 {
		workers = 1
	}
	return &DeliveryQueue{
		processor: processor,
		statuses:  statuses,
		policy:    policy,
		pool:      workerpool.New(workers),
		logger:    logger.With("component", "delivery_queue"),
		active:    make(map[kernel.UUID]struct{}),
		timers:    make(map[kernel.UUID]*time.Timer),
	}
}

// Enqueue schedules the first attempt for orderID and returns immediately.
func (q *DeliveryQueue) Enqueue(ctx context.Context, orderID kernel.UUID) error {
	return q.Resume(ctx, orderID, 1)
}

// Resume schedules orderID starting at the given attempt. It is a no-op when
// the order already has an active job.
func (q *DeliveryQueue) Resume(ctx context.Context, orderID kernel.UUID, attempt int) error {
	if err := orderID.Validate(); err != nil {
		return err
	}
	attempt = max(attempt, 1)

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		return ErrQueueStopped
	}
	if _, ok := q.active[orderID]; ok {
		q.logger.DebugContext(ctx, "Delivery job already active", "order_id", orderID.String())
		return nil
	}

	q.active[orderID] = struct{}{}
	q.submitLocked(orderID, attempt)
	return nil
}

// Active returns the number of orders with a queued, running or scheduled job.
func (q *DeliveryQueue) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.active)
}

// Stop cancels scheduled retries, drops queued jobs and waits for running
// ones to finish.
func (q *DeliveryQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.mu.Unlock()

	q.pool.Stop()
	q.logger.InfoContext(context.Background(), "Delivery queue stopped")
}

func (q *DeliveryQueue) submitLocked(orderID kernel.UUID, attempt int) {
	q.pool.Submit(func() {
		q.run(orderID, attempt)
	})
}

func (q *DeliveryQueue) run(orderID kernel.UUID, attempt int) {
	ctx := context.Background()
	log := q.logger.With("order_id", orderID.String(), "attempt", attempt)

	cmd, err := commands.NewProcessOrderCommand(orderID, attempt)
	if err == nil {
		if q.policy.HasAttemptAfter(attempt) {
			cmd = cmd.WithRetry(q.policy.Delay(attempt))
		}
		err = q.processor.Handle(ctx, cmd)
	}

	switch {
	case err == nil:
		q.release(orderID)
	case errors.Is(err, errs.ErrObjectNotFound):
		log.WarnContext(ctx, "Order disappeared before delivery, dropping job", "error", err)
		q.release(orderID)
	case q.policy.ShouldRetry(attempt, err):
		delay := q.policy.Delay(attempt)
		log.WarnContext(ctx, "Delivery attempt failed, retry scheduled", "error", err, "retry_in", delay.String())
		q.scheduleRetry(orderID, attempt+1, delay)
	default:
		q.exhaust(ctx, log, orderID, attempt, err)
		q.release(orderID)
	}
}

func (q *DeliveryQueue) scheduleRetry(orderID kernel.UUID, attempt int, delay time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.stopped {
		delete(q.active, orderID)
		return
	}

	q.timers[orderID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.timers, orderID)
		if q.stopped {
			delete(q.active, orderID)
			return
		}
		q.submitLocked(orderID, attempt)
	})
}

func (q *DeliveryQueue) exhaust(ctx context.Context, log *slog.Logger, orderID kernel.UUID, attempts int, lastErr error) {
	log.ErrorContext(ctx, "Delivery job failed permanently", "error", fmt.Errorf("%w: %w", ErrAttemptsExhausted, lastErr))

	notes := fmt.Sprintf("Job failed after %d attempts: %v", attempts, lastErr)
	cmd, err := commands.NewChangeOrderStatusCommand(orderID, order.Failed, notes)
	if err == nil {
		err = q.statuses.Handle(ctx, cmd.WithDeliveryProgress(ports.DeliveryProgress{Attempts: attempts}))
	}
	if err != nil {
		log.ErrorContext(ctx, "Failed to record permanent delivery failure", "error", err)
	}
}

func (q *DeliveryQueue) release(orderID kernel.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.active, orderID)
}
