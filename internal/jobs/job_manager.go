package jobs

import (
	"fmt"
	"log/slog"
	"time"

	"orderflow/internal/core/application/usecases/commands"
)

// JobManager owns the background machinery: the delivery queue and the
// recovery sweep that feeds it.
type JobManager struct {
	queue         *DeliveryQueue
	recoverySweep *RecoverySweepJob
}

// NewJobManager wires the delivery queue to the process and status handlers.
func NewJobManager(
	processor OrderProcessor,
	statuses commands.StatusChanger,
	uowFactory commands.OrderUoWFactory,
	policy RetryPolicy,
	workers int,
	recoverySchedule string,
	staleAfter time.Duration,
	logger *slog.Logger,
) *JobManager {
	queue := NewDeliveryQueue(processor, statuses, policy, workers, logger)
	return &JobManager{
		queue:         queue,
		recoverySweep: NewRecoverySweepJob(uowFactory, queue, policy, recoverySchedule, staleAfter, logger),
	}
}

// Queue exposes the delivery queue so the import handler can enqueue into it.
func (jm *JobManager) Queue() *DeliveryQueue {
	return jm.queue
}

// StartAll starts all scheduled jobs.
func (jm *JobManager) StartAll() error {
	if err := jm.recoverySweep.Start(); err != nil {
		jm.queue.Stop()
		return fmt.Errorf("failed to start recovery sweep job: %w", err)
	}
	return nil
}

// StopAll stops the sweep first so nothing enqueues into a stopping queue.
func (jm *JobManager) StopAll() {
	jm.recoverySweep.Stop()
	jm.queue.Stop()
}
