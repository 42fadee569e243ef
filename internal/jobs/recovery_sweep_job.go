package jobs

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"
	"orderflow/internal/core/ports"

	"github.com/robfig/cron/v3"
)

const (
	DefaultRecoverySchedule   = "0 * * * * *"
	DefaultRecoveryStaleAfter = 5 * time.Minute
	recoveryBatchSize         = 500
)

// JobResumer continues delivery of an order from a given attempt. DeliveryQueue implements it.
type JobResumer interface {
	Resume(ctx context.Context, orderID kernel.UUID, attempt int) error
}

// RecoverySweepJob hands orders whose job was lost back to the queue:
//   - orders left in pending or processing for longer than staleAfter
//   - failed orders with a retry that is due and attempts left under the policy
//
// Each order resumes at the attempt after the last one it recorded. Jobs are
// held in memory, so this is what carries deliveries across restarts. It sweeps
// once on Start and then on the cron schedule.
type RecoverySweepJob struct {
	uowFactory commands.OrderUoWFactory
	queue      JobResumer
	policy     RetryPolicy
	schedule   string
	staleAfter time.Duration
	now        func() time.Time
	cron       *cron.Cron
	logger     *slog.Logger
}

func NewRecoverySweepJob(
	uowFactory commands.OrderUoWFactory,
	queue JobResumer,
	policy RetryPolicy,
	schedule string,
	staleAfter time.Duration,
	logger *slog.Logger,
) *RecoverySweepJob {
	if schedule == "" {
		schedule = DefaultRecoverySchedule
	}
	if staleAfter <= 0 {
		staleAfter = DefaultRecoveryStaleAfter
	}
	return &RecoverySweepJob{
		uowFactory: uowFactory,
		queue:      queue,
		policy:     policy,
		schedule:   schedule,
		staleAfter: staleAfter,
		now:        time.Now,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger.With("component", "recovery_sweep_job"),
	}
}

// Start registers the sweep, runs it once and starts the scheduler.
func (j *RecoverySweepJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		j.Sweep(context.Background())
	})
	if err != nil {
		return err
	}

	j.Sweep(context.Background())

	j.cron.Start()
	j.logger.InfoContext(context.Background(), "Recovery sweep job started", "schedule", j.schedule)
	return nil
}

func (j *RecoverySweepJob) Stop() {
	<-j.cron.Stop().Done()
	j.logger.InfoContext(context.Background(), "Recovery sweep job stopped")
}

// Sweep resumes every order found and returns how many were handed to the queue.
func (j *RecoverySweepJob) Sweep(ctx context.Context) int {
	now := j.now().UTC()

	orders, err := j.uowFactory.Create().OrderRepository().FindResumable(ctx, ports.ResumeCriteria{
		StaleBefore: now.Add(-j.staleAfter),
		RetryDueBy:  now,
		MaxAttempts: j.policy.maxAttempts(),
		Limit:       recoveryBatchSize,
	})
	if err != nil {
		j.logger.ErrorContext(ctx, "Recovery sweep failed", "error", err)
		return 0
	}

	resumed := 0
	for _, o := range orders {
		attempt := o.Attempts + 1
		if err = j.queue.Resume(ctx, o.ID, attempt); err != nil {
			j.logger.ErrorContext(ctx, "Failed to resume order delivery",
				"order_id", o.ID.String(), "attempt", attempt, "error", err)
			continue
		}
		resumed++
	}

	if resumed > 0 {
		j.logger.InfoContext(ctx, "Resumed order deliveries", "count", resumed)
	}
	return resumed
}
