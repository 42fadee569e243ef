// Package jobs runs order delivery in the background.
//
// # Components
//
// DeliveryQueue accepts one job per order id and runs it on a bounded
// github.com/gammazero/workerpool pool. A job is one ProcessOrderCommand per
// attempt. Failed attempts are retried according to a RetryPolicy:
//
//	policy := jobs.RetryPolicy{MaxAttempts: 3, Backoff: jobs.LinearBackoff(10 * time.Second)}
//
// waits 10s after the first failure and 20s after the second. After the last
// attempt the order is forced to failed with the note
// "Job failed after 3 attempts: <last error>". Orders that no longer exist are
// dropped without retry.
//
// RecoverySweepJob uses github.com/robfig/cron/v3 to resume orders whose job
// was lost: orders that stayed in pending or processing for too long, and
// failed orders whose stored retry is due, for example because the process
// restarted or the queue was stopped during a backoff. The order resumes at
// the attempt after the last one it recorded.
//
// # Usage
//
//	jobManager := jobs.NewJobManager(processHandler, statusHandler, uowFactory,
//		policy, workers, "0 * * * * *", 5*time.Minute, logger)
//
//	if err := jobManager.StartAll(); err != nil {
//		log.Fatal("Failed to start jobs:", err)
//	}
//	defer jobManager.StopAll()
//
// # Error Handling
//
// Job errors never propagate to callers of Enqueue. Permanent failures are
// recorded on the order and logged with ErrAttemptsExhausted.
package jobs
