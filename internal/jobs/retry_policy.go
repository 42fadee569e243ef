package jobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"orderflow/internal/pkg/errs"
)

const (
	DefaultMaxAttempts = 3
	DefaultBackoff     = 10 * time.Second

	BackoffLinear = "linear"
	BackoffFixed  = "fixed"
)

// ErrAttemptsExhausted marks a job that failed on every allowed attempt.
var ErrAttemptsExhausted = errors.New("delivery attempts exhausted")

// Backoff returns the delay before the attempt following the given failed attempt.
type Backoff func(failedAttempt int) time.Duration

// LinearBackoff waits base multiplied by the number of the failed attempt.
func LinearBackoff(base time.Duration) Backoff {
	return func(failedAttempt int) time.Duration {
		return base * time.Duration(max(failedAttempt, 1))
	}
}

// FixedBackoff waits the same delay after every failed attempt.
func FixedBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration {
		return delay
	}
}

// ParseBackoff builds a strategy from its configuration name.
func ParseBackoff(name string, base time.Duration) (Backoff, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackoffLinear:
		return LinearBackoff(base), nil
	case BackoffFixed:
		return FixedBackoff(base), nil
	default:
		return nil, errs.NewValueIsInvalidErrorWithCause(
			"backoff strategy",
			fmt.Errorf("%q is not one of %s, %s", name, BackoffLinear, BackoffFixed),
		)
	}
}

// RetryPolicy bounds job-level retries. Attempts are numbered from 1.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     Backoff
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Backoff:     LinearBackoff(DefaultBackoff),
	}
}

// ShouldRetry reports whether another attempt follows the failed one. Missing
// orders are never retried.
func (p RetryPolicy) ShouldRetry(failedAttempt int, err error) bool {
	if errors.Is(err, errs.ErrObjectNotFound) {
		return false
	}
	return p.HasAttemptAfter(failedAttempt)
}

// HasAttemptAfter reports whether the policy allows another attempt after the given one.
func (p RetryPolicy) HasAttemptAfter(attempt int) bool {
	return attempt < p.maxAttempts()
}

func (p RetryPolicy) Delay(failedAttempt int) time.Duration {
	if p.Backoff == nil {
		return LinearBackoff(DefaultBackoff)(failedAttempt)
	}
	return max(p.Backoff(failedAttempt), 0)
}

func (p RetryPolicy) maxAttempts() int {
	if p.MaxAttempts < 1 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}
