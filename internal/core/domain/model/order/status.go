package order

import (
	"fmt"
	"strings"

	"orderflow/internal/pkg/errs"
)

// Status is the lifecycle state of an order. Its string form is what gets
// persisted and exposed on the wire.
//
//	pending ──> processing ──> completed
//	   │             │
//	   └─────────────┴──────> failed
//
// Which moves are allowed is decided by the status machine in the services
// package; Status itself only knows its own values.
type Status string

const (
	// Pending is the state every imported order starts in.
	Pending Status = "pending"

	// Processing means a delivery job is talking to the external service.
	Processing Status = "processing"

	// Completed means the external service accepted the order.
	Completed Status = "completed"

	// Failed means delivery was rejected, unreachable, or retries ran out.
	Failed Status = "failed"
)

// AllStatuses lists every valid status in lifecycle order.
func AllStatuses() []Status {
	return []Status{Pending, Processing, Completed, Failed}
}

// ParseStatus converts user or storage input into a Status. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if err := s.Validate(); err != nil {
		return "", err
	}
	return s, nil
}

// Validate reports whether s is one of the four known statuses.
func (s Status) Validate() error {
	switch s {
	case Pending, Processing, Completed, Failed:
		return nil
	default:
		return errs.NewValueIsInvalidErrorWithCause("status", fmt.Errorf("%q is not a valid status", string(s)))
	}
}

func (s Status) String() string {
	return string(s)
}

// IsTerminal is true for completed and failed.
func (s Status) IsTerminal() bool {
	return s == Completed || s == Failed
}
