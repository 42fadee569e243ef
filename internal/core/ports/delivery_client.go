package ports

import (
	"context"
	"errors"
	"fmt"

	"orderflow/internal/core/domain/model/order"
)

var (
	// ErrDeliveryRejected means the external service answered but refused the order.
	ErrDeliveryRejected = errors.New("delivery rejected by external service")

	// ErrDeliveryUnreachable means the external service could not be reached in time.
	ErrDeliveryUnreachable = errors.New("external service unreachable")
)

// DeliveryOutcomeKind tags a DeliveryOutcome.
type DeliveryOutcomeKind int

const (
	Delivered DeliveryOutcomeKind = iota + 1
	Rejected
	Unreachable
)

func (k DeliveryOutcomeKind) String() string {
	switch k {
	case Delivered:
		return "delivered"
	case Rejected:
		return "rejected"
	case Unreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// DeliveryOutcome is the result of one delivery call. Which fields are set depends on Kind:
//   - Delivered: ExternalID, RawResponse
//   - Rejected: Reason, StatusCode, RawResponse when a body was returned
//   - Unreachable: Reason
type DeliveryOutcome struct {
	Kind        DeliveryOutcomeKind
	ExternalID  string
	RawResponse string
	Reason      string
	StatusCode  int
}

func NewDeliveredOutcome(externalID, rawResponse string) DeliveryOutcome {
	return DeliveryOutcome{Kind: Delivered, ExternalID: externalID, RawResponse: rawResponse}
}

func NewRejectedOutcome(reason string, statusCode int, rawResponse string) DeliveryOutcome {
	return DeliveryOutcome{Kind: Rejected, Reason: reason, StatusCode: statusCode, RawResponse: rawResponse}
}

func NewUnreachableOutcome(reason string) DeliveryOutcome {
	return DeliveryOutcome{Kind: Unreachable, Reason: reason}
}

// Err converts a failed outcome into an error wrapping ErrDeliveryRejected or
// ErrDeliveryUnreachable. It is nil for Delivered.
func (o DeliveryOutcome) Err() error {
	switch o.Kind {
	case Delivered:
		return nil
	case Rejected:
		return fmt.Errorf("%w (status %d): %s", ErrDeliveryRejected, o.StatusCode, o.Reason)
	case Unreachable:
		return fmt.Errorf("%w: %s", ErrDeliveryUnreachable, o.Reason)
	default:
		return fmt.Errorf("%w: unknown outcome", ErrDeliveryUnreachable)
	}
}

// DeliveryClient forwards orders to the external processing service.
// Failures are reported through the outcome, never as a separate error value.
type DeliveryClient interface {
	Deliver(ctx context.Context, aggregate *order.Order) DeliveryOutcome

	// HealthCheck reports whether the external service answers its health endpoint.
	HealthCheck(ctx context.Context) bool
}
