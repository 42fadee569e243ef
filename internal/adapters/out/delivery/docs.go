// Package delivery forwards orders to the external order-processing service.
//
// The client never returns an error value. Every call ends in a
// ports.DeliveryOutcome that is Delivered, Rejected or Unreachable, and the
// scheduler decides what to do with failures.
package delivery
