// Package order models imported orders and their status history.
//
// The package includes:
//   - Order: the aggregate root holding business fields, current status and history
//   - Status: the four lifecycle states (pending, processing, completed, failed)
//   - StatusHistoryEntry: one immutable audit row per status change
//
// An order is created in pending with a single "Order created" entry. Each later
// status change appends one entry, and the status and its entry are always stored
// together by the repository.
package order
