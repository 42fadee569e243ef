// Package services holds domain services of the order pipeline.
//
// The package includes:
//   - StatusMachine: the transition table deciding which status changes are legal
//
// StatusMachine only answers questions; applying a change to an order and storing
// it is the job of the ChangeOrderStatus command handler.
package services
