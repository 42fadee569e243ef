// Package errs provides standardized error types for the order pipeline.
// It implements a consistent pattern for error creation, formatting, and unwrapping
// that is used from the domain model up to the HTTP adapter.
//
// The package includes one error type per failure class:
//   - ValueIsRequiredError: a required field is empty (batch-item validation)
//   - ValueIsInvalidError: a field or state value is invalid (batch-item validation)
//   - ValueIsOutOfRangeError: a numeric or length bound is violated (batch-item validation)
//   - ObjectNotFoundError: a referenced order does not exist
//   - ObjectAlreadyExistsError: a business key collides with an existing record
//
// Each error type follows the same pattern:
//   - A sentinel error variable (e.g., ErrObjectNotFound) returned by Unwrap
//   - A struct type with fields describing the failure
//   - Constructor functions with and without cause
//   - Error() producing a single-line message
//
// Callers classify failures with errors.Is against the sentinels and
// extract details with errors.As against the struct types.
package errs
