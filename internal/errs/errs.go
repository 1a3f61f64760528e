// Package errs defines the stable error taxonomy shared by the ledger,
// catalog, and sequence packages. Callers discriminate with errors.As.
package errs

import "fmt"

// ValidationError reports a caller-correctable input problem, keyed by field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for a single field.
func Validation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InvalidStateError reports an operation attempted against an entity that is
// not in the required state (e.g. adding items to a validated invoice).
type InvalidStateError struct {
	Entity string
	State  string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state: cannot %s %s in state %q", e.Op, e.Entity, e.State)
}

// InvalidState builds an InvalidStateError.
func InvalidState(entity, state, op string) *InvalidStateError {
	return &InvalidStateError{Entity: entity, State: state, Op: op}
}

// StorageError wraps a persistence failure. Operations that return it have no
// partial effect; the caller cannot recover locally.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage unavailable: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Storage wraps err as a StorageError for operation op.
func Storage(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// NotFoundError reports a record that does not exist or is not owned by the
// acting user.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string { return e.Entity + " not found" }

// NotFound builds a NotFoundError.
func NotFound(entity string) *NotFoundError { return &NotFoundError{Entity: entity} }
