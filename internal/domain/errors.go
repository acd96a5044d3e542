// Package domain defines core types, interfaces, and errors for the gateway.
package domain

import "fmt"

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// RejectReason identifies which safety gate rejected a SQL statement.
type RejectReason string

const (
	RejectEmpty            RejectReason = "EMPTY_QUERY"
	RejectMultiStatement   RejectReason = "MULTI_STATEMENT"
	RejectNotReadOnly      RejectReason = "NOT_READ_ONLY"
	RejectForbiddenKeyword RejectReason = "FORBIDDEN_KEYWORD"
	RejectWildcard         RejectReason = "WILDCARD_PROJECTION"
	RejectNoFrom           RejectReason = "NO_FROM_CLAUSE"
	RejectTableNotAllowed  RejectReason = "TABLE_NOT_ALLOWLISTED"
	RejectColumnNotAllowed RejectReason = "COLUMN_NOT_ALLOWLISTED"
)

// SQLRejectedError indicates a SQL statement failed one of the validator gates.
// Reason identifies the gate; Detail carries the human-readable specifics.
type SQLRejectedError struct {
	Reason RejectReason
	Detail string
}

func (e *SQLRejectedError) Error() string {
	return fmt.Sprintf("sql rejected (%s): %s", e.Reason, e.Detail)
}

// ExecutionError wraps a transport or engine-side failure from a warehouse backend.
type ExecutionError struct {
	Backend string
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed (%s): %s", e.Backend, e.Message)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrSQLRejected creates a SQLRejectedError for the given gate.
func ErrSQLRejected(reason RejectReason, format string, args ...interface{}) *SQLRejectedError {
	return &SQLRejectedError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// ErrExecution creates an ExecutionError for the given backend.
func ErrExecution(backend, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Backend: backend, Message: fmt.Sprintf(format, args...)}
}
