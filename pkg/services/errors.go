// Package services orchestrates definition loading, validation, step handling and
// persistence for the formation API and worker.
package services

import (
	"errors"
	"fmt"

	"github.com/dukex/formation/pkg/definition"
	"github.com/dukex/formation/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// Lookup Errors (404 Not Found).
	ErrStepNotFound = errors.New("step not found")

	// Business Logic Conflicts (409 Conflict).
	ErrUnsupportedStep  = errors.New("operation not supported for step type")
	ErrWorkflowMismatch = errors.New("instance does not belong to the configured workflow")
	ErrInstanceClosed   = errors.New("instance is no longer in progress")
	ErrStepNotCurrent   = errors.New("step is not the current step")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

func newError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsValidationError checks if an error is a request error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest)
}

// IsNotFoundError checks if an error should return HTTP 404.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrStepNotFound) ||
		persistence.IsInstanceNotFound(err) ||
		definition.IsNotFound(err)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrUnsupportedStep) ||
		errors.Is(err, ErrWorkflowMismatch) ||
		errors.Is(err, ErrInstanceClosed) ||
		errors.Is(err, ErrStepNotCurrent)
}
