// Package services provides the transactional application layer over the
// routing engine and persistence.
package services

import (
	"errors"
	"fmt"
)

// Business logic errors. These indicate client errors (4xx responses).
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyTenantID  = errors.New("tenant ID cannot be empty")
	ErrEmptyActorID   = errors.New("actor ID cannot be empty")

	// ErrNotOwner indicates an actor operating on a document they did not create.
	ErrNotOwner = errors.New("actor is not the document creator")

	// ErrNotDraft indicates a mutation only drafts permit, such as deletion.
	// Submitted documents are never deleted; cancellation is a status.
	ErrNotDraft = errors.New("document is not a draft")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
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

// IsValidationError checks if an error is a request defect that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyTenantID) ||
		errors.Is(err, ErrEmptyActorID)
}

// IsConflictError checks if an error is a business conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrNotOwner) ||
		errors.Is(err, ErrNotDraft)
}
