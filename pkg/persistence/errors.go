// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrSchemaNotFound indicates a form schema was not found by the given identifier.
	ErrSchemaNotFound = errors.New("schema not found")

	// ErrDocumentNotFound indicates a document was not found by the given identifier.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrDuplicateTemplate indicates a schema with the same (tenant, code) pair already exists.
	ErrDuplicateTemplate = errors.New("schema template already exists")

	// ErrConcurrentModification indicates a versioned save lost against a
	// concurrent writer. Retryable: reread the aggregate and retry.
	ErrConcurrentModification = errors.New("document was modified concurrently")
)

// DocumentError wraps document-related errors with additional context.
type DocumentError struct {
	Op         string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	DocumentID string
	Err        error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("%s operation failed for document %s: %v", e.Op, e.DocumentID, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func (e *DocumentError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewDocumentError creates a new document error with context.
func NewDocumentError(op, documentID string, err error) *DocumentError {
	return &DocumentError{
		Op:         op,
		DocumentID: documentID,
		Err:        err,
	}
}

// SchemaStoreError wraps schema-related errors with additional context.
type SchemaStoreError struct {
	Op       string
	SchemaID string
	Err      error
}

func (e *SchemaStoreError) Error() string {
	return fmt.Sprintf("%s operation failed for schema %s: %v", e.Op, e.SchemaID, e.Err)
}

func (e *SchemaStoreError) Unwrap() error {
	return e.Err
}

func (e *SchemaStoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsSchemaNotFound checks if an error indicates a schema was not found.
func IsSchemaNotFound(err error) bool {
	return errors.Is(err, ErrSchemaNotFound)
}

// IsDocumentNotFound checks if an error indicates a document was not found.
func IsDocumentNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

// IsDuplicateTemplate checks if an error indicates a (tenant, code) collision.
func IsDuplicateTemplate(err error) bool {
	return errors.Is(err, ErrDuplicateTemplate)
}

// IsConcurrentModification checks if an error indicates a lost update.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
