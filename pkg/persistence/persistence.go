// Package persistence provides the storage abstraction for schemas and
// document aggregates.
package persistence

import (
	"context"

	"github.com/vistolabs/visto/pkg/models"
)

type Persistence interface {
	SchemaRepository() SchemaRepository
	DocumentRepository() DocumentRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// SchemaRepository stores published form schemas. Schemas are immutable
// once saved; a changed form is a new version under the same code.
type SchemaRepository interface {
	// Save stores a new schema. The (tenant, code) pair is unique;
	// a duplicate yields ErrDuplicateTemplate.
	Save(ctx context.Context, schema *models.FormSchema) error
	GetByID(ctx context.Context, id string) (*models.FormSchema, error)
	GetByCode(ctx context.Context, tenantID, code string) (*models.FormSchema, error)
	List(ctx context.Context, tenantID string) ([]*models.FormSchema, error)
}

// DocumentRepository stores document aggregates. The route with its
// stages and participants is embedded in the aggregate, so one versioned
// save covers every state transition and per-document linearizability
// falls out of the version check.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error

	// Save persists a mutated aggregate. The stored version must match
	// doc.Version or the save fails with ErrConcurrentModification;
	// on success the version is bumped.
	Save(ctx context.Context, doc *models.Document) error

	GetByID(ctx context.Context, id string) (*models.Document, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Document, error)

	// Delete removes a document. Only drafts may be deleted; the service
	// layer enforces that terminal documents stay for the audit trail.
	Delete(ctx context.Context, id string) error
}
