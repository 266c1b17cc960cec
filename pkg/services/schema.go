package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence"
	"github.com/vistolabs/visto/pkg/validation"
)

// metaSchema is the JSON Schema a raw form definition must satisfy before
// it is even unmarshalled. Shape errors are caught here; semantic errors
// (duplicate keys, bad formulas) are caught by validation.Compile.
const metaSchema = `{
	"type": "object",
	"required": ["tenant_id", "code", "title", "sections"],
	"properties": {
		"tenant_id": {"type": "string", "minLength": 1},
		"code": {"type": "string", "minLength": 2},
		"title": {"type": "string", "minLength": 3},
		"layout": {"type": "integer", "minimum": 1, "maximum": 4},
		"settings": {"type": "object"},
		"sections": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"required": ["key", "fields"],
				"properties": {
					"key": {"type": "string", "minLength": 1},
					"title": {"type": "string"},
					"fields": {
						"type": "array",
						"items": {
							"type": "object",
							"required": ["key", "type"],
							"properties": {
								"key": {"type": "string", "minLength": 1},
								"type": {"type": "string"}
							}
						}
					}
				}
			}
		}
	}
}`

// Schema handles form schema publication and lookup.
type Schema struct {
	persistence persistence.Persistence
}

func NewSchema(persistence persistence.Persistence) *Schema {
	return &Schema{persistence: persistence}
}

// Create publishes a new form schema from a raw JSON definition.
// Publication is the one moment schema-authoring defects can surface;
// afterwards the schema is immutable and every compile succeeds.
func (s *Schema) Create(ctx context.Context, definition json.RawMessage) (*models.FormSchema, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metaSchema),
		gojsonschema.NewBytesLoader(definition),
	)
	if err != nil {
		return nil, &ServiceError{Op: "CreateSchema", Message: "definition is not valid JSON", Err: ErrInvalidRequest}
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, &ServiceError{Op: "CreateSchema", Message: strings.Join(details, "; "), Err: ErrInvalidRequest}
	}

	var schema models.FormSchema
	if err := json.Unmarshal(definition, &schema); err != nil {
		return nil, &ServiceError{Op: "CreateSchema", Message: err.Error(), Err: ErrInvalidRequest}
	}

	// Compile before saving so a broken schema is never published.
	if _, err := validation.Compile(&schema); err != nil {
		return nil, err
	}

	if err := s.persistence.SchemaRepository().Save(ctx, &schema); err != nil {
		return nil, err
	}

	return &schema, nil
}

// GetByID returns a published schema.
func (s *Schema) GetByID(ctx context.Context, id string) (*models.FormSchema, error) {
	return s.persistence.SchemaRepository().GetByID(ctx, id)
}

// List returns every schema of a tenant.
func (s *Schema) List(ctx context.Context, tenantID string) ([]*models.FormSchema, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("list schemas: %w", ErrEmptyTenantID)
	}

	return s.persistence.SchemaRepository().List(ctx, tenantID)
}

// Compiled loads and compiles a schema. Published schemas always compile;
// a failure here means the store was tampered with and is surfaced as-is.
func (s *Schema) Compiled(ctx context.Context, id string) (*validation.CompiledSchema, error) {
	schema, err := s.persistence.SchemaRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return validation.Compile(schema)
}
