package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence"
)

// SchemaRepository stores one JSON file per schema under <root>/schemas.
type SchemaRepository struct {
	root string
	mu   sync.Mutex
}

func NewSchemaRepository(root string) *SchemaRepository {
	return &SchemaRepository{root: root}
}

func (sr *SchemaRepository) dir() string {
	return path.Join(sr.root, "schemas")
}

func (sr *SchemaRepository) Save(ctx context.Context, schema *models.FormSchema) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	existing, err := sr.getByCodeLocked(ctx, schema.TenantID, schema.Code)
	if err != nil && !persistence.IsSchemaNotFound(err) {
		return err
	}

	if existing != nil {
		return &persistence.SchemaStoreError{Op: "Save", SchemaID: schema.ID, Err: persistence.ErrDuplicateTemplate}
	}

	if schema.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate schema ID: %w", err)
		}

		schema.ID = id.String()
	}

	now := time.Now().UTC()
	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = now
	}

	schema.UpdatedAt = now

	if err := os.MkdirAll(sr.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create schemas directory: %w", err)
	}

	return writeJSON(path.Join(sr.dir(), schema.ID+".json"), schema)
}

func (sr *SchemaRepository) GetByID(_ context.Context, id string) (*models.FormSchema, error) {
	data, err := os.ReadFile(path.Join(sr.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &persistence.SchemaStoreError{Op: "GetByID", SchemaID: id, Err: persistence.ErrSchemaNotFound}
		}

		return nil, fmt.Errorf("failed to read schema %s: %w", id, err)
	}

	var schema models.FormSchema
	if err := json.Unmarshal(data, &schema); err != nil {
		return nil, fmt.Errorf("failed to decode schema %s: %w", id, err)
	}

	return &schema, nil
}

func (sr *SchemaRepository) GetByCode(ctx context.Context, tenantID, code string) (*models.FormSchema, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	schema, err := sr.getByCodeLocked(ctx, tenantID, code)
	if err != nil {
		return nil, err
	}

	return schema, nil
}

func (sr *SchemaRepository) getByCodeLocked(ctx context.Context, tenantID, code string) (*models.FormSchema, error) {
	schemas, err := sr.list(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	for _, schema := range schemas {
		if schema.Code == code {
			return schema, nil
		}
	}

	return nil, &persistence.SchemaStoreError{Op: "GetByCode", SchemaID: code, Err: persistence.ErrSchemaNotFound}
}

func (sr *SchemaRepository) List(ctx context.Context, tenantID string) ([]*models.FormSchema, error) {
	return sr.list(ctx, tenantID)
}

func (sr *SchemaRepository) list(ctx context.Context, tenantID string) ([]*models.FormSchema, error) {
	if _, err := os.Stat(sr.dir()); os.IsNotExist(err) {
		return make([]*models.FormSchema, 0), nil
	}

	files, err := fs.Glob(os.DirFS(sr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list schema files: %w", err)
	}

	schemas := make([]*models.FormSchema, 0, len(files))

	for _, file := range files {
		schema, err := sr.GetByID(ctx, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if tenantID == "" || schema.TenantID == tenantID {
			schemas = append(schemas, schema)
		}
	}

	return schemas, nil
}

func writeJSON(filePath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filePath, err)
	}

	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", filePath, err)
	}

	return os.Rename(tmp, filePath)
}
