package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence"
)

const uniqueViolation = "23505"

// SchemaRepository handles form schema database operations. The sections,
// settings and layout travel as one JSONB definition; tenant, code and
// title are real columns so the uniqueness constraint and lookups stay in
// the database.
type SchemaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSchemaRepository(db *sql.DB, logger *slog.Logger) *SchemaRepository {
	return &SchemaRepository{db: db, logger: logger}
}

type schemaDefinition struct {
	Sections []models.Section      `json:"sections"`
	Settings models.SchemaSettings `json:"settings"`
	Layout   int                   `json:"layout,omitempty"`
}

func (r *SchemaRepository) Save(ctx context.Context, schema *models.FormSchema) error {
	now := time.Now().UTC()

	if schema.CreatedAt.IsZero() {
		schema.CreatedAt = now
	}

	schema.UpdatedAt = now

	if schema.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate schema ID: %w", err)
		}

		schema.ID = id.String()
	}

	if schema.Version == 0 {
		schema.Version = 1
	}

	definitionJSON, err := json.Marshal(schemaDefinition{
		Sections: schema.Sections,
		Settings: schema.Settings,
		Layout:   schema.Layout,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal schema definition: %w", err)
	}

	query := `
		INSERT INTO form_schemas (id, tenant_id, code, title, version, definition, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		schema.ID, schema.TenantID, schema.Code, schema.Title,
		schema.Version, definitionJSON, schema.CreatedAt, schema.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &persistence.SchemaStoreError{Op: "Save", SchemaID: schema.ID, Err: persistence.ErrDuplicateTemplate}
		}

		return fmt.Errorf("failed to insert schema: %w", err)
	}

	return nil
}

func (r *SchemaRepository) GetByID(ctx context.Context, id string) (*models.FormSchema, error) {
	query := selectSchema + ` WHERE id = $1`

	schema, err := r.scanSchema(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.SchemaStoreError{Op: "GetByID", SchemaID: id, Err: persistence.ErrSchemaNotFound}
		}

		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}

	return schema, nil
}

func (r *SchemaRepository) GetByCode(ctx context.Context, tenantID, code string) (*models.FormSchema, error) {
	query := selectSchema + ` WHERE tenant_id = $1 AND code = $2`

	schema, err := r.scanSchema(r.db.QueryRowContext(ctx, query, tenantID, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &persistence.SchemaStoreError{Op: "GetByCode", SchemaID: code, Err: persistence.ErrSchemaNotFound}
		}

		return nil, fmt.Errorf("failed to scan schema: %w", err)
	}

	return schema, nil
}

func (r *SchemaRepository) List(ctx context.Context, tenantID string) ([]*models.FormSchema, error) {
	query := selectSchema + ` WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schemas: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	schemas := make([]*models.FormSchema, 0)

	for rows.Next() {
		schema, err := r.scanSchema(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schema: %w", err)
		}

		schemas = append(schemas, schema)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating schemas: %w", err)
	}

	return schemas, nil
}

const selectSchema = `
	SELECT
		id
	  , tenant_id
	  , code
	  , title
	  , version
	  , definition
	  , created_at
	  , updated_at
	FROM form_schemas
`

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SchemaRepository) scanSchema(row rowScanner) (*models.FormSchema, error) {
	var (
		schema         models.FormSchema
		definitionJSON []byte
	)

	err := row.Scan(
		&schema.ID, &schema.TenantID, &schema.Code, &schema.Title,
		&schema.Version, &definitionJSON, &schema.CreatedAt, &schema.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var definition schemaDefinition
	if err := json.Unmarshal(definitionJSON, &definition); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema definition: %w", err)
	}

	schema.Sections = definition.Sections
	schema.Settings = definition.Settings
	schema.Layout = definition.Layout

	return &schema, nil
}
