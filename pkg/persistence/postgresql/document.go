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

	"github.com/vistolabs/visto/pkg/models"
	"github.com/vistolabs/visto/pkg/persistence"
)

// DocumentRepository handles document aggregate database operations. The
// route and history are embedded JSONB so every transition is one
// versioned row update; the WHERE version = $n guard makes concurrent
// decisions on the same document linearizable.
type DocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewDocumentRepository(db *sql.DB, logger *slog.Logger) *DocumentRepository {
	return &DocumentRepository{db: db, logger: logger}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Version = 1

	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate document ID: %w", err)
		}

		doc.ID = id.String()
	}

	dataJSON, routeJSON, historyJSON, err := marshalAggregate(doc)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO documents (
			id, tenant_id, schema_id, title, data, status, route, history,
			created_by, created_at, updated_at, submitted_at, completed_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		doc.ID, doc.TenantID, doc.SchemaID, doc.Title, dataJSON, doc.Status,
		routeJSON, historyJSON, doc.CreatedBy, doc.CreatedAt, doc.UpdatedAt,
		doc.SubmittedAt, doc.CompletedAt, doc.Version,
	)
	if err != nil {
		return persistence.NewDocumentError("Create", doc.ID, err)
	}

	return nil
}

// Save persists a mutated aggregate guarded by the version the caller
// read. Zero rows affected means either a concurrent writer won or the
// document is gone; the follow-up read distinguishes the two.
func (r *DocumentRepository) Save(ctx context.Context, doc *models.Document) error {
	doc.UpdatedAt = time.Now().UTC()

	dataJSON, routeJSON, historyJSON, err := marshalAggregate(doc)
	if err != nil {
		return err
	}

	query := `
		UPDATE documents SET
			title = $2
		  , data = $3
		  , status = $4
		  , route = $5
		  , history = $6
		  , updated_at = $7
		  , submitted_at = $8
		  , completed_at = $9
		  , version = version + 1
		WHERE id = $1 AND version = $10
	`

	result, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.Title, dataJSON, doc.Status, routeJSON, historyJSON,
		doc.UpdatedAt, doc.SubmittedAt, doc.CompletedAt, doc.Version,
	)
	if err != nil {
		return persistence.NewDocumentError("Save", doc.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDocumentError("Save", doc.ID, err)
	}

	if affected == 0 {
		if _, err := r.GetByID(ctx, doc.ID); err != nil {
			return err
		}

		return persistence.NewDocumentError("Save", doc.ID, persistence.ErrConcurrentModification)
	}

	doc.Version++

	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := selectDocument + ` WHERE id = $1`

	doc, err := r.scanDocument(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewDocumentError("GetByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to scan document: %w", err)
	}

	return doc, nil
}

func (r *DocumentRepository) ListByTenant(ctx context.Context, tenantID string) ([]*models.Document, error) {
	query := selectDocument + ` WHERE tenant_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	docs := make([]*models.Document, 0)

	for rows.Next() {
		doc, err := r.scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return docs, nil
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return persistence.NewDocumentError("Delete", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewDocumentError("Delete", id, err)
	}

	if affected == 0 {
		return persistence.NewDocumentError("Delete", id, persistence.ErrDocumentNotFound)
	}

	return nil
}

const selectDocument = `
	SELECT
		id
	  , tenant_id
	  , schema_id
	  , title
	  , data
	  , status
	  , route
	  , history
	  , created_by
	  , created_at
	  , updated_at
	  , submitted_at
	  , completed_at
	  , version
	FROM documents
`

func (r *DocumentRepository) scanDocument(row rowScanner) (*models.Document, error) {
	var (
		doc         models.Document
		dataJSON    []byte
		routeJSON   []byte
		historyJSON []byte
	)

	err := row.Scan(
		&doc.ID, &doc.TenantID, &doc.SchemaID, &doc.Title, &dataJSON, &doc.Status,
		&routeJSON, &historyJSON, &doc.CreatedBy, &doc.CreatedAt, &doc.UpdatedAt,
		&doc.SubmittedAt, &doc.CompletedAt, &doc.Version,
	)
	if err != nil {
		return nil, err
	}

	if len(dataJSON) > 0 {
		if err := json.Unmarshal(dataJSON, &doc.Data); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document data: %w", err)
		}
	}

	if len(routeJSON) > 0 {
		if err := json.Unmarshal(routeJSON, &doc.Route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document route: %w", err)
		}
	}

	if len(historyJSON) > 0 {
		if err := json.Unmarshal(historyJSON, &doc.History); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document history: %w", err)
		}
	}

	return &doc, nil
}

func marshalAggregate(doc *models.Document) (dataJSON, routeJSON, historyJSON []byte, err error) {
	dataJSON, err = json.Marshal(doc.Data)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal document data: %w", err)
	}

	routeJSON, err = json.Marshal(doc.Route)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal document route: %w", err)
	}

	historyJSON, err = json.Marshal(doc.History)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal document history: %w", err)
	}

	return dataJSON, routeJSON, historyJSON, nil
}
