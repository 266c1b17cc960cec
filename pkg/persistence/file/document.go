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

// DocumentRepository stores one JSON file per document aggregate under
// <root>/documents. A repository-wide mutex makes the version check and
// write atomic; per-document granularity is not worth it for a dev store.
type DocumentRepository struct {
	root string
	mu   sync.Mutex
}

func NewDocumentRepository(root string) *DocumentRepository {
	return &DocumentRepository{root: root}
}

func (dr *DocumentRepository) dir() string {
	return path.Join(dr.root, "documents")
}

func (dr *DocumentRepository) Create(_ context.Context, doc *models.Document) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if doc.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate document ID: %w", err)
		}

		doc.ID = id.String()
	}

	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	doc.Version = 1

	if err := os.MkdirAll(dr.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	filePath := path.Join(dr.dir(), doc.ID+".json")
	if _, err := os.Stat(filePath); err == nil {
		return persistence.NewDocumentError("Create", doc.ID, fmt.Errorf("document already exists"))
	}

	return writeJSON(filePath, doc)
}

// Save persists a mutated aggregate after checking that the stored
// version still matches the one the caller read.
func (dr *DocumentRepository) Save(_ context.Context, doc *models.Document) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	stored, err := dr.read(doc.ID)
	if err != nil {
		return err
	}

	if stored.Version != doc.Version {
		return persistence.NewDocumentError("Save", doc.ID, persistence.ErrConcurrentModification)
	}

	doc.Version++
	doc.UpdatedAt = time.Now().UTC()

	return writeJSON(path.Join(dr.dir(), doc.ID+".json"), doc)
}

func (dr *DocumentRepository) GetByID(_ context.Context, id string) (*models.Document, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	return dr.read(id)
}

func (dr *DocumentRepository) read(id string) (*models.Document, error) {
	data, err := os.ReadFile(path.Join(dr.dir(), id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewDocumentError("GetByID", id, persistence.ErrDocumentNotFound)
		}

		return nil, fmt.Errorf("failed to read document %s: %w", id, err)
	}

	var doc models.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", id, err)
	}

	return &doc, nil
}

func (dr *DocumentRepository) ListByTenant(_ context.Context, tenantID string) ([]*models.Document, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if _, err := os.Stat(dr.dir()); os.IsNotExist(err) {
		return make([]*models.Document, 0), nil
	}

	files, err := fs.Glob(os.DirFS(dr.dir()), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list document files: %w", err)
	}

	docs := make([]*models.Document, 0, len(files))

	for _, file := range files {
		doc, err := dr.read(file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		if tenantID == "" || doc.TenantID == tenantID {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}

func (dr *DocumentRepository) Delete(_ context.Context, id string) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	filePath := path.Join(dr.dir(), id+".json")
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return persistence.NewDocumentError("Delete", id, persistence.ErrDocumentNotFound)
	}

	return os.Remove(filePath)
}
