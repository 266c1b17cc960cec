// Package file provides file-based persistence for schemas and documents.
// It serves development and tests; production deployments use postgresql.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/vistolabs/visto/pkg/persistence"
)

// Persistence implements persistence.Persistence on the file system.
type Persistence struct {
	root         string
	schemaRepo   *SchemaRepository
	documentRepo *DocumentRepository
}

// NewPersistence creates a new instance rooted at the given directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		schemaRepo:   NewSchemaRepository(cleanRoot),
		documentRepo: NewDocumentRepository(cleanRoot),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) SchemaRepository() persistence.SchemaRepository {
	return fp.schemaRepo
}

func (fp *Persistence) DocumentRepository() persistence.DocumentRepository {
	return fp.documentRepo
}
