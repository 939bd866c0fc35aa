// Package file provides file-based persistence for workflow instances and document records.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/dukex/formation/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
// Instances live in <root>/instances/<id>.json, documents in
// <root>/documents/<instance id>/<document id>.json.
type Persistence struct {
	root         string
	instanceRepo *InstanceRepository
	documentRepo *DocumentRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:         cleanRoot,
		instanceRepo: &InstanceRepository{root: cleanRoot, locks: &sync.Map{}},
		documentRepo: &DocumentRepository{root: cleanRoot},
	}
}

func (fp *Persistence) Instances() persistence.InstanceRepository {
	return fp.instanceRepo
}

func (fp *Persistence) Documents() persistence.DocumentRepository {
	return fp.documentRepo
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}
