package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"time"

	"github.com/dukex/formation/pkg/models"
)

// DocumentRepository handles document record file operations.
type DocumentRepository struct {
	root string
}

func (r *DocumentRepository) dir(instanceID string) (string, error) {
	return safeJoin(path.Join(r.root, "documents"), instanceID)
}

// Save writes a document record next to the other documents of its instance.
func (r *DocumentRepository) Save(_ context.Context, document *models.DocumentRecord) error {
	dir, err := r.dir(document.InstanceID)
	if err != nil {
		return fmt.Errorf("invalid instance id %q: %w", document.InstanceID, err)
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", document.ID, err)
	}

	filePath, err := safeJoin(dir, document.ID+".json")
	if err != nil {
		return fmt.Errorf("invalid document id %q: %w", document.ID, err)
	}

	return os.WriteFile(filePath, data, 0600)
}

// ListByStep returns the documents uploaded for one step of an instance.
func (r *DocumentRepository) ListByStep(_ context.Context, instanceID string, step int) ([]*models.DocumentRecord, error) {
	dir, err := r.dir(instanceID)
	if err != nil {
		return nil, fmt.Errorf("invalid instance id %q: %w", instanceID, err)
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list document files: %w", err)
	}

	documents := make([]*models.DocumentRecord, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		body, err := os.ReadFile(path.Join(dir, file))
		if err != nil {
			return nil, fmt.Errorf("failed to read document %s: %w", file, err)
		}

		var document models.DocumentRecord
		if err := json.Unmarshal(body, &document); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document %s: %w", file, err)
		}

		if document.StepNumber == step {
			documents = append(documents, &document)
		}
	}

	sort.Slice(documents, func(i, j int) bool {
		return documents[i].UploadedAt.Before(documents[j].UploadedAt)
	})

	return documents, nil
}
