package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/redis/go-redis/v9"
)

type DocumentRepository struct {
	client redis.UniversalClient
	keys   keyspace
}

// Save appends the document to the list of its instance step.
func (r *DocumentRepository) Save(ctx context.Context, document *models.DocumentRecord) error {
	if document.UploadedAt.IsZero() {
		document.UploadedAt = time.Now().UTC()
	}

	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("failed to marshal document %s: %w", document.ID, err)
	}

	err = r.client.RPush(ctx, r.keys.documents(document.InstanceID, document.StepNumber), data).Err()
	if err != nil {
		return fmt.Errorf("failed to save document %s: %w", document.ID, err)
	}

	return nil
}

func (r *DocumentRepository) ListByStep(ctx context.Context, instanceID string, step int) ([]*models.DocumentRecord, error) {
	values, err := r.client.LRange(ctx, r.keys.documents(instanceID, step), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	documents := make([]*models.DocumentRecord, 0, len(values))

	for _, value := range values {
		var document models.DocumentRecord
		if err := json.Unmarshal([]byte(value), &document); err != nil {
			return nil, fmt.Errorf("failed to unmarshal document: %w", err)
		}

		documents = append(documents, &document)
	}

	return documents, nil
}
