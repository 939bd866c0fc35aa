// Package persistence stores workflow instances and uploaded document records. Instance
// state is external to the formation engine; these stores are the host application's side.
package persistence

import (
	"context"
	"time"

	"github.com/dukex/formation/pkg/models"
)

type Persistence interface {
	Instances() InstanceRepository
	Documents() DocumentRepository
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// InstanceRepository stores workflow instances. Updates are read-modify-write and must be
// atomic per instance.
type InstanceRepository interface {
	Save(ctx context.Context, instance *models.WorkflowInstance) error
	GetByID(ctx context.Context, id string) (*models.WorkflowInstance, error)
	// MergeStepData merges data into the form data of a step and returns the updated instance.
	MergeStepData(ctx context.Context, id string, step int, data map[string]any) (*models.WorkflowInstance, error)
	// CompleteStep marks a step completed, advancing the current step past it.
	CompleteStep(ctx context.Context, id string, step int) (*models.WorkflowInstance, error)
	// ListActive returns the instances still in progress, oldest first.
	ListActive(ctx context.Context) ([]*models.WorkflowInstance, error)
}

// DocumentRepository stores uploaded document metadata.
type DocumentRepository interface {
	Save(ctx context.Context, document *models.DocumentRecord) error
	// ListByStep returns the documents of one instance step, oldest first.
	ListByStep(ctx context.Context, instanceID string, step int) ([]*models.DocumentRecord, error)
}

// Prepare fills the defaults of an instance about to be stored and stamps its timestamps.
func Prepare(instance *models.WorkflowInstance, now time.Time) error {
	if instance.ID == "" {
		return ErrInvalidInstance
	}

	if instance.CreatedAt.IsZero() {
		instance.CreatedAt = now
	}

	instance.UpdatedAt = now

	if instance.Status == "" {
		instance.Status = models.InstanceStatusInProgress
	}

	if instance.CurrentStep < 1 {
		instance.CurrentStep = 1
	}

	if instance.FormData == nil {
		instance.FormData = make(map[string]map[string]any)
	}

	if instance.CompletedSteps == nil {
		instance.CompletedSteps = []int{}
	}

	return nil
}
