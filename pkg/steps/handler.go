// Package steps applies submission semantics to validated FORM and DOC_UPLOAD steps of a
// workflow instance.
package steps

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/formation/pkg/eventbus"
	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/persistence"
	"github.com/dukex/formation/pkg/validation"
)

var ErrNoHandler = errors.New("no handler for step type")

// Handler is the capability set shared by every step handler.
type Handler interface {
	Step() *models.StepDefinition
	// Render returns the presentation payload of the step for an instance.
	Render(ctx context.Context, instance *models.WorkflowInstance) (*RenderPayload, error)
	CompletionStatus(ctx context.Context, instance *models.WorkflowInstance) (*CompletionStatus, error)
}

// Dependencies are the collaborators handlers need. Publisher is optional.
type Dependencies struct {
	Validator *validation.Validator
	Instances persistence.InstanceRepository
	Documents persistence.DocumentRepository
	Publisher eventbus.EventPublisher
	Logger    *slog.Logger
}

type RenderPayload struct {
	Step       *models.StepDefinition   `json:"step"`
	Data       map[string]any           `json:"data"`
	Completed  bool                     `json:"completed"`
	Documents  []*models.DocumentRecord `json:"documents,omitempty"`
	Completion *CompletionStatus        `json:"completion,omitempty"`
}

// CompletionStatus compares what a step requires with what the instance has provided.
type CompletionStatus struct {
	Complete      bool     `json:"complete"`
	Missing       []string `json:"missing"`
	UploadedCount int      `json:"uploaded_count"`
	RequiredCount int      `json:"required_count"`
}

// NewHandler returns the handler of a step. Only FORM and DOC_UPLOAD steps have one.
func NewHandler(def *models.WorkflowDefinition, step *models.StepDefinition, deps Dependencies) (Handler, error) {
	if deps.Validator == nil {
		deps.Validator = validation.New()
	}

	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	switch step.Type {
	case models.StepTypeForm:
		return NewFormHandler(def, step, deps), nil
	case models.StepTypeDocUpload:
		return NewDocumentUploadHandler(def, step, deps), nil
	case models.StepTypeAuto, models.StepTypeReview, models.StepTypePayment,
		models.StepTypeIssuance, models.StepTypeNotify:
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, step.Type)
	default:
		return nil, fmt.Errorf("%w: %q", ErrNoHandler, step.Type)
	}
}

func publish(ctx context.Context, deps Dependencies, instanceID string, event eventbus.Event) {
	if deps.Publisher == nil {
		return
	}

	if err := deps.Publisher.Publish(ctx, instanceID, event); err != nil {
		deps.Logger.ErrorContext(ctx, "failed to publish event",
			"event_type", event.GetType(),
			"instance_id", instanceID,
			"error", err)
	}
}
