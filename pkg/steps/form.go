package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukex/formation/pkg/events"
	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/validation"
	"github.com/google/uuid"
)

// Array fields whose entries are people get an id and an ordinal position.
var rosterPrefixes = []string{"shareholders", "directors"}

type FormHandler struct {
	def  *models.WorkflowDefinition
	step *models.StepDefinition
	deps Dependencies
}

func NewFormHandler(def *models.WorkflowDefinition, step *models.StepDefinition, deps Dependencies) *FormHandler {
	return &FormHandler{def: def, step: step, deps: deps}
}

// SubmissionResult is the outcome of a form submission. Data and NextAction are only set
// when the submission was valid and stored.
type SubmissionResult struct {
	Result     models.ValidationResult  `json:"result"`
	Data       map[string]any           `json:"data,omitempty"`
	NextAction *NextAction              `json:"next_action,omitempty"`
	Instance   *models.WorkflowInstance `json:"-"`
}

func (h *FormHandler) Step() *models.StepDefinition {
	return h.step
}

func (h *FormHandler) Render(_ context.Context, instance *models.WorkflowInstance) (*RenderPayload, error) {
	data, ok := instance.StepData(h.step.Number)
	if !ok {
		data = map[string]any{}
	}

	return &RenderPayload{
		Step:      h.step,
		Data:      data,
		Completed: instance.IsStepCompleted(h.step.Number),
	}, nil
}

// ProcessSubmission validates payload and merges the processed data into the instance.
// A failed validation is returned as a result, store failures as errors.
func (h *FormHandler) ProcessSubmission(ctx context.Context, instance *models.WorkflowInstance, payload map[string]any) (*SubmissionResult, error) {
	result := h.deps.Validator.Validate(h.step, payload)
	if !result.Valid {
		return &SubmissionResult{Result: result}, nil
	}

	processed := h.postProcess(payload)

	updated, err := h.deps.Instances.MergeStepData(ctx, instance.ID, h.step.Number, processed)
	if err != nil {
		return nil, fmt.Errorf("failed to store step %d data: %w", h.step.Number, err)
	}

	h.deps.Logger.InfoContext(ctx, "form step submitted",
		"instance_id", instance.ID,
		"step_number", h.step.Number)

	event := events.StepSubmitted{
		BaseEvent:  events.NewBaseEvent(events.StepSubmittedEvent, instance.ID),
		StepNumber: h.step.Number,
		StepType:   string(h.step.Type),
		Data:       processed,
	}
	publish(ctx, h.deps, instance.ID, event)

	next := NextActionAfter(h.def, h.step.Number)

	return &SubmissionResult{
		Result:     models.Violations(nil).Result(processed),
		Data:       processed,
		NextAction: &next,
		Instance:   updated,
	}, nil
}

// CompletionStatus reports the required fields still blank in the stored step data.
func (h *FormHandler) CompletionStatus(_ context.Context, instance *models.WorkflowInstance) (*CompletionStatus, error) {
	data, _ := instance.StepData(h.step.Number)

	status := &CompletionStatus{Missing: []string{}}

	for _, field := range h.step.Fields {
		if !field.Required {
			continue
		}

		status.RequiredCount++

		if !validation.IsBlank(data[field.Name]) {
			status.UploadedCount++
		} else {
			status.Missing = append(status.Missing, field.Name)
		}
	}

	status.Complete = instance.IsStepCompleted(h.step.Number) || (data != nil && len(status.Missing) == 0)

	return status, nil
}

// postProcess copies payload, assigning an id and a 1-based position to roster entries.
func (h *FormHandler) postProcess(payload map[string]any) map[string]any {
	processed := make(map[string]any, len(payload))

	for key, value := range payload {
		processed[key] = value
	}

	for _, field := range h.step.Fields {
		if field.Type != models.FieldTypeArray || !isRoster(field.Name) {
			continue
		}

		entries, ok := processed[field.Name].([]any)
		if !ok {
			continue
		}

		out := make([]any, len(entries))

		for i, entry := range entries {
			item, ok := entry.(map[string]any)
			if !ok {
				out[i] = entry

				continue
			}

			copied := make(map[string]any, len(item)+2)
			for k, v := range item {
				copied[k] = v
			}

			if id, _ := copied["id"].(string); id == "" {
				copied["id"] = uuid.NewString()
			}

			copied["position"] = i + 1
			out[i] = copied
		}

		processed[field.Name] = out
	}

	return processed
}

func isRoster(name string) bool {
	for _, prefix := range rosterPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}

	return false
}
