package models

import (
	"slices"
	"strconv"
	"time"
)

// InstanceStatus is the lifecycle state of a workflow instance.
type InstanceStatus string

const (
	InstanceStatusInProgress InstanceStatus = "in_progress"
	InstanceStatusCompleted  InstanceStatus = "completed"
	InstanceStatusCancelled  InstanceStatus = "cancelled"
)

// WorkflowInstance is one applicant's run through a workflow definition. It is owned by
// the persistence layer; the engine only reads it and merges step data into it.
type WorkflowInstance struct {
	ID             string                    `json:"id"`
	WorkflowType   string                    `json:"workflow_type"`
	FreezoneCode   string                    `json:"freezone_code,omitempty"`
	Status         InstanceStatus            `json:"status"`
	CurrentStep    int                       `json:"current_step"`
	FormData       map[string]map[string]any `json:"form_data"` // keyed by step number
	CompletedSteps []int                     `json:"completed_steps"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// StepKey is the form data key of a step number.
func StepKey(step int) string {
	return strconv.Itoa(step)
}

// StepData returns the data stored for a step.
func (i *WorkflowInstance) StepData(step int) (map[string]any, bool) {
	data, ok := i.FormData[StepKey(step)]

	return data, ok
}

// MergeStepData merges data into the stored data of a step; later keys win.
func (i *WorkflowInstance) MergeStepData(step int, data map[string]any) {
	if i.FormData == nil {
		i.FormData = make(map[string]map[string]any)
	}

	existing, ok := i.FormData[StepKey(step)]
	if !ok {
		existing = make(map[string]any, len(data))
		i.FormData[StepKey(step)] = existing
	}

	for k, v := range data {
		existing[k] = v
	}
}

// IsStepCompleted reports whether a step has been marked completed.
func (i *WorkflowInstance) IsStepCompleted(step int) bool {
	return slices.Contains(i.CompletedSteps, step)
}

// MarkStepCompleted records a completed step and advances CurrentStep past it.
func (i *WorkflowInstance) MarkStepCompleted(step int) {
	if !i.IsStepCompleted(step) {
		i.CompletedSteps = append(i.CompletedSteps, step)
		slices.Sort(i.CompletedSteps)
	}

	if i.CurrentStep <= step {
		i.CurrentStep = step + 1
	}
}

// DocumentRecord is the metadata of an uploaded document. File bytes live in external storage.
type DocumentRecord struct {
	ID           string    `json:"id"`
	InstanceID   string    `json:"instance_id"`
	StepNumber   int       `json:"step_number"`
	DocumentType string    `json:"document_type"`
	FileName     string    `json:"file_name"`
	MimeType     string    `json:"mime_type"`
	Format       string    `json:"format"`
	SizeMB       float64   `json:"size_mb"`
	UploadedAt   time.Time `json:"uploaded_at"`
}
