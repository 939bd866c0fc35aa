// Package models defines the workflow definition, form configuration and instance models
// used by the formation engine.
package models

import "sort"

// WorkflowDefinition is a loaded, immutable workflow configuration.
// Steps are ordered by Number, which runs 1..N without gaps.
type WorkflowDefinition struct {
	WorkflowType  string                `json:"workflow_type"`
	Name          string                `json:"name"`
	Description   string                `json:"description,omitempty"`
	Steps         []*StepDefinition     `json:"steps"`
	Metadata      WorkflowMetadata      `json:"metadata"`
	Validation    map[string]any        `json:"validation,omitempty"`
	Automation    *AutomationSettings   `json:"automation,omitempty"`
	Notifications *NotificationSettings `json:"notifications,omitempty"`
}

// WorkflowMetadata carries descriptive information shown to applicants.
type WorkflowMetadata struct {
	EstimatedDuration string   `json:"estimated_duration,omitempty" yaml:"estimated_duration"`
	RequiredDocuments []string `json:"required_documents,omitempty" yaml:"required_documents"`
	Fees              []Fee    `json:"fees,omitempty"               yaml:"fees"`
}

// Fee is one entry of a workflow's fee schedule.
type Fee struct {
	Name     string  `json:"name"               yaml:"name"`
	Amount   float64 `json:"amount"             yaml:"amount"`
	Currency string  `json:"currency,omitempty" yaml:"currency"`
}

// AutomationSettings controls workflow-wide automation.
type AutomationSettings struct {
	Enabled          bool `json:"enabled"                  yaml:"enabled"`
	FallbackToManual bool `json:"fallback_to_manual"       yaml:"fallback_to_manual"`
	RetryAttempts    int  `json:"retry_attempts,omitempty" yaml:"retry_attempts"`
}

// NotificationSettings controls which lifecycle events notify the applicant.
type NotificationSettings struct {
	Enabled  bool     `json:"enabled"            yaml:"enabled"`
	Channels []string `json:"channels,omitempty" yaml:"channels"`
	Events   []string `json:"events,omitempty"   yaml:"events"`
}

// Step returns the step with the given number.
func (w *WorkflowDefinition) Step(number int) (*StepDefinition, bool) {
	if number < 1 || number > len(w.Steps) {
		return nil, false
	}

	step := w.Steps[number-1]
	if step.Number != number {
		for _, s := range w.Steps {
			if s.Number == number {
				return s, true
			}
		}

		return nil, false
	}

	return step, true
}

// StepTypes lists the distinct step types present, in first-seen order.
func (w *WorkflowDefinition) StepTypes() []StepType {
	seen := make(map[StepType]bool)
	types := make([]StepType, 0)

	for _, s := range w.Steps {
		if !seen[s.Type] {
			seen[s.Type] = true
			types = append(types, s.Type)
		}
	}

	return types
}

// RequiredStepNumbers lists the numbers of steps flagged as required, ascending.
func (w *WorkflowDefinition) RequiredStepNumbers() []int {
	numbers := make([]int, 0, len(w.Steps))

	for _, s := range w.Steps {
		if s.Required {
			numbers = append(numbers, s.Number)
		}
	}

	sort.Ints(numbers)

	return numbers
}

// AutomationEnabled reports whether workflow automation is switched on.
func (w *WorkflowDefinition) AutomationEnabled() bool {
	return w.Automation != nil && w.Automation.Enabled
}

// FallbackToManual reports whether failed automation hands over to manual processing.
func (w *WorkflowDefinition) FallbackToManual() bool {
	return w.Automation != nil && w.Automation.FallbackToManual
}

// LastStepNumber returns N for a definition with steps 1..N.
func (w *WorkflowDefinition) LastStepNumber() int {
	return len(w.Steps)
}
