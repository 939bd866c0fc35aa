// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/google/uuid"
)

// CreateTestInstance creates an in-progress company_formation instance with default values
// that can be overridden.
func CreateTestInstance(overrides ...func(*models.WorkflowInstance)) *models.WorkflowInstance {
	instance := &models.WorkflowInstance{
		ID:           uuid.New().String(),
		WorkflowType: "company_formation",
		FreezoneCode: "ifza",
	}

	for _, override := range overrides {
		override(instance)
	}

	return instance
}

// WithID sets the instance ID.
func WithID(id string) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.ID = id
	}
}

// WithFreezone sets the freezone code. An empty code makes a plain workflow instance.
func WithFreezone(code string) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.FreezoneCode = code
	}
}

// WithStatus sets the instance status.
func WithStatus(status models.InstanceStatus) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.Status = status
	}
}

// WithCreatedAt sets the creation time.
func WithCreatedAt(at time.Time) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.CreatedAt = at
	}
}

// WithStepData merges data into a step's form data.
func WithStepData(step int, data map[string]any) func(*models.WorkflowInstance) {
	return func(i *models.WorkflowInstance) {
		i.MergeStepData(step, data)
	}
}

// CreateTestWorkflowDefinition creates a three step definition: a company details form
// with a shareholders roster, a document upload step and a payment step.
func CreateTestWorkflowDefinition() *models.WorkflowDefinition {
	minItems := 1

	return &models.WorkflowDefinition{
		WorkflowType: "company_formation",
		Name:         "Company Formation",
		Steps: []*models.StepDefinition{
			{
				Number:   1,
				Type:     models.StepTypeForm,
				Title:    "Company details",
				Required: true,
				Fields: []*models.FieldDefinition{
					CreateTestField("company_name", models.FieldTypeText),
					CreateTestField("shareholders", models.FieldTypeArray, WithArrayItems(&minItems,
						CreateTestField("full_name", models.FieldTypeText))),
				},
			},
			{
				Number:   2,
				Type:     models.StepTypeDocUpload,
				Title:    "Documents",
				Required: true,
				DocumentRequirements: []*models.DocumentRequirement{
					{Type: "passport", Name: "Passport", Required: true, MaxSizeMB: 5, AcceptedFormats: []string{"pdf", "jpg"}},
					{Type: "photo", Name: "Photo", Required: true, MaxSizeMB: 2, AcceptedFormats: []string{"jpg", "png"}},
					{Type: "other", Name: "Other", Multiple: true},
				},
			},
			{Number: 3, Type: models.StepTypePayment, Title: "Payment", Required: true},
		},
	}
}

// CreateTestField creates a required field of fieldType with empty rules of the matching kind.
func CreateTestField(name string, fieldType models.FieldType, overrides ...func(*models.FieldDefinition)) *models.FieldDefinition {
	field := &models.FieldDefinition{Name: name, Type: fieldType, Required: true}

	switch fieldType {
	case models.FieldTypeText, models.FieldTypeTextarea:
		field.Text = &models.TextRules{}
	case models.FieldTypeNumber:
		field.Number = &models.NumberRules{}
	case models.FieldTypeSelect:
		field.Select = &models.SelectRules{}
	case models.FieldTypeArray:
		field.Array = &models.ArrayRules{}
	}

	for _, override := range overrides {
		override(field)
	}

	return field
}

// WithArrayItems sets the minimum item count and item schema of an array field.
func WithArrayItems(minItems *int, items ...*models.FieldDefinition) func(*models.FieldDefinition) {
	return func(f *models.FieldDefinition) {
		f.Array = &models.ArrayRules{MinItems: minItems, ItemSchema: items}
	}
}
