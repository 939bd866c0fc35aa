package validation

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/dukex/formation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func formStep(fields ...*models.FieldDefinition) *models.StepDefinition {
	return &models.StepDefinition{Number: 1, Type: models.StepTypeForm, Title: "Details", Required: true, Fields: fields}
}

func TestValidate_FormFields(t *testing.T) {
	step := formStep(
		&models.FieldDefinition{
			Name: "company_name", Type: models.FieldTypeText, Required: true,
			Text: &models.TextRules{MinLength: ptr(3), MaxLength: ptr(10), Pattern: "[A-Za-z ]+"},
		},
		&models.FieldDefinition{
			Name: "share_capital", Label: "Share capital", Type: models.FieldTypeNumber,
			Number: &models.NumberRules{Min: ptr(1000.0), Max: ptr(500000.0)},
		},
		&models.FieldDefinition{
			Name: "entity_type", Type: models.FieldTypeSelect,
			Select: &models.SelectRules{Options: []models.SelectOption{{Value: "llc"}, {Value: "fze"}}},
		},
		&models.FieldDefinition{Name: "notes", Type: models.FieldTypeTextarea},
	)

	tests := []struct {
		name   string
		data   map[string]any
		errors []string
	}{
		{
			name:   "valid submission",
			data:   map[string]any{"company_name": "Falcon", "share_capital": 5000.0, "entity_type": "llc"},
			errors: []string{},
		},
		{
			name:   "required field missing skips other checks",
			data:   map[string]any{"company_name": "  "},
			errors: []string{"Company name is required"},
		},
		{
			name: "length and pattern",
			data: map[string]any{"company_name": "F1"},
			errors: []string{
				"Company name must be at least 3 characters",
				"Company name format is invalid",
			},
		},
		{
			name:   "pattern must match the whole value",
			data:   map[string]any{"company_name": "Falcon 42"},
			errors: []string{"Company name format is invalid"},
		},
		{
			name:   "too long",
			data:   map[string]any{"company_name": "Falcon Trading House"},
			errors: []string{"Company name must be at most 10 characters"},
		},
		{
			name:   "not a number",
			data:   map[string]any{"company_name": "Falcon", "share_capital": "lots"},
			errors: []string{"Share capital must be a number"},
		},
		{
			name:   "numeric string out of range",
			data:   map[string]any{"company_name": "Falcon", "share_capital": "999.5"},
			errors: []string{"Share capital must be at least 1000"},
		},
		{
			name:   "above maximum",
			data:   map[string]any{"company_name": "Falcon", "share_capital": 600000},
			errors: []string{"Share capital must be at most 500000"},
		},
		{
			name:   "option not allowed",
			data:   map[string]any{"company_name": "Falcon", "entity_type": "plc"},
			errors: []string{"Entity type must be one of: llc, fze"},
		},
	}

	validator := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(step, tt.data)

			assert.Equal(t, len(tt.errors) == 0, result.Valid)
			assert.Equal(t, tt.errors, result.Errors)
			assert.Equal(t, tt.data, result.Data)
		})
	}
}

func TestValidate_ArrayItems(t *testing.T) {
	step := formStep(&models.FieldDefinition{
		Name: "shareholders_data", Label: "Shareholders", Type: models.FieldTypeArray, Required: true,
		Array: &models.ArrayRules{
			MinItems: ptr(1),
			MaxItems: ptr(3),
			ItemSchema: []*models.FieldDefinition{
				{Name: "full_name", Type: models.FieldTypeText, Required: true},
				{Name: "nationality", Type: models.FieldTypeText},
			},
		},
	})

	validator := New()

	t.Run("one item missing a required nested field", func(t *testing.T) {
		var data map[string]any
		require.NoError(t, json.Unmarshal([]byte(`{
			"shareholders_data": [
				{"full_name": "Aisha Rahman", "nationality": "AE"},
				{"nationality": "IN"}
			]
		}`), &data))

		result := validator.Validate(step, data)

		assert.False(t, result.Valid)
		assert.Equal(t, []string{"Shareholders item 2: Full name is required"}, result.Errors)
	})

	t.Run("cardinality", func(t *testing.T) {
		items := []any{}
		for range 4 {
			items = append(items, map[string]any{"full_name": "X"})
		}

		result := validator.Validate(step, map[string]any{"shareholders_data": items})
		assert.Equal(t, []string{"Shareholders must have at most 3 items"}, result.Errors)
	})

	t.Run("not a list", func(t *testing.T) {
		result := validator.Validate(step, map[string]any{"shareholders_data": "Aisha"})
		assert.Equal(t, []string{"Shareholders must be a list"}, result.Errors)
	})

	t.Run("empty list is blank", func(t *testing.T) {
		result := validator.Validate(step, map[string]any{"shareholders_data": []any{}})
		assert.Equal(t, []string{"Shareholders is required"}, result.Errors)
	})

	t.Run("typed slices are accepted", func(t *testing.T) {
		result := validator.Validate(step, map[string]any{
			"shareholders_data": []map[string]any{{"full_name": "Omar"}},
		})
		assert.True(t, result.Valid)
	})
}

func TestValidate_Documents(t *testing.T) {
	step := &models.StepDefinition{
		Number: 2,
		Type:   models.StepTypeDocUpload,
		DocumentRequirements: []*models.DocumentRequirement{
			{Type: "passport", Name: "Passport", Required: true, MaxSizeMB: 5, AcceptedFormats: []string{"pdf", "jpg"}},
			{Type: "visa", Name: "Visa page", Required: true},
			{Type: "noc", Name: "NOC"},
		},
	}

	validator := New()

	tests := []struct {
		name   string
		data   string
		errors []string
	}{
		{
			name:   "complete",
			data:   `{"documents":[{"type":"passport","size_mb":1.2,"format":"PDF"},{"type":"visa"}]}`,
			errors: []string{},
		},
		{
			name:   "missing required",
			data:   `{"documents":[{"type":"passport","size_mb":1,"format":"jpg"}]}`,
			errors: []string{"Visa page is required"},
		},
		{
			name: "size and format",
			data: `{"documents":[{"type":"passport","size_mb":7.5,"format":"png"},{"type":"visa"}]}`,
			errors: []string{
				"Passport exceeds maximum size of 5 MB",
				"Passport must be one of: pdf, jpg",
			},
		},
		{
			name:   "no documents",
			data:   `{}`,
			errors: []string{"Passport is required", "Visa page is required"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var data map[string]any
			require.NoError(t, json.Unmarshal([]byte(tt.data), &data))

			result := validator.Validate(step, data)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestValidate_Payment(t *testing.T) {
	step := &models.StepDefinition{
		Number: 3,
		Type:   models.StepTypePayment,
		PaymentItems: []*models.PaymentItem{
			{Name: "License Fee", Amount: 12500},
			{Name: "Establishment Card", Amount: 2000},
			{Name: "Courier", Required: ptr(false)},
		},
	}

	validator := New()

	result := validator.Validate(step, map[string]any{"license_fee": 12500})
	assert.Equal(t, []string{"Payment for Establishment Card is required"}, result.Errors)

	result = validator.Validate(step, map[string]any{"total_amount": 14500})
	assert.True(t, result.Valid)

	result = validator.Validate(step, map[string]any{"license_fee": 1, "establishment_card": 1})
	assert.True(t, result.Valid)
}

func TestValidate_PassThroughSteps(t *testing.T) {
	validator := New()

	for _, stepType := range []models.StepType{
		models.StepTypeAuto, models.StepTypeReview, models.StepTypeIssuance, models.StepTypeNotify,
	} {
		t.Run(string(stepType), func(t *testing.T) {
			result := validator.Validate(&models.StepDefinition{Number: 1, Type: stepType}, map[string]any{"anything": 1})
			assert.True(t, result.Valid)
			assert.Empty(t, result.Errors)
		})
	}
}

func TestValidate_ConcurrentUse(t *testing.T) {
	step := formStep(&models.FieldDefinition{
		Name: "code", Type: models.FieldTypeText, Text: &models.TextRules{Pattern: "[A-Z]{3}"},
	})

	validator := New()

	var wg sync.WaitGroup

	for i := range 20 {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			value := "ABC"
			if i%2 == 1 {
				value = "abcd"
			}

			result := validator.Validate(step, map[string]any{"code": value})
			assert.Equal(t, i%2 == 0, result.Valid)
		}(i)
	}

	wg.Wait()
	assert.Equal(t, "[A-Z]{3}", step.Fields[0].Text.Pattern)
}

func TestPaymentKey(t *testing.T) {
	assert.Equal(t, "government_fee", PaymentKey(" Government Fee "))
	assert.Equal(t, "vat", PaymentKey("VAT"))
}

func TestValidate_Bounds(t *testing.T) {
	step := formStep(
		&models.FieldDefinition{
			Name: "trade_name", Type: models.FieldTypeText,
			Text: &models.TextRules{MinLength: ptr(3), MaxLength: ptr(4)},
		},
		&models.FieldDefinition{
			Name: "adjustment", Type: models.FieldTypeNumber,
			Number: &models.NumberRules{Min: ptr(-2.5), Max: ptr(0.0)},
		},
	)

	tests := []struct {
		name   string
		data   map[string]any
		errors []string
	}{
		{
			name:   "length counts characters not bytes",
			data:   map[string]any{"trade_name": "Åäöü"},
			errors: []string{},
		},
		{
			name:   "multibyte value too short",
			data:   map[string]any{"trade_name": "Åä"},
			errors: []string{"Trade name must be at least 3 characters"},
		},
		{
			name:   "negative bound inclusive",
			data:   map[string]any{"adjustment": -2.5},
			errors: []string{},
		},
		{
			name:   "below negative bound",
			data:   map[string]any{"adjustment": "-2.75"},
			errors: []string{"Adjustment must be at least -2.5"},
		},
		{
			name:   "above zero bound",
			data:   map[string]any{"adjustment": 0.01},
			errors: []string{"Adjustment must be at most 0"},
		},
	}

	validator := New()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := validator.Validate(step, tt.data)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestIsBlank(t *testing.T) {
	tests := []struct {
		name  string
		value any
		blank bool
	}{
		{name: "nil", value: nil, blank: true},
		{name: "whitespace", value: " \t", blank: true},
		{name: "empty list", value: []any{}, blank: true},
		{name: "empty object", value: map[string]any{}, blank: true},
		{name: "text", value: "x", blank: false},
		{name: "zero", value: 0.0, blank: false},
		{name: "false", value: false, blank: false},
		{name: "list", value: []any{"a"}, blank: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.blank, IsBlank(tt.value))
		})
	}
}
