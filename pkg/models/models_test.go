package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepType(t *testing.T) {
	tests := []struct {
		value string
		want  StepType
		ok    bool
	}{
		{"FORM", StepTypeForm, true},
		{"DOC_UPLOAD", StepTypeDocUpload, true},
		{"NOTIFY", StepTypeNotify, true},
		{"form", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, ok := ParseStepType(tt.value)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, StepType(tt.value).Valid())
		})
	}

	assert.Len(t, StepTypes(), 7)
}

func TestHumanize(t *testing.T) {
	tests := map[string]string{
		"full_name":     "Full name",
		"COMPANY_NAME":  "Company name",
		"nationality":   "Nationality",
		"passport_id":   "Passport",
		"":              "",
		"_share_amount": "Share amount",
	}

	for in, want := range tests {
		assert.Equal(t, want, Humanize(in), in)
	}

	assert.Equal(t, "Proposed name", (&FieldDefinition{Name: "company_name", Label: "Proposed name"}).DisplayLabel())
	assert.Equal(t, "Company name", (&FieldDefinition{Name: "company_name"}).DisplayLabel())
}

func TestActivityID_UnmarshalJSON(t *testing.T) {
	var ids []ActivityID
	require.NoError(t, json.Unmarshal([]byte(`[1, "2", 3.5, " 4 "]`), &ids))
	assert.Equal(t, []ActivityID{"1", "2", "3.5", " 4 "}, ids)

	var id ActivityID
	assert.Error(t, json.Unmarshal([]byte(`{"id": 1}`), &id))
}

func TestWorkflowDefinition_Step(t *testing.T) {
	def := &WorkflowDefinition{
		Steps: []*StepDefinition{
			{Number: 1, Type: StepTypeForm, Required: true},
			{Number: 2, Type: StepTypeDocUpload},
			{Number: 3, Type: StepTypeForm, Required: true},
		},
	}

	step, ok := def.Step(2)
	require.True(t, ok)
	assert.Equal(t, StepTypeDocUpload, step.Type)

	_, ok = def.Step(0)
	assert.False(t, ok)

	_, ok = def.Step(4)
	assert.False(t, ok)

	assert.Equal(t, []StepType{StepTypeForm, StepTypeDocUpload}, def.StepTypes())
	assert.Equal(t, []int{1, 3}, def.RequiredStepNumbers())
	assert.Equal(t, 3, def.LastStepNumber())
	assert.False(t, def.AutomationEnabled())
}

func TestStepDefinition_Lookups(t *testing.T) {
	step := &StepDefinition{
		Fields: []*FieldDefinition{{Name: "company_name"}},
		DocumentRequirements: []*DocumentRequirement{
			{Type: "passport", Required: true},
			{Type: "photo", Name: "Photo"},
		},
	}

	_, ok := step.Field("company_name")
	assert.True(t, ok)

	req, ok := step.Requirement("passport")
	require.True(t, ok)
	assert.Equal(t, "passport", req.DisplayName())
	assert.Equal(t, []string{"passport"}, step.RequiredDocumentTypes())

	optional := false
	assert.True(t, (&PaymentItem{}).IsRequired())
	assert.False(t, (&PaymentItem{Required: &optional}).IsRequired())
}

func TestFormConfigDefinition_Defaults(t *testing.T) {
	cfg := &FormConfigDefinition{}

	assert.Equal(t, DefaultFreeActivitiesCount, cfg.FreeActivitiesCount())
	assert.Equal(t, DefaultMaxActivitiesCount, cfg.MaxActivitiesCount())
	assert.InDelta(t, DefaultMinShareCapital, cfg.MinShareCapital(), 0)
	assert.InDelta(t, DefaultBankLetterThreshold, cfg.BankLetterThreshold(), 0)
	assert.Equal(t, DefaultMinVisaPackage, cfg.MinVisaPackage())
	assert.Equal(t, DefaultMinSingleWordLength, cfg.MinSingleWordLength())

	_, ok := cfg.MaxShareCapital()
	assert.False(t, ok)

	words, caseSensitive := cfg.BannedWords()
	assert.Nil(t, words)
	assert.False(t, caseSensitive)
	assert.Equal(t, "0", cfg.Version())
	assert.False(t, cfg.Valid())

	var nilCfg *FormConfigDefinition
	assert.False(t, nilCfg.Valid())
}

func TestFormConfigDefinition_Projection(t *testing.T) {
	freeCount := 5
	cfg := &FormConfigDefinition{
		WorkflowDefinition: WorkflowDefinition{Steps: []*StepDefinition{{Number: 1, ID: "details"}}},
		Freezone:           FreezoneInfo{Code: "IFZA"},
		BusinessRules:      BusinessRules{Activities: &ActivityRules{FreeCount: &freeCount}},
		ModTime:            time.Unix(1735689600, 0),
	}

	assert.True(t, cfg.Valid())
	assert.Equal(t, 5, cfg.FreeActivitiesCount())

	step, ok := cfg.StepByID("details")
	require.True(t, ok)
	assert.Equal(t, 1, step.Number)

	projection := cfg.Projection()
	assert.Equal(t, "1735689600", projection.Version)
	assert.NotNil(t, projection.Components)
	assert.NotNil(t, projection.InternalFields)

	data, err := json.Marshal(projection)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"internal_fields":[]`)
}

func TestWorkflowInstance_StepData(t *testing.T) {
	instance := &WorkflowInstance{CurrentStep: 1}

	_, ok := instance.StepData(1)
	assert.False(t, ok)

	instance.MergeStepData(1, map[string]any{"a": 1, "b": 2})
	instance.MergeStepData(1, map[string]any{"b": 3})

	data, ok := instance.StepData(1)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"a": 1, "b": 3}, data)

	instance.MarkStepCompleted(2)
	instance.MarkStepCompleted(1)
	instance.MarkStepCompleted(1)

	assert.Equal(t, []int{1, 2}, instance.CompletedSteps)
	assert.Equal(t, 3, instance.CurrentStep)
	assert.True(t, instance.IsStepCompleted(2))
}

func TestViolations_Result(t *testing.T) {
	var v Violations

	ok := v.Result(nil)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)
	assert.NotNil(t, ok.Errors)

	v.Add("%s is required", "Company name")
	failed := v.Result(map[string]any{"x": 1})
	assert.False(t, failed.Valid)
	assert.Equal(t, []string{"Company name is required"}, failed.Errors)
}
