package definition

import (
	"context"
	"encoding/json"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dukex/formation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ifzaFormYAML = `
freezone:
  code: IFZA
  name: International Free Zone Authority
  tagline: Dubai's business hub
business_rules:
  activities:
    free_count: 3
    max_count: 7
  share_capital:
    min: 10000
    bank_letter_threshold: 150000
  visa_package:
    min: 0
    max: 6
validation_rules:
  banned_words:
    words: [bank, royal]
  company_name:
    min_single_word_length: 3
  file_upload:
    max_size_mb: 10
    accepted_formats: [pdf, PNG]
components:
  stepper:
    variant: vertical
internal_fields: [reviewer_notes]
steps:
  - id: company_details
    title: Company details
    component: CompanyDetailsForm
    fields:
      - name: company_name
        label: Company name
        type: text
        required: true
      - name: shareholders_data
        type: array
        validation:
          min_items: 1
        item_schema:
          - name: full_name
            type: text
            required: true
          - name: nationality
            type: text
  - id: documents
    step_type: DOC_UPLOAD
    title: Documents
    component: DocumentUpload
    document_requirements:
      - type: passport
        name: Passport
        required: true
      - type: bank_letter
        name: Bank letter
        max_size_mb: 2
        accepted_formats: [pdf]
`

func TestParseForm_Valid(t *testing.T) {
	modTime := time.Unix(1735689600, 0)

	def, err := ParseForm("ifza.yml", []byte(ifzaFormYAML), modTime)
	require.NoError(t, err)
	assert.True(t, def.Valid())

	assert.Equal(t, "IFZA", def.Freezone.Code)
	assert.Equal(t, DefaultFormWorkflowType, def.WorkflowType)
	assert.Equal(t, "International Free Zone Authority", def.Name)
	assert.Equal(t, "1735689600", def.Version())

	require.Len(t, def.Steps, 2)
	assert.Equal(t, 1, def.Steps[0].Number)
	assert.Equal(t, models.StepTypeForm, def.Steps[0].Type)
	assert.Equal(t, 2, def.Steps[1].Number)

	step, ok := def.StepByID("documents")
	require.True(t, ok)

	passport, _ := step.Requirement("passport")
	assert.InDelta(t, 10.0, passport.MaxSizeMB, 0.0001)
	assert.Equal(t, []string{"pdf", "png"}, passport.AcceptedFormats)

	letter, _ := step.Requirement("bank_letter")
	assert.InDelta(t, 2.0, letter.MaxSizeMB, 0.0001)
	assert.Equal(t, []string{"pdf"}, letter.AcceptedFormats)

	shareholders, ok := def.Steps[0].Field("shareholders_data")
	require.True(t, ok)
	require.NotNil(t, shareholders.Array)
	assert.Len(t, shareholders.Array.ItemSchema, 2)

	assert.Equal(t, 7, def.MaxActivitiesCount())
	assert.Equal(t, 3, def.FreeActivitiesCount())
	assert.InDelta(t, 10000.0, def.MinShareCapital(), 0.0001)
	assert.Equal(t, 0, def.MinVisaPackage())
	assert.Equal(t, 6, def.MaxVisaPackage())
	assert.Equal(t, 3, def.MinSingleWordLength())
	assert.InDelta(t, models.DefaultPartnerVisaCapitalMultiplier, def.PartnerVisaCapitalMultiplier(), 0.0001)

	words, caseSensitive := def.BannedWords()
	assert.Equal(t, []string{"bank", "royal"}, words)
	assert.False(t, caseSensitive)
}

func TestParseForm_Failures(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		problems []string
	}{
		{
			name:     "missing freezone",
			doc:      "steps:\n  - id: a\n    title: A\n    component: A\n",
			problems: []string{"freezone is required"},
		},
		{
			name:     "missing freezone code",
			doc:      "freezone:\n  name: Somewhere\nsteps:\n  - id: a\n    title: A\n    component: A\n",
			problems: []string{"freezone.code is required"},
		},
		{
			name: "step problems",
			doc:  "freezone:\n  code: X\nsteps:\n  - title: A\n    component: A\n  - id: b\n  - id: b\n    title: B\n    component: B\n    step_type: WAIT\n",
			problems: []string{
				"step at position 1: id is required",
				`step "b": title is required`,
				`step "b": component is required`,
				`step "b": duplicate id`,
				`step "b": unknown step_type "WAIT"`,
			},
		},
		{
			name:     "no steps",
			doc:      "freezone:\n  code: X\n",
			problems: []string{"steps must contain at least one step"},
		},
		{
			name:     "inverted visa range",
			doc:      "freezone:\n  code: X\nbusiness_rules:\n  visa_package:\n    min: 5\n    max: 2\nsteps:\n  - id: a\n    title: A\n    component: A\n",
			problems: []string{"business_rules.visa_package.min exceeds max"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseForm("form.yml", []byte(tt.doc), time.Time{})
			require.Error(t, err)
			assert.Nil(t, def)
			assert.False(t, def.Valid())

			var cfgErr *ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.problems, cfgErr.Problems)
		})
	}
}

func TestParseForm_ReportsShapeAndSemanticProblemsTogether(t *testing.T) {
	doc := `
freezone: IFZA
steps:
  - id: details
    component: DetailsForm
`

	_, err := ParseForm("mixed.yml", []byte(doc), time.Time{})
	require.Error(t, err)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.Len(t, cfgErr.Problems, 2)
	assert.Contains(t, cfgErr.Problems[0], "freezone: Invalid type")
	assert.Equal(t, `step "details": title is required`, cfgErr.Problems[1])
}

func TestFormConfigLoader_Load(t *testing.T) {
	ctx := context.Background()
	modTime := time.Unix(1735689600, 0)

	fsys := fstest.MapFS{
		"forms/ifza.yml": &fstest.MapFile{Data: []byte(ifzaFormYAML), ModTime: modTime},
	}

	loader := NewFormConfigLoader(NewFSSource(fsys, FormsDir, KindForm), NewCache(), newLogger())

	def, err := loader.Load(ctx, "IFZA")
	require.NoError(t, err)
	assert.Equal(t, "IFZA", def.Freezone.Code)

	again, err := loader.Load(ctx, "ifza")
	require.NoError(t, err)
	assert.Same(t, def, again)

	_, err = loader.Load(ctx, "dmcc")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))

	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, KindForm, notFound.Kind)
	assert.Equal(t, "dmcc", notFound.Key)
}

func TestFormProjection_JSON(t *testing.T) {
	def, err := ParseForm("ifza.yml", []byte(ifzaFormYAML), time.Unix(1735689600, 0))
	require.NoError(t, err)

	data, err := json.Marshal(def.Projection())
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))

	assert.ElementsMatch(t,
		[]string{"freezone", "steps", "components", "business_rules", "validation_rules", "internal_fields", "version"},
		keys(out),
	)
	assert.Equal(t, "1735689600", out["version"])
	assert.Equal(t, []any{"reviewer_notes"}, out["internal_fields"])

	var back models.FormProjection
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, def.Freezone, back.Freezone)
	assert.Equal(t, def.Steps, back.Steps)
	assert.Equal(t, def.BusinessRules, back.BusinessRules)
	assert.Equal(t, def.ValidationRules, back.ValidationRules)
	assert.Equal(t, 7, *back.BusinessRules.Activities.MaxCount)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}

	return out
}
