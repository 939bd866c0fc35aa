package rules

import (
	"encoding/json"
	"testing"

	"github.com/dukex/formation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func defaultConfig() *models.FormConfigDefinition {
	return &models.FormConfigDefinition{
		Freezone: models.FreezoneInfo{Code: "IFZA", Name: "IFZA"},
		ValidationRules: models.ValidationRules{
			BannedWords: &models.BannedWordsRule{Words: []string{"Bank", "UAE"}},
		},
	}
}

func TestValidateCompanyName(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *models.FormConfigDefinition
		input  string
		errors []string
	}{
		{
			name:   "valid name",
			cfg:    defaultConfig(),
			input:  "Falcon Trading",
			errors: []string{},
		},
		{
			name:   "blank",
			cfg:    defaultConfig(),
			input:  "   ",
			errors: []string{"Company name is required"},
		},
		{
			name:   "banned token case insensitive",
			cfg:    defaultConfig(),
			input:  "First bank of dunes",
			errors: []string{"Company name contains a restricted word: Bank"},
		},
		{
			name:   "substring matching inside a word",
			cfg:    defaultConfig(),
			input:  "UAEnergy Solutions",
			errors: []string{"Company name contains a restricted word: UAE"},
		},
		{
			name: "case sensitive matching",
			cfg: &models.FormConfigDefinition{
				ValidationRules: models.ValidationRules{
					BannedWords: &models.BannedWordsRule{Words: []string{"Bank"}, CaseSensitive: true},
				},
			},
			input:  "riverbank cafe",
			errors: []string{},
		},
		{
			name:   "single short word",
			cfg:    defaultConfig(),
			input:  "Q",
			errors: []string{"Single-word company names must be at least 2 characters"},
		},
		{
			name: "every violation is reported",
			cfg: &models.FormConfigDefinition{
				ValidationRules: models.ValidationRules{
					BannedWords: &models.BannedWordsRule{Words: []string{"uae"}},
					CompanyName: &models.CompanyNameRules{MinSingleWordLength: ptr(5)},
				},
			},
			input: "UAE",
			errors: []string{
				"Company name contains a restricted word: uae",
				"Single-word company names must be at least 5 characters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEvaluator(tt.cfg).ValidateCompanyName(tt.input)

			assert.Equal(t, len(tt.errors) == 0, result.Valid)
			assert.Equal(t, tt.errors, result.Errors)
			assert.Equal(t, tt.input, result.Data["name"])
		})
	}
}

func TestValidateCompanyName_Idempotent(t *testing.T) {
	evaluator := NewEvaluator(defaultConfig())

	first := evaluator.ValidateCompanyName("UAE Bank")
	second := evaluator.ValidateCompanyName("UAE Bank")

	assert.Equal(t, first, second)
	assert.Len(t, first.Errors, 2)
}

func TestValidateCompanyName_WordBoundaryMatcher(t *testing.T) {
	evaluator := NewEvaluator(defaultConfig(), WithMatcher(WordBoundaryMatch))

	assert.True(t, evaluator.ValidateCompanyName("UAEnergy Solutions").Valid)
	assert.False(t, evaluator.ValidateCompanyName("The UAE Traders").Valid)
}

func TestWordBoundaryMatch(t *testing.T) {
	assert.True(t, WordBoundaryMatch("Gulf Free Zone Traders", "free zone", false))
	assert.False(t, WordBoundaryMatch("Gulf Free Zone Traders", "free zone", true))
	assert.False(t, WordBoundaryMatch("Freezone Traders", "free zone", false))
	assert.False(t, WordBoundaryMatch("Traders", "", false))
}

func TestValidateActivitiesSelection(t *testing.T) {
	evaluator := NewEvaluator(&models.FormConfigDefinition{
		BusinessRules: models.BusinessRules{
			Activities: &models.ActivityRules{MaxCount: ptr(3)},
		},
	})

	tests := []struct {
		name     string
		selected []models.ActivityID
		main     *models.ActivityID
		errors   []string
	}{
		{
			name:     "nothing selected",
			selected: nil,
			main:     nil,
			errors:   []string{"Please select at least one activity", "Main activity must be selected"},
		},
		{
			name:     "main outside selection",
			selected: []models.ActivityID{"1", "2"},
			main:     ptr(models.ActivityID("3")),
			errors:   []string{"Main activity must be one of the selected activities"},
		},
		{
			name:     "too many activities",
			selected: []models.ActivityID{"1", "2", "3", "4"},
			main:     ptr(models.ActivityID("1")),
			errors:   []string{"You can select at most 3 activities"},
		},
		{
			name:     "valid selection",
			selected: []models.ActivityID{"1", "2"},
			main:     ptr(models.ActivityID("2")),
			errors:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluator.ValidateActivitiesSelection(tt.selected, tt.main)

			assert.Equal(t, len(tt.errors) == 0, result.Valid)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestValidateActivitiesSelection_AdditionalActivities(t *testing.T) {
	result := NewEvaluator(defaultConfig()).ValidateActivitiesSelection(
		[]models.ActivityID{"1", "2", "3", "4", "5"}, ptr(models.ActivityID("1")),
	)

	require.True(t, result.Valid)
	assert.Equal(t, 5, result.Data["selected_count"])
	assert.Equal(t, models.DefaultFreeActivitiesCount, result.Data["free_activities"])
	assert.Equal(t, 2, result.Data["additional_activities"])
}

func TestActivityID_UnmarshalJSON(t *testing.T) {
	var payload struct {
		Selected []models.ActivityID `json:"selected"`
		Main     *models.ActivityID  `json:"main"`
	}

	require.NoError(t, json.Unmarshal([]byte(`{"selected":[1,"2"],"main":2}`), &payload))
	assert.Equal(t, []models.ActivityID{"1", "2"}, payload.Selected)
	require.NotNil(t, payload.Main)

	result := NewEvaluator(defaultConfig()).ValidateActivitiesSelection(payload.Selected, payload.Main)
	assert.True(t, result.Valid)
}

func TestValidateVisaPackage(t *testing.T) {
	evaluator := NewEvaluator(defaultConfig())

	tests := []struct {
		name         string
		visas        int
		partnerVisas int
		errors       []string
	}{
		{"within bounds", 3, 1, []string{}},
		{"below minimum", 0, 0, []string{"Visa package must include at least 1 visa(s)"}},
		{"above maximum", 10, 0, []string{"Visa package cannot exceed 9 visas"}},
		{"more partner visas than visas", 2, 3, []string{"Partner visas cannot exceed total visas"}},
		{
			"all violations",
			12, 13,
			[]string{"Visa package cannot exceed 9 visas", "Partner visas cannot exceed total visas"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluator.ValidateVisaPackage(tt.visas, tt.partnerVisas)

			assert.Equal(t, len(tt.errors) == 0, result.Valid)
			assert.Equal(t, tt.errors, result.Errors)
		})
	}
}

func TestValidateShareCapital(t *testing.T) {
	evaluator := NewEvaluator(defaultConfig())

	t.Run("partner visa raises the minimum", func(t *testing.T) {
		result := evaluator.ValidateShareCapital(40000, 1)

		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0], "48000 AED")
		assert.InDelta(t, 48000.0, result.RequiredMinimum, 0.0001)
	})

	t.Run("exact partner visa minimum", func(t *testing.T) {
		result := evaluator.ValidateShareCapital(48000, 1)

		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
		assert.False(t, result.RequiresBankLetter)
	})

	t.Run("bank letter above threshold", func(t *testing.T) {
		result := evaluator.ValidateShareCapital(200000, 0)

		assert.True(t, result.Valid)
		assert.True(t, result.RequiresBankLetter)
		assert.InDelta(t, models.DefaultMinShareCapital, result.RequiredMinimum, 0.0001)
	})

	t.Run("below minimum and partner minimum", func(t *testing.T) {
		result := evaluator.ValidateShareCapital(500, 2)

		assert.Equal(t, []string{
			"Share capital must be at least 1000 AED",
			"Share capital must be at least 96000 AED for 2 partner visa(s)",
		}, result.Errors)
	})

	t.Run("configured ceiling", func(t *testing.T) {
		cfg := defaultConfig()
		cfg.BusinessRules.ShareCapital = &models.ShareCapitalRules{Max: ptr(100000.0)}

		result := NewEvaluator(cfg).ValidateShareCapital(150000, 0)
		assert.Equal(t, []string{"Share capital cannot exceed 100000 AED"}, result.Errors)
	})

	t.Run("serializes flat", func(t *testing.T) {
		data, err := json.Marshal(evaluator.ValidateShareCapital(200000, 0))
		require.NoError(t, err)

		var out map[string]any
		require.NoError(t, json.Unmarshal(data, &out))
		assert.Equal(t, true, out["valid"])
		assert.Equal(t, true, out["requires_bank_letter"])
	})
}
