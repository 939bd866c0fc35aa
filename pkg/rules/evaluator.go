// Package rules evaluates the free-zone business rules of a form configuration: company
// name restrictions, activity selection, visa package bounds and share capital minimums.
// Every check reports all violated rules at once.
package rules

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dukex/formation/pkg/models"
)

// Evaluator answers business-rule questions for one loaded form configuration. It holds no
// mutable state and is safe for concurrent use.
type Evaluator struct {
	cfg   *models.FormConfigDefinition
	match MatchFunc
}

type Option func(*Evaluator)

// WithMatcher replaces the banned-token matching policy.
func WithMatcher(match MatchFunc) Option {
	return func(e *Evaluator) {
		if match != nil {
			e.match = match
		}
	}
}

func NewEvaluator(cfg *models.FormConfigDefinition, opts ...Option) *Evaluator {
	e := &Evaluator{cfg: cfg, match: SubstringMatch}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ShareCapitalResult extends the validation result with the bank letter requirement and
// the effective minimum capital.
type ShareCapitalResult struct {
	models.ValidationResult

	RequiresBankLetter bool    `json:"requires_bank_letter"`
	RequiredMinimum    float64 `json:"required_minimum"`
}

// ValidateCompanyName checks a proposed company name.
func (e *Evaluator) ValidateCompanyName(name string) models.ValidationResult {
	var v models.Violations

	data := map[string]any{"name": name}
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		v.Add("Company name is required")

		return v.Result(data)
	}

	tokens, caseSensitive := e.cfg.BannedWords()
	for _, token := range tokens {
		if e.match(trimmed, token, caseSensitive) {
			v.Add("Company name contains a restricted word: %s", token)
		}
	}

	nameWords := strings.Fields(trimmed)
	minLength := e.cfg.MinSingleWordLength()

	if len(nameWords) == 1 && utf8.RuneCountInString(nameWords[0]) < minLength {
		v.Add("Single-word company names must be at least %d characters", minLength)
	}

	return v.Result(data)
}

// ValidateActivitiesSelection checks the selected business activities and the main one.
func (e *Evaluator) ValidateActivitiesSelection(selected []models.ActivityID, main *models.ActivityID) models.ValidationResult {
	var v models.Violations

	if len(selected) == 0 {
		v.Add("Please select at least one activity")
	}

	switch {
	case main == nil || strings.TrimSpace(string(*main)) == "":
		v.Add("Main activity must be selected")
	case !containsActivity(selected, *main):
		v.Add("Main activity must be one of the selected activities")
	}

	maxCount := e.cfg.MaxActivitiesCount()
	if len(selected) > maxCount {
		v.Add("You can select at most %d activities", maxCount)
	}

	free := e.cfg.FreeActivitiesCount()

	return v.Result(map[string]any{
		"selected_count":        len(selected),
		"free_activities":       free,
		"additional_activities": max(0, len(selected)-free),
	})
}

func containsActivity(selected []models.ActivityID, id models.ActivityID) bool {
	for _, s := range selected {
		if strings.TrimSpace(string(s)) == strings.TrimSpace(string(id)) {
			return true
		}
	}

	return false
}

// ValidateVisaPackage checks the number of visas and how many of them are partner visas.
func (e *Evaluator) ValidateVisaPackage(visas, partnerVisas int) models.ValidationResult {
	var v models.Violations

	if minVisas := e.cfg.MinVisaPackage(); visas < minVisas {
		v.Add("Visa package must include at least %d visa(s)", minVisas)
	}

	if maxVisas := e.cfg.MaxVisaPackage(); visas > maxVisas {
		v.Add("Visa package cannot exceed %d visas", maxVisas)
	}

	if partnerVisas < 0 {
		v.Add("Partner visas cannot be negative")
	}

	if partnerVisas > visas {
		v.Add("Partner visas cannot exceed total visas")
	}

	return v.Result(map[string]any{
		"visa_count":         visas,
		"partner_visa_count": partnerVisas,
	})
}

// ValidateShareCapital checks the declared share capital. Each partner visa raises the
// minimum by the configured multiplier.
func (e *Evaluator) ValidateShareCapital(amount float64, partnerVisas int) ShareCapitalResult {
	var v models.Violations

	minCapital := e.cfg.MinShareCapital()
	required := minCapital

	if amount < minCapital {
		v.Add("Share capital must be at least %s AED", formatAmount(minCapital))
	}

	if maxCapital, ok := e.cfg.MaxShareCapital(); ok && amount > maxCapital {
		v.Add("Share capital cannot exceed %s AED", formatAmount(maxCapital))
	}

	if partnerVisas > 0 {
		visaMinimum := float64(partnerVisas) * e.cfg.PartnerVisaCapitalMultiplier()
		if amount < visaMinimum {
			v.Add("Share capital must be at least %s AED for %d partner visa(s)", formatAmount(visaMinimum), partnerVisas)
		}

		required = max(required, visaMinimum)
	}

	requiresBankLetter := amount > e.cfg.BankLetterThreshold()

	return ShareCapitalResult{
		ValidationResult: v.Result(map[string]any{
			"amount":             amount,
			"partner_visa_count": partnerVisas,
		}),
		RequiresBankLetter: requiresBankLetter,
		RequiredMinimum:    required,
	}
}

func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
