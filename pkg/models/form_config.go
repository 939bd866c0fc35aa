package models

import (
	"strconv"
	"time"
)

// Defaults applied when a form configuration omits a business or validation rule.
const (
	DefaultFreeActivitiesCount          = 3
	DefaultMaxActivitiesCount           = 10
	DefaultMinShareCapital              = 1000.0
	DefaultBankLetterThreshold          = 150000.0
	DefaultPartnerVisaCapitalMultiplier = 48000.0
	DefaultMinVisaPackage               = 1
	DefaultMaxVisaPackage               = 9
	DefaultMinSingleWordLength          = 2
)

// FormConfigDefinition is the company-formation form of one free zone. It carries the
// generic workflow definition plus free-zone specific rules.
type FormConfigDefinition struct {
	WorkflowDefinition

	Freezone        FreezoneInfo    `json:"freezone"`
	BusinessRules   BusinessRules   `json:"business_rules"`
	ValidationRules ValidationRules `json:"validation_rules"`
	Components      map[string]any  `json:"components,omitempty"`
	InternalFields  []string        `json:"internal_fields,omitempty"`

	// ModTime is the modification time of the source the definition was loaded from.
	ModTime time.Time `json:"-"`
}

// FreezoneInfo identifies the free zone a form belongs to.
type FreezoneInfo struct {
	Code    string `json:"code"              yaml:"code"`
	Name    string `json:"name"              yaml:"name"`
	Tagline string `json:"tagline,omitempty" yaml:"tagline,omitempty"`
}

// BusinessRules holds the commercial limits of a free zone. Nil values fall back to defaults.
type BusinessRules struct {
	Activities   *ActivityRules     `json:"activities,omitempty"    yaml:"activities,omitempty"`
	ShareCapital *ShareCapitalRules `json:"share_capital,omitempty" yaml:"share_capital,omitempty"`
	VisaPackage  *VisaPackageRules  `json:"visa_package,omitempty"  yaml:"visa_package,omitempty"`
}

type ActivityRules struct {
	FreeCount *int `json:"free_count,omitempty" yaml:"free_count,omitempty"`
	MaxCount  *int `json:"max_count,omitempty"  yaml:"max_count,omitempty"`
}

type ShareCapitalRules struct {
	Min                   *float64 `json:"min,omitempty"                     yaml:"min,omitempty"`
	Max                   *float64 `json:"max,omitempty"                     yaml:"max,omitempty"`
	BankLetterThreshold   *float64 `json:"bank_letter_threshold,omitempty"   yaml:"bank_letter_threshold,omitempty"`
	PartnerVisaMultiplier *float64 `json:"partner_visa_multiplier,omitempty" yaml:"partner_visa_multiplier,omitempty"`
}

type VisaPackageRules struct {
	Min *int `json:"min,omitempty" yaml:"min,omitempty"`
	Max *int `json:"max,omitempty" yaml:"max,omitempty"`
}

// ValidationRules holds input rules shared by every step of the form.
type ValidationRules struct {
	BannedWords *BannedWordsRule  `json:"banned_words,omitempty" yaml:"banned_words,omitempty"`
	CompanyName *CompanyNameRules `json:"company_name,omitempty" yaml:"company_name,omitempty"`
	FileUpload  *FileUploadRules  `json:"file_upload,omitempty"  yaml:"file_upload,omitempty"`
}

type BannedWordsRule struct {
	Words         []string `json:"words"          yaml:"words"`
	CaseSensitive bool     `json:"case_sensitive" yaml:"case_sensitive"`
}

type CompanyNameRules struct {
	MinSingleWordLength *int `json:"min_single_word_length,omitempty" yaml:"min_single_word_length,omitempty"`
}

type FileUploadRules struct {
	MaxSizeMB       *float64 `json:"max_size_mb,omitempty"      yaml:"max_size_mb,omitempty"`
	AcceptedFormats []string `json:"accepted_formats,omitempty" yaml:"accepted_formats,omitempty"`
}

// Valid reports whether the definition can be used. A nil definition is never valid.
func (f *FormConfigDefinition) Valid() bool {
	return f != nil && f.Freezone.Code != "" && len(f.Steps) > 0
}

// StepByID returns the step with the given string id.
func (f *FormConfigDefinition) StepByID(id string) (*StepDefinition, bool) {
	for _, s := range f.Steps {
		if s.ID == id {
			return s, true
		}
	}

	return nil, false
}

func (f *FormConfigDefinition) FreeActivitiesCount() int {
	if a := f.BusinessRules.Activities; a != nil && a.FreeCount != nil {
		return *a.FreeCount
	}

	return DefaultFreeActivitiesCount
}

func (f *FormConfigDefinition) MaxActivitiesCount() int {
	if a := f.BusinessRules.Activities; a != nil && a.MaxCount != nil {
		return *a.MaxCount
	}

	return DefaultMaxActivitiesCount
}

func (f *FormConfigDefinition) MinShareCapital() float64 {
	if c := f.BusinessRules.ShareCapital; c != nil && c.Min != nil {
		return *c.Min
	}

	return DefaultMinShareCapital
}

// MaxShareCapital returns the configured ceiling and whether one is set.
func (f *FormConfigDefinition) MaxShareCapital() (float64, bool) {
	if c := f.BusinessRules.ShareCapital; c != nil && c.Max != nil {
		return *c.Max, true
	}

	return 0, false
}

func (f *FormConfigDefinition) BankLetterThreshold() float64 {
	if c := f.BusinessRules.ShareCapital; c != nil && c.BankLetterThreshold != nil {
		return *c.BankLetterThreshold
	}

	return DefaultBankLetterThreshold
}

func (f *FormConfigDefinition) PartnerVisaCapitalMultiplier() float64 {
	if c := f.BusinessRules.ShareCapital; c != nil && c.PartnerVisaMultiplier != nil {
		return *c.PartnerVisaMultiplier
	}

	return DefaultPartnerVisaCapitalMultiplier
}

func (f *FormConfigDefinition) MinVisaPackage() int {
	if v := f.BusinessRules.VisaPackage; v != nil && v.Min != nil {
		return *v.Min
	}

	return DefaultMinVisaPackage
}

func (f *FormConfigDefinition) MaxVisaPackage() int {
	if v := f.BusinessRules.VisaPackage; v != nil && v.Max != nil {
		return *v.Max
	}

	return DefaultMaxVisaPackage
}

// BannedWords returns the restricted name tokens and whether matching is case sensitive.
func (f *FormConfigDefinition) BannedWords() ([]string, bool) {
	if b := f.ValidationRules.BannedWords; b != nil {
		return b.Words, b.CaseSensitive
	}

	return nil, false
}

func (f *FormConfigDefinition) MinSingleWordLength() int {
	if c := f.ValidationRules.CompanyName; c != nil && c.MinSingleWordLength != nil {
		return *c.MinSingleWordLength
	}

	return DefaultMinSingleWordLength
}

// Version is a cache-busting marker derived from the source modification time.
func (f *FormConfigDefinition) Version() string {
	if f.ModTime.IsZero() {
		return "0"
	}

	return strconv.FormatInt(f.ModTime.Unix(), 10)
}

// FormProjection is the API representation of a form configuration.
type FormProjection struct {
	Freezone        FreezoneInfo      `json:"freezone"`
	Steps           []*StepDefinition `json:"steps"`
	Components      map[string]any    `json:"components"`
	BusinessRules   BusinessRules     `json:"business_rules"`
	ValidationRules ValidationRules   `json:"validation_rules"`
	InternalFields  []string          `json:"internal_fields"`
	Version         string            `json:"version"`
}

// Projection returns the API representation of the form configuration.
func (f *FormConfigDefinition) Projection() FormProjection {
	components := f.Components
	if components == nil {
		components = map[string]any{}
	}

	internal := f.InternalFields
	if internal == nil {
		internal = []string{}
	}

	return FormProjection{
		Freezone:        f.Freezone,
		Steps:           f.Steps,
		Components:      components,
		BusinessRules:   f.BusinessRules,
		ValidationRules: f.ValidationRules,
		InternalFields:  internal,
		Version:         f.Version(),
	}
}
