package models

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldType identifies the variant of a form field.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeNumber   FieldType = "number"
	FieldTypeSelect   FieldType = "select"
	FieldTypeArray    FieldType = "array"
)

// ParseFieldType resolves a field type from its wire name.
func ParseFieldType(value string) (FieldType, bool) {
	switch FieldType(value) {
	case FieldTypeText, FieldTypeTextarea, FieldTypeNumber, FieldTypeSelect, FieldTypeArray:
		return FieldType(value), true
	default:
		return "", false
	}
}

// FieldDefinition describes a single field of a FORM step.
// Exactly one of the rule sets is populated and it matches Type:
// Text for text/textarea, Number for number, Select for select, Array for array.
type FieldDefinition struct {
	Name     string    `json:"name"`
	Label    string    `json:"label"`
	Type     FieldType `json:"type"`
	Required bool      `json:"required"`

	Text   *TextRules   `json:"text,omitempty"`
	Number *NumberRules `json:"number,omitempty"`
	Select *SelectRules `json:"select,omitempty"`
	Array  *ArrayRules  `json:"array,omitempty"`
}

// DisplayLabel returns the configured label or the humanized field name.
func (f *FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}

	return Humanize(f.Name)
}

// TextRules constrain text and textarea fields.
type TextRules struct {
	MinLength *int   `json:"min_length,omitempty"`
	MaxLength *int   `json:"max_length,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

// AnchoredPattern wraps Pattern so that it must match the whole value.
func (r *TextRules) AnchoredPattern() string {
	return "^(?:" + r.Pattern + ")$"
}

// NumberRules constrain number fields.
type NumberRules struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// SelectRules constrain select fields.
type SelectRules struct {
	Options []SelectOption `json:"options,omitempty"`
}

// Values returns the option values in declaration order.
func (s *SelectRules) Values() []string {
	values := make([]string, len(s.Options))
	for i, o := range s.Options {
		values[i] = o.Value
	}

	return values
}

// Contains reports whether value is one of the options.
func (s *SelectRules) Contains(value string) bool {
	for _, o := range s.Options {
		if o.Value == value {
			return true
		}
	}

	return false
}

// SelectOption is one choice of a select field.
type SelectOption struct {
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
}

// ArrayRules constrain array fields. ItemSchema describes the shape of each element.
type ArrayRules struct {
	MinItems   *int               `json:"min_items,omitempty"`
	MaxItems   *int               `json:"max_items,omitempty"`
	ItemSchema []*FieldDefinition `json:"item_schema,omitempty"`
}

// Humanize turns an identifier like "full_name" into "Full name".
func Humanize(name string) string {
	s := strings.TrimSpace(strings.ReplaceAll(name, "_", " "))
	s = strings.TrimSuffix(s, " id")

	if s == "" {
		return s
	}

	r, size := utf8.DecodeRuneInString(s)

	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}
