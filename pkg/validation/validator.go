// Package validation checks submitted step payloads against the step configuration.
package validation

import (
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/dukex/formation/pkg/models"
	"github.com/go-playground/validator/v10"
)

// primitives checks single values against rule tags built from the loaded configuration,
// e.g. "min=3" for a text length or "lte=5" for a file size.
var primitives = validator.New()

// satisfies reports whether value passes the tag built from format and args.
func satisfies(value any, format string, args ...any) bool {
	return primitives.Var(value, fmt.Sprintf(format, args...)) == nil
}

// Validator validates step submissions. It never mutates the step definitions it is given
// and is safe for concurrent use.
type Validator struct {
	patterns sync.Map // pattern -> *regexp.Regexp
}

func New() *Validator {
	return &Validator{}
}

// Validate checks data against step and returns every violation found. Step types without
// a submitted payload shape pass.
func (v *Validator) Validate(step *models.StepDefinition, data map[string]any) models.ValidationResult {
	var violations models.Violations

	switch step.Type {
	case models.StepTypeForm:
		v.validateFields(&violations, step.Fields, data)
	case models.StepTypeDocUpload:
		validateDocuments(&violations, step.DocumentRequirements, data)
	case models.StepTypePayment:
		validatePayment(&violations, step.PaymentItems, data)
	case models.StepTypeAuto, models.StepTypeReview, models.StepTypeIssuance, models.StepTypeNotify:
	}

	return violations.Result(data)
}

func (v *Validator) validateFields(violations *models.Violations, fields []*models.FieldDefinition, data map[string]any) {
	for _, field := range fields {
		value := data[field.Name]
		if IsBlank(value) {
			if field.Required {
				violations.Add("%s is required", field.DisplayLabel())
			}

			continue
		}

		v.validateField(violations, field, value)
	}
}

func (v *Validator) validateField(violations *models.Violations, field *models.FieldDefinition, value any) {
	label := field.DisplayLabel()

	switch field.Type {
	case models.FieldTypeText, models.FieldTypeTextarea:
		v.validateText(violations, label, field.Text, value)
	case models.FieldTypeNumber:
		validateNumber(violations, label, field.Number, value)
	case models.FieldTypeSelect:
		validateSelect(violations, label, field.Select, value)
	case models.FieldTypeArray:
		validateArray(violations, label, field.Array, value)
	}
}

func (v *Validator) validateText(violations *models.Violations, label string, rules *models.TextRules, value any) {
	if rules == nil {
		return
	}

	text := stringValue(value)

	if rules.MinLength != nil && !satisfies(text, "min=%d", *rules.MinLength) {
		violations.Add("%s must be at least %d characters", label, *rules.MinLength)
	}

	if rules.MaxLength != nil && !satisfies(text, "max=%d", *rules.MaxLength) {
		violations.Add("%s must be at most %d characters", label, *rules.MaxLength)
	}

	if rules.Pattern != "" {
		re, err := v.pattern(rules)
		if err != nil || !re.MatchString(text) {
			violations.Add("%s format is invalid", label)
		}
	}
}

func (v *Validator) pattern(rules *models.TextRules) (*regexp.Regexp, error) {
	if cached, ok := v.patterns.Load(rules.Pattern); ok {
		return cached.(*regexp.Regexp), nil
	}

	re, err := regexp.Compile(rules.AnchoredPattern())
	if err != nil {
		return nil, err
	}

	v.patterns.Store(rules.Pattern, re)

	return re, nil
}

func validateNumber(violations *models.Violations, label string, rules *models.NumberRules, value any) {
	n, ok := ToFloat(value)
	if !ok {
		violations.Add("%s must be a number", label)

		return
	}

	if rules == nil {
		return
	}

	if rules.Min != nil && !satisfies(n, "gte=%s", formatNumber(*rules.Min)) {
		violations.Add("%s must be at least %s", label, formatNumber(*rules.Min))
	}

	if rules.Max != nil && !satisfies(n, "lte=%s", formatNumber(*rules.Max)) {
		violations.Add("%s must be at most %s", label, formatNumber(*rules.Max))
	}
}

// validateSelect checks membership with SelectRules.Contains. Option values are free text
// and may hold the commas, pipes and quotes that a oneof tag cannot carry.
func validateSelect(violations *models.Violations, label string, rules *models.SelectRules, value any) {
	if rules == nil || len(rules.Options) == 0 {
		return
	}

	if !rules.Contains(stringValue(value)) {
		violations.Add("%s must be one of: %s", label, strings.Join(rules.Values(), ", "))
	}
}

func validateArray(violations *models.Violations, label string, rules *models.ArrayRules, value any) {
	items, ok := toSlice(value)
	if !ok {
		violations.Add("%s must be a list", label)

		return
	}

	if rules == nil {
		return
	}

	if rules.MinItems != nil && !satisfies(items, "min=%d", *rules.MinItems) {
		violations.Add("%s must have at least %d items", label, *rules.MinItems)
	}

	if rules.MaxItems != nil && !satisfies(items, "max=%d", *rules.MaxItems) {
		violations.Add("%s must have at most %d items", label, *rules.MaxItems)
	}

	if len(rules.ItemSchema) == 0 {
		return
	}

	// Nested items are only checked for required presence; deeper arrays are not walked.
	for i, item := range items {
		entry, _ := item.(map[string]any)

		for _, nested := range rules.ItemSchema {
			if !nested.Required {
				continue
			}

			if IsBlank(entry[nested.Name]) {
				violations.Add("%s item %d: %s is required", label, i+1, nested.DisplayLabel())
			}
		}
	}
}

// validateDocuments expects {"documents": [{"type", "size_mb", "format"}, ...]}.
func validateDocuments(violations *models.Violations, reqs []*models.DocumentRequirement, data map[string]any) {
	documents, _ := toSlice(data["documents"])

	uploaded := make(map[string]bool, len(documents))

	for _, item := range documents {
		doc, ok := item.(map[string]any)
		if !ok {
			continue
		}

		docType := stringValue(doc["type"])
		uploaded[docType] = true

		req, ok := requirement(reqs, docType)
		if !ok {
			continue
		}

		CheckDocument(violations, req, doc["size_mb"], stringValue(doc["format"]))
	}

	for _, req := range reqs {
		if req.Required && !uploaded[req.Type] {
			violations.Add("%s is required", req.DisplayName())
		}
	}
}

// CheckDocument applies the size ceiling and format allow-list of a requirement.
func CheckDocument(violations *models.Violations, req *models.DocumentRequirement, size any, format string) {
	if req.MaxSizeMB > 0 {
		if sizeMB, ok := ToFloat(size); ok && !satisfies(sizeMB, "lte=%s", formatNumber(req.MaxSizeMB)) {
			violations.Add("%s exceeds maximum size of %s MB", req.DisplayName(), formatNumber(req.MaxSizeMB))
		}
	}

	if len(req.AcceptedFormats) > 0 {
		format = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")

		accepted := false

		for _, f := range req.AcceptedFormats {
			if strings.EqualFold(f, format) {
				accepted = true

				break
			}
		}

		if !accepted {
			violations.Add("%s must be one of: %s", req.DisplayName(), strings.Join(req.AcceptedFormats, ", "))
		}
	}
}

func requirement(reqs []*models.DocumentRequirement, docType string) (*models.DocumentRequirement, bool) {
	for _, r := range reqs {
		if r.Type == docType {
			return r, true
		}
	}

	return nil, false
}

// validatePayment requires, for every mandatory item, either the item key
// ("Government Fee" -> "government_fee") or a total_amount key.
func validatePayment(violations *models.Violations, items []*models.PaymentItem, data map[string]any) {
	if _, ok := data["total_amount"]; ok {
		return
	}

	for _, item := range items {
		if !item.IsRequired() {
			continue
		}

		if _, ok := data[PaymentKey(item.Name)]; !ok {
			violations.Add("Payment for %s is required", item.Name)
		}
	}
}

// PaymentKey derives the payload key of a payment item from its name.
func PaymentKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// IsBlank reports whether a submitted value counts as absent: nil, whitespace-only
// strings and empty lists or objects.
func IsBlank(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		rv := reflect.ValueOf(value)
		switch rv.Kind() {
		case reflect.Slice, reflect.Map:
			return rv.Len() == 0
		default:
			return false
		}
	}
}

// ToFloat converts JSON numbers, Go numeric types and numeric strings.
func ToFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)

		return f, err == nil
	default:
		return 0, false
	}
}

func toSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}

	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}

	return items, true
}

func stringValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return formatNumber(v)
	default:
		return fmt.Sprint(v)
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
