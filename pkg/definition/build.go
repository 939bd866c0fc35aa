package definition

import (
	"fmt"
	"regexp"
	"slices"
	"sort"
	"strings"

	"github.com/dukex/formation/pkg/models"
)

// stepBuilder converts step documents into step definitions, recording every problem found.
type stepBuilder struct {
	problems   *problems
	fileUpload *models.FileUploadRules
}

// stepType resolves a step type, returning "" and recording a problem when it is missing or unknown.
// Step types are matched exactly: "form" is not FORM.
func (b *stepBuilder) stepType(ref, value string, fallback models.StepType) models.StepType {
	value = strings.TrimSpace(value)
	if value == "" {
		if fallback == "" {
			b.problems.add("%s: step_type is required", ref)
		}

		return fallback
	}

	t, ok := models.ParseStepType(value)
	if !ok {
		b.problems.add("%s: unknown step_type %q", ref, value)
	}

	return t
}

func (b *stepBuilder) step(ref string, doc stepDocument, number int, stepType models.StepType) *models.StepDefinition {
	required := true
	if doc.Required != nil {
		required = *doc.Required
	}

	step := &models.StepDefinition{
		Number:      number,
		ID:          strings.TrimSpace(doc.ID),
		Type:        stepType,
		Title:       strings.TrimSpace(doc.Title),
		Description: doc.Description,
		Component:   strings.TrimSpace(doc.Component),
		Required:    required,
		Config:      doc.Config,
	}

	switch stepType {
	case models.StepTypeForm:
		step.Fields = b.fields(ref, doc.Fields)
	case models.StepTypeDocUpload:
		step.DocumentRequirements = b.requirements(ref, doc.DocumentRequirements)
	case models.StepTypePayment:
		step.PaymentItems = b.paymentItems(ref, doc.PaymentItems)
	case models.StepTypeAuto:
		step.Automation = doc.Automation
		if step.Automation != nil && strings.TrimSpace(step.Automation.Action) == "" {
			b.problems.add("%s: automation.action is required", ref)
		}
	case models.StepTypeReview, models.StepTypeIssuance, models.StepTypeNotify:
	}

	return step
}

func (b *stepBuilder) fields(ref string, docs fieldList) []*models.FieldDefinition {
	fields := make([]*models.FieldDefinition, 0, len(docs))
	seen := make(map[string]bool, len(docs))

	for i, doc := range docs {
		name := strings.TrimSpace(doc.Name)
		fref := fmt.Sprintf("%s: field %q", ref, name)

		if name == "" {
			fref = fmt.Sprintf("%s: field at position %d", ref, i+1)
			b.problems.add("%s: name is required", fref)
		} else if seen[name] {
			b.problems.add("%s: duplicate field name", fref)
		}

		seen[name] = true

		field := &models.FieldDefinition{
			Name:     name,
			Label:    strings.TrimSpace(doc.Label),
			Required: doc.Required,
		}

		fieldType, ok := models.ParseFieldType(strings.ToLower(strings.TrimSpace(doc.Type)))
		if !ok {
			if strings.TrimSpace(doc.Type) == "" {
				b.problems.add("%s: type is required", fref)
			} else {
				b.problems.add("%s: unknown type %q", fref, doc.Type)
			}

			fields = append(fields, field)

			continue
		}

		field.Type = fieldType
		v := doc.Validation

		switch fieldType {
		case models.FieldTypeText, models.FieldTypeTextarea:
			field.Text = &models.TextRules{MinLength: v.MinLength, MaxLength: v.MaxLength, Pattern: v.Pattern}
			if v.Pattern != "" {
				if _, err := regexp.Compile(field.Text.AnchoredPattern()); err != nil {
					b.problems.add("%s: invalid pattern %q: %v", fref, v.Pattern, err)
				}
			}

			if v.MinLength != nil && v.MaxLength != nil && *v.MinLength > *v.MaxLength {
				b.problems.add("%s: min_length exceeds max_length", fref)
			}
		case models.FieldTypeNumber:
			field.Number = &models.NumberRules{Min: v.Min, Max: v.Max}
			if v.Min != nil && v.Max != nil && *v.Min > *v.Max {
				b.problems.add("%s: min exceeds max", fref)
			}
		case models.FieldTypeSelect:
			options := doc.Options
			if len(options) == 0 {
				options = v.Options
			}

			field.Select = &models.SelectRules{Options: make([]models.SelectOption, 0, len(options))}
			for _, o := range options {
				if strings.TrimSpace(o.Value) == "" {
					b.problems.add("%s: option value is required", fref)

					continue
				}

				field.Select.Options = append(field.Select.Options, models.SelectOption{Value: o.Value, Label: o.Label})
			}
		case models.FieldTypeArray:
			field.Array = &models.ArrayRules{
				MinItems:   v.MinItems,
				MaxItems:   v.MaxItems,
				ItemSchema: b.fields(fref+" item_schema", doc.ItemSchema),
			}
			if v.MinItems != nil && v.MaxItems != nil && *v.MinItems > *v.MaxItems {
				b.problems.add("%s: min_items exceeds max_items", fref)
			}
		}

		fields = append(fields, field)
	}

	return fields
}

func (b *stepBuilder) requirements(ref string, docs []requirementDocument) []*models.DocumentRequirement {
	reqs := make([]*models.DocumentRequirement, 0, len(docs))
	seen := make(map[string]bool, len(docs))

	for i, doc := range docs {
		docType := strings.TrimSpace(doc.Type)
		if docType == "" {
			b.problems.add("%s: document requirement at position %d: type is required", ref, i+1)
		} else if seen[docType] {
			b.problems.add("%s: duplicate document requirement %q", ref, docType)
		}

		seen[docType] = true

		req := &models.DocumentRequirement{
			Type:            docType,
			Name:            strings.TrimSpace(doc.Name),
			Description:     doc.Description,
			Required:        doc.Required,
			AcceptedFormats: normalizeFormats(doc.AcceptedFormats),
			Multiple:        doc.Multiple,
		}

		switch {
		case doc.MaxSizeMB != nil:
			req.MaxSizeMB = *doc.MaxSizeMB
		case b.fileUpload != nil && b.fileUpload.MaxSizeMB != nil:
			req.MaxSizeMB = *b.fileUpload.MaxSizeMB
		}

		if req.MaxSizeMB < 0 {
			b.problems.add("%s: document requirement %q: max_size_mb must not be negative", ref, docType)
		}

		if len(req.AcceptedFormats) == 0 && b.fileUpload != nil {
			req.AcceptedFormats = normalizeFormats(b.fileUpload.AcceptedFormats)
		}

		reqs = append(reqs, req)
	}

	return reqs
}

func (b *stepBuilder) paymentItems(ref string, docs []models.PaymentItem) []*models.PaymentItem {
	items := make([]*models.PaymentItem, 0, len(docs))

	for i := range docs {
		item := docs[i]
		if strings.TrimSpace(item.Name) == "" {
			b.problems.add("%s: payment item at position %d: name is required", ref, i+1)
		}

		if item.Amount < 0 {
			b.problems.add("%s: payment item %q: amount must not be negative", ref, item.Name)
		}

		items = append(items, &item)
	}

	return items
}

// normalizeFormats lower-cases file formats and strips a leading dot: ".PDF" becomes "pdf".
func normalizeFormats(formats []string) []string {
	if len(formats) == 0 {
		return nil
	}

	out := make([]string, 0, len(formats))

	for _, f := range formats {
		f = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(f)), ".")
		if f != "" && !slices.Contains(out, f) {
			out = append(out, f)
		}
	}

	return out
}

// checkSequential reports numbers that do not form the sequence 1..len(numbers).
func checkSequential(p *problems, numbers []int) {
	sorted := slices.Clone(numbers)
	sort.Ints(sorted)

	for i, n := range sorted {
		if n != i+1 {
			p.add("step numbers must be sequential starting at 1, got %v", numbers)

			return
		}
	}
}
