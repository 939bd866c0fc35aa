package definition

import (
	"fmt"

	"github.com/dukex/formation/pkg/models"
	"gopkg.in/yaml.v3"
)

// workflowDocument is the wire shape of a generic workflow definition.
type workflowDocument struct {
	WorkflowType  string                       `yaml:"workflow_type"`
	Name          string                       `yaml:"name"`
	Description   string                       `yaml:"description"`
	Steps         []stepDocument               `yaml:"steps"`
	Metadata      models.WorkflowMetadata      `yaml:"metadata"`
	Validation    map[string]any               `yaml:"validation"`
	Automation    *models.AutomationSettings   `yaml:"automation"`
	Notifications *models.NotificationSettings `yaml:"notifications"`
}

// formDocument is the wire shape of a free-zone formation form.
type formDocument struct {
	WorkflowType    string                       `yaml:"workflow_type"`
	Name            string                       `yaml:"name"`
	Description     string                       `yaml:"description"`
	Freezone        *models.FreezoneInfo         `yaml:"freezone"`
	Steps           []stepDocument               `yaml:"steps"`
	Metadata        models.WorkflowMetadata      `yaml:"metadata"`
	Automation      *models.AutomationSettings   `yaml:"automation"`
	Notifications   *models.NotificationSettings `yaml:"notifications"`
	Components      map[string]any               `yaml:"components"`
	BusinessRules   models.BusinessRules         `yaml:"business_rules"`
	ValidationRules models.ValidationRules       `yaml:"validation_rules"`
	InternalFields  []string                     `yaml:"internal_fields"`
}

type stepDocument struct {
	StepNumber           *int                         `yaml:"step_number"`
	ID                   string                       `yaml:"id"`
	StepType             string                       `yaml:"step_type"`
	Title                string                       `yaml:"title"`
	Description          string                       `yaml:"description"`
	Component            string                       `yaml:"component"`
	Required             *bool                        `yaml:"required"`
	Fields               fieldList                    `yaml:"fields"`
	DocumentRequirements []requirementDocument        `yaml:"document_requirements"`
	PaymentItems         []models.PaymentItem         `yaml:"payment_items"`
	Automation           *models.AutomationDescriptor `yaml:"automation"`
	Config               map[string]any               `yaml:"config"`
}

type fieldDocument struct {
	Name       string             `yaml:"name"`
	Label      string             `yaml:"label"`
	Type       string             `yaml:"type"`
	Required   bool               `yaml:"required"`
	Validation validationDocument `yaml:"validation"`
	Options    []optionDocument   `yaml:"options"`
	ItemSchema fieldList          `yaml:"item_schema"`
}

type validationDocument struct {
	MinLength *int             `yaml:"min_length"`
	MaxLength *int             `yaml:"max_length"`
	Pattern   string           `yaml:"pattern"`
	Min       *float64         `yaml:"min"`
	Max       *float64         `yaml:"max"`
	MinItems  *int             `yaml:"min_items"`
	MaxItems  *int             `yaml:"max_items"`
	Options   []optionDocument `yaml:"options"`
}

type requirementDocument struct {
	Type            string   `yaml:"type"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Required        bool     `yaml:"required"`
	MaxSizeMB       *float64 `yaml:"max_size_mb"`
	AcceptedFormats []string `yaml:"accepted_formats"`
	Multiple        bool     `yaml:"multiple"`
}

// fieldList accepts either a sequence of fields or a mapping of field name to field.
type fieldList []fieldDocument

func (l *fieldList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		var fields []fieldDocument
		if err := node.Decode(&fields); err != nil {
			return err
		}

		*l = fields

		return nil
	case yaml.MappingNode:
		fields := make([]fieldDocument, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			var field fieldDocument
			if err := node.Content[i+1].Decode(&field); err != nil {
				return err
			}

			if field.Name == "" {
				field.Name = node.Content[i].Value
			}

			fields = append(fields, field)
		}

		*l = fields

		return nil
	default:
		return fmt.Errorf("line %d: fields must be a list or a mapping", node.Line)
	}
}

// optionDocument accepts a scalar value or a {value, label} mapping.
type optionDocument struct {
	Value string
	Label string
}

func (o *optionDocument) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		o.Value = node.Value

		return nil
	case yaml.MappingNode:
		var raw struct {
			Value string `yaml:"value"`
			Label string `yaml:"label"`
		}
		if err := node.Decode(&raw); err != nil {
			return err
		}

		o.Value = raw.Value
		o.Label = raw.Label

		return nil
	default:
		return fmt.Errorf("line %d: option must be a value or a mapping", node.Line)
	}
}
