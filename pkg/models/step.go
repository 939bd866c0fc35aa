package models

// StepType is the closed set of step kinds a workflow definition may declare.
type StepType string

const (
	StepTypeForm      StepType = "FORM"       // User fills a form
	StepTypeDocUpload StepType = "DOC_UPLOAD" // User uploads required documents
	StepTypeAuto      StepType = "AUTO"       // Processed by an automation
	StepTypeReview    StepType = "REVIEW"     // Manual review by an operator
	StepTypePayment   StepType = "PAYMENT"    // Fee payment
	StepTypeIssuance  StepType = "ISSUANCE"   // License / certificate issuance
	StepTypeNotify    StepType = "NOTIFY"     // Notification to the applicant
)

var stepTypes = []StepType{
	StepTypeForm,
	StepTypeDocUpload,
	StepTypeAuto,
	StepTypeReview,
	StepTypePayment,
	StepTypeIssuance,
	StepTypeNotify,
}

// StepTypes returns every known step type in declaration order.
func StepTypes() []StepType {
	out := make([]StepType, len(stepTypes))
	copy(out, stepTypes)

	return out
}

// ParseStepType resolves a step type from its wire name.
func ParseStepType(value string) (StepType, bool) {
	for _, t := range stepTypes {
		if string(t) == value {
			return t, true
		}
	}

	return "", false
}

// Valid reports whether t is one of the known step types.
func (t StepType) Valid() bool {
	_, ok := ParseStepType(string(t))

	return ok
}

// StepDefinition is one immutable step of a loaded workflow definition.
// Only the configuration matching Type is populated.
type StepDefinition struct {
	Number      int      `json:"step_number"`
	ID          string   `json:"id,omitempty"`
	Type        StepType `json:"step_type"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Component   string   `json:"component,omitempty"`
	Required    bool     `json:"required"`

	Fields               []*FieldDefinition     `json:"fields,omitempty"`                // FORM
	DocumentRequirements []*DocumentRequirement `json:"document_requirements,omitempty"` // DOC_UPLOAD
	PaymentItems         []*PaymentItem         `json:"payment_items,omitempty"`         // PAYMENT
	Automation           *AutomationDescriptor  `json:"automation,omitempty"`            // AUTO
	Config               map[string]any         `json:"config,omitempty"`                // REVIEW, ISSUANCE, NOTIFY
}

// Field returns the declared field with the given name.
func (s *StepDefinition) Field(name string) (*FieldDefinition, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}

	return nil, false
}

// Requirement returns the document requirement for a document type.
func (s *StepDefinition) Requirement(documentType string) (*DocumentRequirement, bool) {
	for _, r := range s.DocumentRequirements {
		if r.Type == documentType {
			return r, true
		}
	}

	return nil, false
}

// RequiredDocumentTypes lists the document types flagged as required, in declaration order.
func (s *StepDefinition) RequiredDocumentTypes() []string {
	types := make([]string, 0, len(s.DocumentRequirements))

	for _, r := range s.DocumentRequirements {
		if r.Required {
			types = append(types, r.Type)
		}
	}

	return types
}

// DocumentRequirement describes one document a DOC_UPLOAD step asks for.
type DocumentRequirement struct {
	Type            string   `json:"type"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Required        bool     `json:"required"`
	MaxSizeMB       float64  `json:"max_size_mb,omitempty"`
	AcceptedFormats []string `json:"accepted_formats,omitempty"`
	Multiple        bool     `json:"multiple,omitempty"`
}

// DisplayName is the requirement name, falling back to its type.
func (r *DocumentRequirement) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}

	return r.Type
}

// PaymentItem is a line of a PAYMENT step. Items are required unless Required is explicitly false.
type PaymentItem struct {
	Name     string  `json:"name"               yaml:"name"`
	Amount   float64 `json:"amount,omitempty"   yaml:"amount"`
	Currency string  `json:"currency,omitempty" yaml:"currency"`
	Required *bool   `json:"required,omitempty" yaml:"required"`
}

// IsRequired reports whether the item must be paid.
func (p *PaymentItem) IsRequired() bool {
	return p.Required == nil || *p.Required
}

// AutomationDescriptor configures an AUTO step.
type AutomationDescriptor struct {
	Action           string `json:"action"                       yaml:"action"`
	Provider         string `json:"provider,omitempty"           yaml:"provider"`
	TimeoutSeconds   int    `json:"timeout_seconds,omitempty"    yaml:"timeout_seconds"`
	FallbackToManual bool   `json:"fallback_to_manual,omitempty" yaml:"fallback_to_manual"`
}
