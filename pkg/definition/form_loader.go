package definition

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dukex/formation/pkg/metrics"
	"github.com/dukex/formation/pkg/models"
)

// DefaultFormWorkflowType is the workflow type assigned to forms that do not declare one.
const DefaultFormWorkflowType = "company_formation"

// FormConfigLoader loads free-zone formation forms by freezone code.
type FormConfigLoader struct {
	source Source
	cache  *Cache
	logger *slog.Logger
}

// NewFormConfigLoader creates a loader reading from source and memoizing into cache.
func NewFormConfigLoader(source Source, cache *Cache, logger *slog.Logger) *FormConfigLoader {
	return &FormConfigLoader{
		source: source,
		cache:  cache,
		logger: logger.With("module", "form_loader"),
	}
}

// Load returns the form for a freezone code. The returned definition carries the source
// modification time, which the API exposes as the configuration version.
func (l *FormConfigLoader) Load(ctx context.Context, freezoneCode string) (*models.FormConfigDefinition, error) {
	key := NormalizeKey(freezoneCode)

	modTime, err := l.source.ModTime(ctx, key)
	if err != nil {
		metrics.RecordConfigLoad(KindForm, loadOutcome(err))

		return nil, err
	}

	if cached, ok := l.cache.Get(KindForm, key, modTime); ok {
		metrics.RecordConfigLoad(KindForm, metrics.LoadCached)

		return cached.(*models.FormConfigDefinition), nil
	}

	doc, err := l.source.Open(ctx, key)
	if err != nil {
		metrics.RecordConfigLoad(KindForm, loadOutcome(err))

		return nil, err
	}

	def, err := ParseForm(doc.Name, doc.Data, doc.ModTime)
	if err != nil {
		metrics.RecordConfigLoad(KindForm, loadOutcome(err))
		l.logger.ErrorContext(ctx, "Invalid form configuration", "freezone", key, "error", err)

		return nil, err
	}

	l.cache.Put(KindForm, key, doc.ModTime, def)
	metrics.RecordConfigLoad(KindForm, metrics.LoadLoaded)
	l.logger.DebugContext(ctx, "Loaded form configuration", "freezone", key, "version", def.Version())

	return def, nil
}

// ParseForm builds a form configuration from a document, reporting every problem found.
// Form steps are keyed by id and numbered by position; step_type defaults to FORM.
func ParseForm(name string, data []byte, modTime time.Time) (*models.FormConfigDefinition, error) {
	var (
		doc formDocument
		p   problems
	)

	invalid, err := decode(name, data, formSchema, &doc, &p)
	if err != nil {
		return nil, err
	}

	def := &models.FormConfigDefinition{
		WorkflowDefinition: models.WorkflowDefinition{
			WorkflowType:  strings.TrimSpace(doc.WorkflowType),
			Name:          strings.TrimSpace(doc.Name),
			Description:   doc.Description,
			Metadata:      doc.Metadata,
			Automation:    doc.Automation,
			Notifications: doc.Notifications,
		},
		BusinessRules:   doc.BusinessRules,
		ValidationRules: doc.ValidationRules,
		Components:      doc.Components,
		InternalFields:  doc.InternalFields,
		ModTime:         modTime,
	}

	switch {
	case doc.Freezone == nil:
		if !invalid["freezone"] {
			p.add("freezone is required")
		}
	case strings.TrimSpace(doc.Freezone.Code) == "":
		p.add("freezone.code is required")
	default:
		def.Freezone = *doc.Freezone
		def.Freezone.Code = strings.TrimSpace(def.Freezone.Code)
	}

	if def.WorkflowType == "" {
		def.WorkflowType = DefaultFormWorkflowType
	}

	if def.Name == "" {
		def.Name = def.Freezone.Name
		if def.Name == "" {
			def.Name = def.Freezone.Code
		}
	}

	if len(doc.Steps) == 0 && !invalid["steps"] {
		p.add("steps must contain at least one step")
	}

	checkBusinessRules(&p, &def.BusinessRules)

	b := &stepBuilder{problems: &p, fileUpload: doc.ValidationRules.FileUpload}
	ids := make(map[string]bool, len(doc.Steps))

	for i, sd := range doc.Steps {
		ref := positionRef(i)
		id := strings.TrimSpace(sd.ID)

		if id == "" {
			p.add("%s: id is required", ref)
		} else {
			ref = fmt.Sprintf("step %q", id)
			if ids[id] {
				p.add("%s: duplicate id", ref)
			}

			ids[id] = true
		}

		if strings.TrimSpace(sd.Title) == "" {
			p.add("%s: title is required", ref)
		}

		if strings.TrimSpace(sd.Component) == "" {
			p.add("%s: component is required", ref)
		}

		stepType := b.stepType(ref, sd.StepType, models.StepTypeForm)

		def.Steps = append(def.Steps, b.step(ref, sd, i+1, stepType))
	}

	if err := p.err(name); err != nil {
		return nil, err
	}

	return def, nil
}

func checkBusinessRules(p *problems, rules *models.BusinessRules) {
	if a := rules.Activities; a != nil {
		if a.FreeCount != nil && *a.FreeCount < 0 {
			p.add("business_rules.activities.free_count must not be negative")
		}

		if a.MaxCount != nil && *a.MaxCount < 1 {
			p.add("business_rules.activities.max_count must be at least 1")
		}
	}

	if c := rules.ShareCapital; c != nil && c.Min != nil && c.Max != nil && *c.Min > *c.Max {
		p.add("business_rules.share_capital.min exceeds max")
	}

	if v := rules.VisaPackage; v != nil && v.Min != nil && v.Max != nil && *v.Min > *v.Max {
		p.add("business_rules.visa_package.min exceeds max")
	}
}

func positionRef(i int) string {
	return "step at position " + strconv.Itoa(i+1)
}
