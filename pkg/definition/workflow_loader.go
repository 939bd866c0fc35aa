package definition

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/formation/pkg/metrics"
	"github.com/dukex/formation/pkg/models"
)

const (
	KindWorkflow = "workflow"
	KindForm     = "form"
)

// WorkflowLoader loads generic workflow definitions by workflow type.
type WorkflowLoader struct {
	source Source
	cache  *Cache
	logger *slog.Logger
}

// NewWorkflowLoader creates a loader reading from source and memoizing into cache.
func NewWorkflowLoader(source Source, cache *Cache, logger *slog.Logger) *WorkflowLoader {
	return &WorkflowLoader{
		source: source,
		cache:  cache,
		logger: logger.With("module", "workflow_loader"),
	}
}

// Load returns the definition for workflowType. Repeated loads are served from the cache
// until the source document changes.
func (l *WorkflowLoader) Load(ctx context.Context, workflowType string) (*models.WorkflowDefinition, error) {
	key := NormalizeKey(workflowType)

	modTime, err := l.source.ModTime(ctx, key)
	if err != nil {
		metrics.RecordConfigLoad(KindWorkflow, loadOutcome(err))

		return nil, err
	}

	if cached, ok := l.cache.Get(KindWorkflow, key, modTime); ok {
		metrics.RecordConfigLoad(KindWorkflow, metrics.LoadCached)

		return cached.(*models.WorkflowDefinition), nil
	}

	doc, err := l.source.Open(ctx, key)
	if err != nil {
		metrics.RecordConfigLoad(KindWorkflow, loadOutcome(err))

		return nil, err
	}

	def, err := ParseWorkflow(doc.Name, doc.Data)
	if err != nil {
		metrics.RecordConfigLoad(KindWorkflow, loadOutcome(err))
		l.logger.ErrorContext(ctx, "Invalid workflow definition", "workflow_type", key, "error", err)

		return nil, err
	}

	l.cache.Put(KindWorkflow, key, doc.ModTime, def)
	metrics.RecordConfigLoad(KindWorkflow, metrics.LoadLoaded)
	l.logger.DebugContext(ctx, "Loaded workflow definition", "workflow_type", key, "steps", len(def.Steps))

	return def, nil
}

// ParseWorkflow builds a workflow definition from a document, reporting every problem found.
func ParseWorkflow(name string, data []byte) (*models.WorkflowDefinition, error) {
	var (
		doc workflowDocument
		p   problems
	)

	invalid, err := decode(name, data, workflowSchema, &doc, &p)
	if err != nil {
		return nil, err
	}

	def := &models.WorkflowDefinition{
		WorkflowType:  strings.TrimSpace(doc.WorkflowType),
		Name:          strings.TrimSpace(doc.Name),
		Description:   doc.Description,
		Metadata:      doc.Metadata,
		Validation:    doc.Validation,
		Automation:    doc.Automation,
		Notifications: doc.Notifications,
	}

	if def.WorkflowType == "" {
		p.add("workflow_type is required")
	}

	if def.Name == "" {
		p.add("name is required")
	}

	if len(doc.Steps) == 0 && !invalid["steps"] {
		p.add("steps must contain at least one step")
	}

	b := &stepBuilder{problems: &p}
	numbers := make([]int, 0, len(doc.Steps))

	for i, sd := range doc.Steps {
		ref := positionRef(i)
		number := 0

		if sd.StepNumber == nil {
			if !invalid[fmt.Sprintf("steps.%d.step_number", i)] {
				p.add("%s: step_number is required", ref)
			}
		} else {
			number = *sd.StepNumber
			ref = "step " + strconv.Itoa(number)
			numbers = append(numbers, number)
		}

		if strings.TrimSpace(sd.Title) == "" {
			p.add("%s: title is required", ref)
		}

		stepType := b.stepType(ref, sd.StepType, "")

		def.Steps = append(def.Steps, b.step(ref, sd, number, stepType))
	}

	if len(numbers) == len(doc.Steps) {
		checkSequential(&p, numbers)
	}

	if err := p.err(name); err != nil {
		return nil, err
	}

	slices.SortFunc(def.Steps, func(a, b *models.StepDefinition) int { return a.Number - b.Number })

	return def, nil
}
