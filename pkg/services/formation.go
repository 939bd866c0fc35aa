package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/formation/pkg/definition"
	"github.com/dukex/formation/pkg/eventbus"
	"github.com/dukex/formation/pkg/events"
	"github.com/dukex/formation/pkg/metrics"
	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/otelhelper"
	"github.com/dukex/formation/pkg/persistence"
	"github.com/dukex/formation/pkg/rules"
	"github.com/dukex/formation/pkg/steps"
	"github.com/dukex/formation/pkg/validation"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Config carries the collaborators of the Formation service. Publisher, Tracer and
// Matcher are optional.
type Config struct {
	Workflows   *definition.WorkflowLoader
	Forms       *definition.FormConfigLoader
	Persistence persistence.Persistence
	Publisher   eventbus.EventPublisher
	Tracer      trace.Tracer
	Matcher     rules.MatchFunc
	Logger      *slog.Logger
}

type Formation struct {
	workflows   *definition.WorkflowLoader
	forms       *definition.FormConfigLoader
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	validator   *validation.Validator
	tracer      trace.Tracer
	matcher     rules.MatchFunc
	logger      *slog.Logger
}

// NewFormation creates a new formation service.
func NewFormation(cfg Config) *Formation {
	tracer := cfg.Tracer
	if tracer == nil {
		tracer = otelhelper.NewNoopTracer()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Formation{
		workflows:   cfg.Workflows,
		forms:       cfg.Forms,
		persistence: cfg.Persistence,
		publisher:   cfg.Publisher,
		validator:   validation.New(),
		tracer:      tracer,
		matcher:     cfg.Matcher,
		logger:      logger.With("module", "formation_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (f *Formation) HealthCheck(ctx context.Context) (string, bool) {
	if f.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := f.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

func (f *Formation) GetWorkflow(ctx context.Context, workflowType string) (*models.WorkflowDefinition, error) {
	return f.workflows.Load(ctx, workflowType)
}

func (f *Formation) GetForm(ctx context.Context, freezoneCode string) (*models.FormConfigDefinition, error) {
	return f.forms.Load(ctx, freezoneCode)
}

// ValidateWorkflowStep validates data against one step of a generic workflow.
func (f *Formation) ValidateWorkflowStep(ctx context.Context, workflowType string, number int, data map[string]any) (models.ValidationResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.validate_step",
		attribute.String(otelhelper.WorkflowTypeKey, workflowType),
		attribute.Int(otelhelper.StepNumberKey, number))
	defer span.End()

	def, err := f.workflows.Load(ctx, workflowType)
	if err != nil {
		otelhelper.SetError(span, err)

		return models.ValidationResult{}, err
	}

	step, err := stepOf(def, number)
	if err != nil {
		return models.ValidationResult{}, err
	}

	result := f.validator.Validate(step, data)
	metrics.RecordValidation(string(step.Type), result.Valid)
	span.SetAttributes(attribute.Bool(otelhelper.ValidKey, result.Valid))

	return result, nil
}

// CreateInstanceRequest starts an applicant's run through a workflow or a free-zone form.
type CreateInstanceRequest struct {
	WorkflowType string `json:"workflow_type"`
	FreezoneCode string `json:"freezone_code"`
}

// CreateInstance stores a new instance positioned on step 1.
func (f *Formation) CreateInstance(ctx context.Context, req CreateInstanceRequest) (*models.WorkflowInstance, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.create_instance",
		attribute.String(otelhelper.WorkflowTypeKey, req.WorkflowType),
		attribute.String(otelhelper.FreezoneKey, req.FreezoneCode))
	defer span.End()

	instance := &models.WorkflowInstance{
		ID:           uuid.NewString(),
		WorkflowType: strings.TrimSpace(req.WorkflowType),
		FreezoneCode: definition.NormalizeKey(req.FreezoneCode),
	}

	if instance.FreezoneCode != "" {
		form, err := f.forms.Load(ctx, instance.FreezoneCode)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		if instance.WorkflowType == "" {
			instance.WorkflowType = form.WorkflowType
		}

		if instance.WorkflowType != form.WorkflowType {
			return nil, newError("CreateInstance", "WORKFLOW_MISMATCH",
				fmt.Sprintf("freezone %s uses workflow %s, not %s", form.Freezone.Code, form.WorkflowType, instance.WorkflowType),
				ErrWorkflowMismatch)
		}
	} else {
		if instance.WorkflowType == "" {
			return nil, newError("CreateInstance", "INVALID_REQUEST", "workflow_type or freezone_code is required", ErrInvalidRequest)
		}

		if _, err := f.workflows.Load(ctx, instance.WorkflowType); err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}
	}

	if err := f.persistence.Instances().Save(ctx, instance); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to create instance: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.InstanceIDKey, instance.ID))

	f.publish(ctx, instance.ID, events.InstanceCreated{
		BaseEvent:    events.NewBaseEvent(events.InstanceCreatedEvent, instance.ID),
		WorkflowType: instance.WorkflowType,
		FreezoneCode: instance.FreezoneCode,
	})

	f.logger.InfoContext(ctx, "instance created",
		"instance_id", instance.ID,
		"workflow_type", instance.WorkflowType,
		"freezone", instance.FreezoneCode)

	return instance, nil
}

func (f *Formation) GetInstance(ctx context.Context, id string) (*models.WorkflowInstance, error) {
	return f.persistence.Instances().GetByID(ctx, id)
}

// DefinitionFor resolves the definition an instance runs through. Instances with a
// freezone code use that free zone's form.
func (f *Formation) DefinitionFor(ctx context.Context, instance *models.WorkflowInstance) (*models.WorkflowDefinition, error) {
	if instance.FreezoneCode == "" {
		return f.workflows.Load(ctx, instance.WorkflowType)
	}

	form, err := f.forms.Load(ctx, instance.FreezoneCode)
	if err != nil {
		return nil, err
	}

	if form.WorkflowType != instance.WorkflowType {
		return nil, newError("DefinitionFor", "WORKFLOW_MISMATCH",
			fmt.Sprintf("instance %s runs %s but freezone %s is configured for %s",
				instance.ID, instance.WorkflowType, form.Freezone.Code, form.WorkflowType),
			ErrWorkflowMismatch)
	}

	return &form.WorkflowDefinition, nil
}

// stepContext is an instance resolved together with its definition and one of its steps.
type stepContext struct {
	instance *models.WorkflowInstance
	def      *models.WorkflowDefinition
	step     *models.StepDefinition
}

// requireCurrent rejects work on any step but the instance's current one. Workflows are
// linear, so completing a later step would skip the ones before it.
func (sc *stepContext) requireCurrent(op string) error {
	if sc.step.Number == sc.instance.CurrentStep {
		return nil
	}

	return newError(op, "STEP_NOT_CURRENT",
		fmt.Sprintf("step %d is not the current step of instance %s (current: %d)",
			sc.step.Number, sc.instance.ID, sc.instance.CurrentStep),
		ErrStepNotCurrent)
}

func (f *Formation) resolve(ctx context.Context, instanceID string, number int) (*stepContext, error) {
	instance, err := f.persistence.Instances().GetByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}

	def, err := f.DefinitionFor(ctx, instance)
	if err != nil {
		return nil, err
	}

	step, err := stepOf(def, number)
	if err != nil {
		return nil, err
	}

	return &stepContext{instance: instance, def: def, step: step}, nil
}

func (f *Formation) deps() steps.Dependencies {
	return steps.Dependencies{
		Validator: f.validator,
		Instances: f.persistence.Instances(),
		Documents: f.persistence.Documents(),
		Publisher: f.publisher,
		Logger:    f.logger,
	}
}

// RenderStep returns the presentation payload of one instance step.
func (f *Formation) RenderStep(ctx context.Context, instanceID string, number int) (*steps.RenderPayload, error) {
	sc, err := f.resolve(ctx, instanceID, number)
	if err != nil {
		return nil, err
	}

	handler, err := steps.NewHandler(sc.def, sc.step, f.deps())
	if err != nil {
		data, ok := sc.instance.StepData(number)
		if !ok {
			data = map[string]any{}
		}

		return &steps.RenderPayload{
			Step:      sc.step,
			Data:      data,
			Completed: sc.instance.IsStepCompleted(number),
		}, nil
	}

	return handler.Render(ctx, sc.instance)
}

// SubmitStep processes a FORM or PAYMENT submission. A valid submission completes the step.
func (f *Formation) SubmitStep(ctx context.Context, instanceID string, number int, payload map[string]any) (*steps.SubmissionResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.submit_step",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.Int(otelhelper.StepNumberKey, number))
	defer span.End()

	sc, err := f.resolve(ctx, instanceID, number)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if sc.instance.Status != models.InstanceStatusInProgress {
		return nil, newError("SubmitStep", "INSTANCE_CLOSED",
			fmt.Sprintf("instance %s is %s", instanceID, sc.instance.Status), ErrInstanceClosed)
	}

	if err := sc.requireCurrent("SubmitStep"); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.StepTypeKey, string(sc.step.Type)))

	var result *steps.SubmissionResult

	switch sc.step.Type {
	case models.StepTypeForm:
		handler := steps.NewFormHandler(sc.def, sc.step, f.deps())

		result, err = handler.ProcessSubmission(ctx, sc.instance, payload)
	case models.StepTypePayment:
		result, err = f.submitPayment(ctx, sc, payload)
	case models.StepTypeDocUpload, models.StepTypeAuto, models.StepTypeReview,
		models.StepTypeIssuance, models.StepTypeNotify:
		return nil, newError("SubmitStep", "UNSUPPORTED_STEP",
			fmt.Sprintf("step %d is a %s step and does not accept submissions", number, sc.step.Type), ErrUnsupportedStep)
	}

	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	metrics.RecordValidation(string(sc.step.Type), result.Result.Valid)
	span.SetAttributes(attribute.Bool(otelhelper.ValidKey, result.Result.Valid))

	if !result.Result.Valid {
		return result, nil
	}

	completed, err := f.completeStep(ctx, sc, metrics.OriginSubmission)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	result.Instance = completed

	return result, nil
}

func (f *Formation) submitPayment(ctx context.Context, sc *stepContext, payload map[string]any) (*steps.SubmissionResult, error) {
	result := f.validator.Validate(sc.step, payload)
	if !result.Valid {
		return &steps.SubmissionResult{Result: result}, nil
	}

	updated, err := f.persistence.Instances().MergeStepData(ctx, sc.instance.ID, sc.step.Number, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to store step %d data: %w", sc.step.Number, err)
	}

	f.publish(ctx, sc.instance.ID, events.StepSubmitted{
		BaseEvent:  events.NewBaseEvent(events.StepSubmittedEvent, sc.instance.ID),
		StepNumber: sc.step.Number,
		StepType:   string(sc.step.Type),
		Data:       payload,
	})

	next := steps.NextActionAfter(sc.def, sc.step.Number)

	return &steps.SubmissionResult{
		Result:     result,
		Data:       payload,
		NextAction: &next,
		Instance:   updated,
	}, nil
}

// UploadDocument records an uploaded document for a DOC_UPLOAD step.
func (f *Formation) UploadDocument(ctx context.Context, instanceID string, number int, upload steps.Upload) (*steps.UploadResult, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.upload_document",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.Int(otelhelper.StepNumberKey, number),
		attribute.String(otelhelper.DocumentTypeKey, upload.DocumentType))
	defer span.End()

	sc, err := f.resolve(ctx, instanceID, number)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	if sc.step.Type != models.StepTypeDocUpload {
		return nil, newError("UploadDocument", "UNSUPPORTED_STEP",
			fmt.Sprintf("step %d is a %s step and does not accept documents", number, sc.step.Type), ErrUnsupportedStep)
	}

	if sc.instance.Status != models.InstanceStatusInProgress {
		return nil, newError("UploadDocument", "INSTANCE_CLOSED",
			fmt.Sprintf("instance %s is %s", instanceID, sc.instance.Status), ErrInstanceClosed)
	}

	if err := sc.requireCurrent("UploadDocument"); err != nil {
		return nil, err
	}

	handler := steps.NewDocumentUploadHandler(sc.def, sc.step, f.deps())

	result, err := handler.ProcessUpload(ctx, sc.instance, upload)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, err
	}

	metrics.RecordUpload(result.Result.Valid, result.TriggerOCR)
	span.SetAttributes(attribute.Bool(otelhelper.ValidKey, result.Result.Valid))

	return result, nil
}

// CompletionStatus reports what a FORM or DOC_UPLOAD step of an instance still needs.
func (f *Formation) CompletionStatus(ctx context.Context, instanceID string, number int) (*steps.CompletionStatus, error) {
	sc, err := f.resolve(ctx, instanceID, number)
	if err != nil {
		return nil, err
	}

	handler, err := steps.NewHandler(sc.def, sc.step, f.deps())
	if err != nil {
		return nil, newError("CompletionStatus", "UNSUPPORTED_STEP",
			fmt.Sprintf("step %d is a %s step", number, sc.step.Type), ErrUnsupportedStep)
	}

	return handler.CompletionStatus(ctx, sc.instance)
}

// AutoCompleteDocumentStep completes a DOC_UPLOAD step once every required document is
// present. It reports whether the step was completed by this call.
func (f *Formation) AutoCompleteDocumentStep(ctx context.Context, instanceID string, number int, origin string) (bool, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.auto_complete",
		attribute.String(otelhelper.InstanceIDKey, instanceID),
		attribute.Int(otelhelper.StepNumberKey, number))
	defer span.End()

	sc, err := f.resolve(ctx, instanceID, number)
	if err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	if sc.step.Type != models.StepTypeDocUpload {
		return false, newError("AutoCompleteDocumentStep", "UNSUPPORTED_STEP",
			fmt.Sprintf("step %d is a %s step", number, sc.step.Type), ErrUnsupportedStep)
	}

	if sc.instance.IsStepCompleted(number) || sc.instance.Status != models.InstanceStatusInProgress {
		return false, nil
	}

	if err := sc.requireCurrent("AutoCompleteDocumentStep"); err != nil {
		return false, err
	}

	handler := steps.NewDocumentUploadHandler(sc.def, sc.step, f.deps())

	status, err := handler.CheckCompletionStatus(ctx, sc.instance)
	if err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	if !status.Complete {
		f.logger.DebugContext(ctx, "document step incomplete",
			"instance_id", instanceID,
			"step_number", number,
			"missing", status.Missing)

		return false, nil
	}

	if _, err := f.completeStep(ctx, sc, origin); err != nil {
		otelhelper.SetError(span, err)

		return false, err
	}

	return true, nil
}

// SweepDocumentSteps tries to auto-complete every active instance positioned on a
// DOC_UPLOAD step. Failures are logged and do not stop the sweep.
func (f *Formation) SweepDocumentSteps(ctx context.Context) (int, error) {
	instances, err := f.persistence.Instances().ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list active instances: %w", err)
	}

	completed := 0

	for _, instance := range instances {
		def, err := f.DefinitionFor(ctx, instance)
		if err != nil {
			f.logger.WarnContext(ctx, "skipping instance without definition", "instance_id", instance.ID, "error", err)

			continue
		}

		step, ok := def.Step(instance.CurrentStep)
		if !ok || step.Type != models.StepTypeDocUpload {
			continue
		}

		done, err := f.AutoCompleteDocumentStep(ctx, instance.ID, step.Number, metrics.OriginSweep)
		if err != nil {
			f.logger.ErrorContext(ctx, "failed to auto-complete step", "instance_id", instance.ID, "step_number", step.Number, "error", err)

			continue
		}

		if done {
			completed++
		}
	}

	return completed, nil
}

// completeStep marks the step completed and closes the instance after its last step.
func (f *Formation) completeStep(ctx context.Context, sc *stepContext, origin string) (*models.WorkflowInstance, error) {
	instance, err := f.persistence.Instances().CompleteStep(ctx, sc.instance.ID, sc.step.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to complete step %d: %w", sc.step.Number, err)
	}

	next := 0
	if n, ok := sc.def.Step(sc.step.Number + 1); ok {
		next = n.Number
	}

	if instance.CurrentStep > sc.def.LastStepNumber() {
		instance.Status = models.InstanceStatusCompleted

		if err := f.persistence.Instances().Save(ctx, instance); err != nil {
			return nil, fmt.Errorf("failed to close instance: %w", err)
		}
	}

	metrics.RecordStepCompletion(origin)

	f.publish(ctx, instance.ID, events.StepCompleted{
		BaseEvent:  events.NewBaseEvent(events.StepCompletedEvent, instance.ID),
		StepNumber: sc.step.Number,
		NextStep:   next,
	})

	f.logger.InfoContext(ctx, "step completed",
		"instance_id", instance.ID,
		"step_number", sc.step.Number,
		"origin", origin,
		"status", instance.Status)

	return instance, nil
}

func (f *Formation) publish(ctx context.Context, key string, event eventbus.Event) {
	if f.publisher == nil {
		return
	}

	if err := f.publisher.Publish(ctx, key, event); err != nil {
		f.logger.ErrorContext(ctx, "failed to publish event", "event_type", event.GetType(), "error", err)
	}
}

func stepOf(def *models.WorkflowDefinition, number int) (*models.StepDefinition, error) {
	step, ok := def.Step(number)
	if !ok {
		return nil, newError("stepOf", "STEP_NOT_FOUND",
			fmt.Sprintf("workflow %s has no step %d", def.WorkflowType, number), ErrStepNotFound)
	}

	return step, nil
}
