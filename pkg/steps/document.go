package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukex/formation/pkg/events"
	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/validation"
	"github.com/google/uuid"
)

type DocumentUploadHandler struct {
	def  *models.WorkflowDefinition
	step *models.StepDefinition
	deps Dependencies
}

func NewDocumentUploadHandler(def *models.WorkflowDefinition, step *models.StepDefinition, deps Dependencies) *DocumentUploadHandler {
	return &DocumentUploadHandler{def: def, step: step, deps: deps}
}

// Upload is the metadata of a file already placed in document storage.
type Upload struct {
	DocumentType string  `json:"document_type"`
	FileName     string  `json:"file_name"`
	MimeType     string  `json:"mime_type"`
	Format       string  `json:"format"`
	SizeMB       float64 `json:"size_mb"`
}

// UploadResult is the outcome of an upload. Document is set only when the upload was stored.
type UploadResult struct {
	Result     models.ValidationResult `json:"result"`
	Document   *models.DocumentRecord  `json:"document,omitempty"`
	TriggerOCR bool                    `json:"trigger_ocr"`
}

func (h *DocumentUploadHandler) Step() *models.StepDefinition {
	return h.step
}

func (h *DocumentUploadHandler) Render(ctx context.Context, instance *models.WorkflowInstance) (*RenderPayload, error) {
	documents, err := h.deps.Documents.ListByStep(ctx, instance.ID, h.step.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	data, ok := instance.StepData(h.step.Number)
	if !ok {
		data = map[string]any{}
	}

	return &RenderPayload{
		Step:       h.step,
		Data:       data,
		Completed:  instance.IsStepCompleted(h.step.Number),
		Documents:  documents,
		Completion: completion(h.step, documents),
	}, nil
}

// ProcessUpload checks upload against its requirement and stores the document record.
func (h *DocumentUploadHandler) ProcessUpload(ctx context.Context, instance *models.WorkflowInstance, upload Upload) (*UploadResult, error) {
	var violations models.Violations

	req, ok := h.step.Requirement(upload.DocumentType)
	if !ok {
		violations.Add("Unknown document type %q", upload.DocumentType)

		return &UploadResult{Result: violations.Result(nil)}, nil
	}

	format := uploadFormat(upload)
	validation.CheckDocument(&violations, req, upload.SizeMB, format)

	if !req.Multiple {
		existing, err := h.deps.Documents.ListByStep(ctx, instance.ID, h.step.Number)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		for _, doc := range existing {
			if doc.DocumentType == req.Type {
				violations.Add("%s has already been uploaded", req.DisplayName())

				break
			}
		}
	}

	if len(violations) > 0 {
		return &UploadResult{Result: violations.Result(nil)}, nil
	}

	record := &models.DocumentRecord{
		ID:           uuid.NewString(),
		InstanceID:   instance.ID,
		StepNumber:   h.step.Number,
		DocumentType: req.Type,
		FileName:     upload.FileName,
		MimeType:     upload.MimeType,
		Format:       format,
		SizeMB:       upload.SizeMB,
		UploadedAt:   time.Now().UTC(),
	}

	if err := h.deps.Documents.Save(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	triggerOCR := IsOCRCandidate(upload.MimeType)

	h.deps.Logger.InfoContext(ctx, "document uploaded",
		"instance_id", instance.ID,
		"step_number", h.step.Number,
		"document_type", req.Type,
		"trigger_ocr", triggerOCR)

	publish(ctx, h.deps, instance.ID, events.DocumentUploaded{
		BaseEvent:    events.NewBaseEvent(events.DocumentUploadedEvent, instance.ID),
		StepNumber:   h.step.Number,
		DocumentID:   record.ID,
		DocumentType: record.DocumentType,
		MimeType:     record.MimeType,
		SizeMB:       record.SizeMB,
		OCRRequested: triggerOCR,
	})

	return &UploadResult{
		Result:     violations.Result(map[string]any{"document_id": record.ID}),
		Document:   record,
		TriggerOCR: triggerOCR,
	}, nil
}

// CheckCompletionStatus compares the required document types with the uploaded ones.
func (h *DocumentUploadHandler) CheckCompletionStatus(ctx context.Context, instance *models.WorkflowInstance) (*CompletionStatus, error) {
	documents, err := h.deps.Documents.ListByStep(ctx, instance.ID, h.step.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return completion(h.step, documents), nil
}

func (h *DocumentUploadHandler) CompletionStatus(ctx context.Context, instance *models.WorkflowInstance) (*CompletionStatus, error) {
	return h.CheckCompletionStatus(ctx, instance)
}

func completion(step *models.StepDefinition, documents []*models.DocumentRecord) *CompletionStatus {
	uploaded := make(map[string]bool, len(documents))
	for _, doc := range documents {
		uploaded[doc.DocumentType] = true
	}

	required := step.RequiredDocumentTypes()
	missing := make([]string, 0, len(required))

	for _, t := range required {
		if !uploaded[t] {
			missing = append(missing, t)
		}
	}

	return &CompletionStatus{
		Complete:      len(missing) == 0,
		Missing:       missing,
		UploadedCount: len(uploaded),
		RequiredCount: len(required),
	}
}

// IsOCRCandidate reports whether a mime type is an image or a PDF.
func IsOCRCandidate(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}

	return strings.HasPrefix(mimeType, "image/") || mimeType == "application/pdf"
}

func uploadFormat(upload Upload) string {
	format := upload.Format
	if format == "" {
		format = filepath.Ext(upload.FileName)
	}

	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}
