// Package web provides the HTTP API of the formation engine.
package web

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/formation/pkg/services"
	"github.com/dukex/formation/pkg/steps"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

// ConfigVersionHeader carries the modification-time version of a form configuration.
const ConfigVersionHeader = "X-Config-Version"

type APIHandlers struct {
	formation *services.Formation
	validator *validator.Validate
}

func NewAPIHandlers(formation *services.Formation, validator *validator.Validate) *APIHandlers {
	return &APIHandlers{
		formation: formation,
		validator: validator,
	}
}

// Routes registers the API endpoints on router.
func (h *APIHandlers) Routes(router fiber.Router) {
	router.Get("/health", h.HealthCheck)

	w := router.Group("/workflows")
	w.Get("/:type", h.GetWorkflow)
	w.Post("/:type/steps/:number/validate", h.ValidateWorkflowStep)

	f := router.Group("/forms")
	f.Get("/:freezone", h.GetForm)
	f.Post("/:freezone/rules/company-name", h.ValidateCompanyName)
	f.Post("/:freezone/rules/activities", h.ValidateActivities)
	f.Post("/:freezone/rules/visa-package", h.ValidateVisaPackage)
	f.Post("/:freezone/rules/share-capital", h.ValidateShareCapital)

	i := router.Group("/instances")
	i.Post("/", h.CreateInstance)
	i.Get("/:id", h.GetInstance)
	i.Get("/:id/steps/:number", h.RenderStep)
	i.Post("/:id/steps/:number/submit", h.SubmitStep)
	i.Post("/:id/steps/:number/documents", h.UploadDocument)
	i.Get("/:id/steps/:number/completion", h.CompletionStatus)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, repOk := h.formation.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Formation API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if repOk {
		status = "healthy"
		message = "Formation API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	def, err := h.formation.GetWorkflow(c.Context(), c.Params("type"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(def)
}

// ValidateWorkflowStep validates a payload without storing it. A failed validation is a
// normal 200 response with valid=false.
func (h *APIHandlers) ValidateWorkflowStep(c fiber.Ctx) error {
	number, err := stepNumber(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	data := map[string]any{}
	if err := c.Bind().JSON(&data); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.formation.ValidateWorkflowStep(c.Context(), c.Params("type"), number, data)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetForm(c fiber.Ctx) error {
	form, err := h.formation.GetForm(c.Context(), c.Params("freezone"))
	if err != nil {
		return handleServiceError(c, err)
	}

	c.Set(ConfigVersionHeader, form.Version())

	return c.JSON(form.Projection())
}

func (h *APIHandlers) ValidateCompanyName(c fiber.Ctx) error {
	var req CompanyNameRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.formation.ValidateCompanyName(c.Context(), c.Params("freezone"), req.Name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ValidateActivities(c fiber.Ctx) error {
	var req ActivitiesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.formation.ValidateActivities(c.Context(), c.Params("freezone"), req.Selected, req.Main)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ValidateVisaPackage(c fiber.Ctx) error {
	var req VisaPackageRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.formation.ValidateVisaPackage(c.Context(), c.Params("freezone"), *req.VisaCount, req.PartnerVisaCount)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ValidateShareCapital(c fiber.Ctx) error {
	var req ShareCapitalRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.formation.ValidateShareCapital(c.Context(), c.Params("freezone"), *req.Amount, req.PartnerVisaCount)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) CreateInstance(c fiber.Ctx) error {
	var req CreateInstanceRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	instance, err := h.formation.CreateInstance(c.Context(), services.CreateInstanceRequest{
		WorkflowType: req.WorkflowType,
		FreezoneCode: req.FreezoneCode,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(instance)
}

func (h *APIHandlers) GetInstance(c fiber.Ctx) error {
	instance, err := h.formation.GetInstance(c.Context(), c.Params("id"))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(instance)
}

func (h *APIHandlers) RenderStep(c fiber.Ctx) error {
	number, err := stepNumber(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	payload, err := h.formation.RenderStep(c.Context(), c.Params("id"), number)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(payload)
}

// SubmitStep stores a FORM or PAYMENT submission. Rejected submissions answer 422 with
// the validation result.
func (h *APIHandlers) SubmitStep(c fiber.Ctx) error {
	number, err := stepNumber(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	payload := map[string]any{}
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	result, err := h.formation.SubmitStep(c.Context(), c.Params("id"), number, payload)
	if err != nil {
		return handleServiceError(c, err)
	}

	if !result.Result.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	return c.JSON(fiber.Map{
		"result":      result.Result,
		"data":        result.Data,
		"next_action": result.NextAction,
		"instance":    result.Instance,
	})
}

func (h *APIHandlers) UploadDocument(c fiber.Ctx) error {
	number, err := stepNumber(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	var req UploadDocumentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	result, err := h.formation.UploadDocument(c.Context(), c.Params("id"), number, steps.Upload{
		DocumentType: req.DocumentType,
		FileName:     req.FileName,
		MimeType:     req.MimeType,
		Format:       req.Format,
		SizeMB:       req.SizeMB,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if !result.Result.Valid {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(result)
	}

	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *APIHandlers) CompletionStatus(c fiber.Ctx) error {
	number, err := stepNumber(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	status, err := h.formation.CompletionStatus(c.Context(), c.Params("id"), number)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(status)
}

func stepNumber(c fiber.Ctx) (int, error) {
	raw := c.Params("number")

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		return 0, fmt.Errorf("invalid step number %q", raw)
	}

	return number, nil
}
