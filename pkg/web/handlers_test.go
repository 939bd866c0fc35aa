package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/dukex/formation/pkg/definition"
	"github.com/dukex/formation/pkg/persistence/file"
	"github.com/dukex/formation/pkg/services"
	"github.com/dukex/formation/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workflowYAML = `
workflow_type: company_formation
name: Company Formation
steps:
  - step_number: 1
    step_type: FORM
    title: Company details
    fields:
      - name: company_name
        type: text
        required: true
        validation:
          min_length: 3
  - step_number: 2
    step_type: DOC_UPLOAD
    title: Documents
    document_requirements:
      - type: passport
        name: Passport
        required: true
        max_size_mb: 5
        accepted_formats: [pdf]
  - step_number: 3
    step_type: REVIEW
    title: Review
`

const formYAML = `
freezone:
  code: IFZA
  name: International Free Zone Authority
business_rules:
  activities:
    free_count: 3
    max_count: 5
validation_rules:
  banned_words:
    words: [Bank]
steps:
  - id: company_details
    title: Company details
    component: CompanyDetailsForm
    fields:
      - name: company_name
        type: text
        required: true
`

const brokenFormYAML = `
steps:
  - id: details
`

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	modTime := time.Unix(1735689600, 0)
	fsys := fstest.MapFS{
		"workflows/company_formation.yml": {Data: []byte(workflowYAML), ModTime: modTime},
		"forms/ifza.yml":                  {Data: []byte(formYAML), ModTime: modTime},
		"forms/broken.yml":                {Data: []byte(brokenFormYAML), ModTime: modTime},
	}

	cache := definition.NewCache()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	formation := services.NewFormation(services.Config{
		Workflows: definition.NewWorkflowLoader(
			definition.NewFSSource(fsys, definition.WorkflowsDir, definition.KindWorkflow), cache, logger),
		Forms: definition.NewFormConfigLoader(
			definition.NewFSSource(fsys, definition.FormsDir, definition.KindForm), cache, logger),
		Persistence: file.NewPersistence(t.TempDir()),
		Logger:      logger,
	})

	handlers := web.NewAPIHandlers(formation, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Routes(app)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() {
		err := resp.Body.Close()
		if err != nil {
			t.Logf("Failed to close response body: %v", err)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), string(raw))
	}

	return resp, decoded
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])
}

func TestAPIHandlers_Workflows(t *testing.T) {
	app := setupTestApp(t)

	tests := []struct {
		name        string
		method      string
		path        string
		body        any
		status      int
		problemType string
		check       func(t *testing.T, body map[string]any)
	}{
		{
			name:   "get workflow",
			method: http.MethodGet,
			path:   "/workflows/company_formation",
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				t.Helper()
				assert.Equal(t, "company_formation", body["workflow_type"])
				assert.Len(t, body["steps"], 3)
			},
		},
		{
			name:        "unknown workflow",
			method:      http.MethodGet,
			path:        "/workflows/trust_setup",
			status:      http.StatusNotFound,
			problemType: "configuration_not_found",
		},
		{
			name:   "validate step with failures",
			method: http.MethodPost,
			path:   "/workflows/company_formation/steps/1/validate",
			body:   map[string]any{"company_name": "AB"},
			status: http.StatusOK,
			check: func(t *testing.T, body map[string]any) {
				t.Helper()
				assert.Equal(t, false, body["valid"])
				assert.Equal(t, []any{"Company name must be at least 3 characters"}, body["errors"])
			},
		},
		{
			name:        "validate unknown step",
			method:      http.MethodPost,
			path:        "/workflows/company_formation/steps/9/validate",
			body:        map[string]any{},
			status:      http.StatusNotFound,
			problemType: "step_not_found",
		},
		{
			name:        "invalid step number",
			method:      http.MethodPost,
			path:        "/workflows/company_formation/steps/zero/validate",
			body:        map[string]any{},
			status:      http.StatusBadRequest,
			problemType: "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := doRequest(t, app, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)

			if tt.problemType != "" {
				assert.Equal(t, tt.problemType, body["type"])
			}

			if tt.check != nil {
				tt.check(t, body)
			}
		})
	}
}

func TestAPIHandlers_Forms(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/forms/IFZA", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1735689600", resp.Header.Get(web.ConfigVersionHeader))
	assert.Equal(t, "1735689600", body["version"])
	assert.Equal(t, "IFZA", body["freezone"].(map[string]any)["code"])

	resp, body = doRequest(t, app, http.MethodGet, "/forms/broken", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "configuration_error", body["type"])

	resp, body = doRequest(t, app, http.MethodGet, "/forms/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "configuration_not_found", body["type"])
}

func TestAPIHandlers_Rules(t *testing.T) {
	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/forms/ifza/rules/company-name", web.CompanyNameRequest{Name: "Bank of Sand"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])

	resp, body = doRequest(t, app, http.MethodPost, "/forms/ifza/rules/activities",
		map[string]any{"selected": []any{1, "2"}, "main": 3})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, body["valid"])
	assert.Len(t, body["errors"], 1)

	resp, body = doRequest(t, app, http.MethodPost, "/forms/ifza/rules/visa-package",
		map[string]any{"visa_count": 2, "partner_visa_count": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])

	resp, body = doRequest(t, app, http.MethodPost, "/forms/ifza/rules/share-capital",
		map[string]any{"amount": 200000, "partner_visa_count": 0})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, true, body["requires_bank_letter"])

	resp, body = doRequest(t, app, http.MethodPost, "/forms/ifza/rules/share-capital", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", body["type"])
}

func TestAPIHandlers_InstanceFlow(t *testing.T) {
	app := setupTestApp(t)

	resp, _ := doRequest(t, app, http.MethodPost, "/instances", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := doRequest(t, app, http.MethodPost, "/instances", web.CreateInstanceRequest{WorkflowType: "company_formation"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	id, _ := body["id"].(string)
	require.NotEmpty(t, id)

	resp, _ = doRequest(t, app, http.MethodGet, "/instances/"+id, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/3/submit", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["type"])
	assert.Contains(t, body["detail"], "step 3 is not the current step")

	resp, _ = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/2/documents",
		web.UploadDocumentRequest{DocumentType: "passport", FileName: "passport.pdf", MimeType: "application/pdf"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/1/submit", map[string]any{})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, []any{"Company name is required"}, body["result"].(map[string]any)["errors"])

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/1/submit", map[string]any{"company_name": "Acme"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "upload_documents", body["next_action"].(map[string]any)["action"])

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/2/submit", map[string]any{})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", body["type"])

	upload := web.UploadDocumentRequest{DocumentType: "passport", FileName: "passport.pdf", MimeType: "application/pdf", SizeMB: 1.2}

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/2/documents", upload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, true, body["trigger_ocr"])

	resp, body = doRequest(t, app, http.MethodPost, "/instances/"+id+"/steps/2/documents", upload)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, []any{"Passport has already been uploaded"}, body["result"].(map[string]any)["errors"])

	resp, body = doRequest(t, app, http.MethodGet, "/instances/"+id+"/steps/2/completion", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["complete"])
	assert.InDelta(t, 1, body["uploaded_count"], 0)

	resp, body = doRequest(t, app, http.MethodGet, "/instances/"+id+"/steps/3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Review", body["step"].(map[string]any)["title"])

	resp, body = doRequest(t, app, http.MethodGet, "/instances/missing/steps/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "instance_not_found", body["type"])
}
