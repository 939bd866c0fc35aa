package web

import "github.com/dukex/formation/pkg/models"

// CreateInstanceRequest represents the request body for starting a workflow instance.
type CreateInstanceRequest struct {
	WorkflowType string `json:"workflow_type" validate:"required_without=FreezoneCode"`
	FreezoneCode string `json:"freezone_code"`
}

type CompanyNameRequest struct {
	Name string `json:"name"`
}

// ActivitiesRequest accepts activity ids as JSON numbers or strings.
type ActivitiesRequest struct {
	Selected []models.ActivityID `json:"selected"`
	Main     *models.ActivityID  `json:"main"`
}

type VisaPackageRequest struct {
	VisaCount        *int `json:"visa_count"         validate:"required"`
	PartnerVisaCount int  `json:"partner_visa_count"`
}

type ShareCapitalRequest struct {
	Amount           *float64 `json:"amount"             validate:"required"`
	PartnerVisaCount int      `json:"partner_visa_count" validate:"min=0"`
}

// UploadDocumentRequest carries the metadata of a file already placed in document storage.
type UploadDocumentRequest struct {
	DocumentType string  `json:"document_type" validate:"required"`
	FileName     string  `json:"file_name"     validate:"required"`
	MimeType     string  `json:"mime_type"`
	Format       string  `json:"format"`
	SizeMB       float64 `json:"size_mb"       validate:"min=0"`
}
