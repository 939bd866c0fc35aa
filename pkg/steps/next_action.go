package steps

import "github.com/dukex/formation/pkg/models"

const (
	ActionFillForm          = "fill_form"
	ActionUploadDocuments   = "upload_documents"
	ActionMakePayment       = "make_payment"
	ActionAwaitReview       = "await_review"
	ActionAwaitProcessing   = "await_processing"
	ActionAwaitIssuance     = "await_issuance"
	ActionAwaitNotification = "await_notification"
	ActionComplete          = "complete"
)

// NextAction tells the client what to do after a step.
type NextAction struct {
	Action     string `json:"action"`
	StepNumber int    `json:"step_number,omitempty"`
}

// NextActionAfter looks up the step following number. Workflows are linear.
func NextActionAfter(def *models.WorkflowDefinition, number int) NextAction {
	next, ok := def.Step(number + 1)
	if !ok {
		return NextAction{Action: ActionComplete}
	}

	return NextAction{Action: actionFor(next.Type), StepNumber: next.Number}
}

func actionFor(stepType models.StepType) string {
	switch stepType {
	case models.StepTypeForm:
		return ActionFillForm
	case models.StepTypeDocUpload:
		return ActionUploadDocuments
	case models.StepTypePayment:
		return ActionMakePayment
	case models.StepTypeReview:
		return ActionAwaitReview
	case models.StepTypeAuto:
		return ActionAwaitProcessing
	case models.StepTypeIssuance:
		return ActionAwaitIssuance
	case models.StepTypeNotify:
		return ActionAwaitNotification
	default:
		return ActionComplete
	}
}
