// Package metrics exposes Prometheus counters for definition loads, step validations,
// business rule checks, document uploads and step completions.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config load outcomes.
const (
	LoadCached   = "cached"
	LoadLoaded   = "loaded"
	LoadInvalid  = "invalid"
	LoadNotFound = "not_found"
	LoadError    = "error"
)

// Step completion origins.
const (
	OriginSubmission = "submission"
	OriginEvent      = "event"
	OriginSweep      = "sweep"
)

var (
	configLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_config_loads_total",
			Help: "Total definition loads by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	stepValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_step_validations_total",
			Help: "Total step submissions validated by step type and outcome",
		},
		[]string{"step_type", "outcome"},
	)

	ruleChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_rule_checks_total",
			Help: "Total business rule checks by rule and outcome",
		},
		[]string{"rule", "outcome"},
	)

	documentUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_document_uploads_total",
			Help: "Total document uploads by outcome and whether OCR was requested",
		},
		[]string{"outcome", "ocr"},
	)

	stepCompletions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formation_step_completions_total",
			Help: "Total steps marked completed by origin",
		},
		[]string{"origin"},
	)
)

func RecordConfigLoad(kind, outcome string) {
	configLoads.WithLabelValues(kind, outcome).Inc()
}

func RecordValidation(stepType string, valid bool) {
	stepValidations.WithLabelValues(stepType, outcome(valid)).Inc()
}

func RecordRuleCheck(rule string, valid bool) {
	ruleChecks.WithLabelValues(rule, outcome(valid)).Inc()
}

func RecordUpload(accepted, ocr bool) {
	result := "accepted"
	if !accepted {
		result = "rejected"
	}

	ocrLabel := "false"
	if ocr {
		ocrLabel = "true"
	}

	documentUploads.WithLabelValues(result, ocrLabel).Inc()
}

// RecordStepCompletion counts a completed step by its Origin.
func RecordStepCompletion(origin string) {
	stepCompletions.WithLabelValues(origin).Inc()
}

func outcome(valid bool) string {
	if valid {
		return "valid"
	}

	return "invalid"
}
