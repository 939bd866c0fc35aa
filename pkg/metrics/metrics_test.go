package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordConfigLoad(t *testing.T) {
	before := testutil.ToFloat64(configLoads.WithLabelValues("form", LoadCached))

	RecordConfigLoad("form", LoadCached)
	RecordConfigLoad("form", LoadCached)

	assert.InDelta(t, before+2, testutil.ToFloat64(configLoads.WithLabelValues("form", LoadCached)), 0)
}

func TestRecordValidation(t *testing.T) {
	valid := testutil.ToFloat64(stepValidations.WithLabelValues("FORM", "valid"))
	invalid := testutil.ToFloat64(stepValidations.WithLabelValues("FORM", "invalid"))

	RecordValidation("FORM", true)
	RecordValidation("FORM", false)
	RecordValidation("FORM", false)

	assert.InDelta(t, valid+1, testutil.ToFloat64(stepValidations.WithLabelValues("FORM", "valid")), 0)
	assert.InDelta(t, invalid+2, testutil.ToFloat64(stepValidations.WithLabelValues("FORM", "invalid")), 0)
}

func TestRecordUpload(t *testing.T) {
	before := testutil.ToFloat64(documentUploads.WithLabelValues("rejected", "true"))

	RecordUpload(false, true)

	assert.InDelta(t, before+1, testutil.ToFloat64(documentUploads.WithLabelValues("rejected", "true")), 0)
}

func TestRecordRuleCheckAndCompletion(t *testing.T) {
	rule := testutil.ToFloat64(ruleChecks.WithLabelValues("company_name", "invalid"))
	sweep := testutil.ToFloat64(stepCompletions.WithLabelValues("sweep"))

	RecordRuleCheck("company_name", false)
	RecordStepCompletion("sweep")

	assert.InDelta(t, rule+1, testutil.ToFloat64(ruleChecks.WithLabelValues("company_name", "invalid")), 0)
	assert.InDelta(t, sweep+1, testutil.ToFloat64(stepCompletions.WithLabelValues("sweep")), 0)
}
