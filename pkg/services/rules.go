package services

import (
	"context"

	"github.com/dukex/formation/pkg/metrics"
	"github.com/dukex/formation/pkg/models"
	"github.com/dukex/formation/pkg/otelhelper"
	"github.com/dukex/formation/pkg/rules"
	"go.opentelemetry.io/otel/attribute"
)

// Rule names used in traces and metrics.
const (
	RuleCompanyName  = "company_name"
	RuleActivities   = "activities"
	RuleVisaPackage  = "visa_package"
	RuleShareCapital = "share_capital"
)

// evaluator loads the form of a free zone inside a rule span; done ends the span.
func (f *Formation) evaluator(ctx context.Context, rule, freezoneCode string) (func(valid bool), *rules.Evaluator, error) {
	ctx, span := otelhelper.StartSpan(ctx, f.tracer, "formation.rule."+rule,
		attribute.String(otelhelper.RuleKey, rule),
		attribute.String(otelhelper.FreezoneKey, freezoneCode))

	form, err := f.forms.Load(ctx, freezoneCode)
	if err != nil {
		otelhelper.SetError(span, err)
		span.End()

		return nil, nil, err
	}

	var opts []rules.Option
	if f.matcher != nil {
		opts = append(opts, rules.WithMatcher(f.matcher))
	}

	done := func(valid bool) {
		metrics.RecordRuleCheck(rule, valid)
		span.SetAttributes(attribute.Bool(otelhelper.ValidKey, valid))
		span.End()
	}

	return done, rules.NewEvaluator(form, opts...), nil
}

func (f *Formation) ValidateCompanyName(ctx context.Context, freezoneCode, name string) (models.ValidationResult, error) {
	done, evaluator, err := f.evaluator(ctx, RuleCompanyName, freezoneCode)
	if err != nil {
		return models.ValidationResult{}, err
	}

	result := evaluator.ValidateCompanyName(name)
	done(result.Valid)

	return result, nil
}

func (f *Formation) ValidateActivities(ctx context.Context, freezoneCode string, selected []models.ActivityID, main *models.ActivityID) (models.ValidationResult, error) {
	done, evaluator, err := f.evaluator(ctx, RuleActivities, freezoneCode)
	if err != nil {
		return models.ValidationResult{}, err
	}

	result := evaluator.ValidateActivitiesSelection(selected, main)
	done(result.Valid)

	return result, nil
}

func (f *Formation) ValidateVisaPackage(ctx context.Context, freezoneCode string, visas, partnerVisas int) (models.ValidationResult, error) {
	done, evaluator, err := f.evaluator(ctx, RuleVisaPackage, freezoneCode)
	if err != nil {
		return models.ValidationResult{}, err
	}

	result := evaluator.ValidateVisaPackage(visas, partnerVisas)
	done(result.Valid)

	return result, nil
}

func (f *Formation) ValidateShareCapital(ctx context.Context, freezoneCode string, amount float64, partnerVisas int) (rules.ShareCapitalResult, error) {
	done, evaluator, err := f.evaluator(ctx, RuleShareCapital, freezoneCode)
	if err != nil {
		return rules.ShareCapitalResult{}, err
	}

	result := evaluator.ValidateShareCapital(amount, partnerVisas)
	done(result.Valid)

	return result, nil
}
