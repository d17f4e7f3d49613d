package pipeline

import (
	"fmt"
	"time"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
)

// Validator applies the configured business rules to normalized records.
// Every rule is evaluated, never short-circuited, so a rejected record
// carries the complete list of reasons.
type Validator struct {
	cfg *schema.Config
	now func() time.Time
}

// NewValidator creates a validator over an already-validated configuration.
// now is injectable so tests can pin the clock.
func NewValidator(cfg *schema.Config, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{cfg: cfg, now: now}
}

// Validate decides the record's disposition. A record with no resolvable
// field at all is rejected outright; otherwise any failed reject-severity
// rule rejects it, while warn-only failures leave it accepted.
func (v *Validator) Validate(rec *dataset.Normalized) *dataset.Validated {
	out := &dataset.Validated{
		Normalized:  rec,
		Disposition: dataset.Accepted,
		DuplicateOf: -1,
	}

	if rec.Empty() {
		out.Disposition = dataset.Rejected
		out.RuleIssues = append(out.RuleIssues, dataset.RuleIssue{
			Rule:     "registro_vacio",
			Severity: schema.SeverityReject,
			Reason:   "empty_record",
		})
	}

	for _, rule := range v.cfg.Rules {
		reason, failed := v.evaluate(rule, rec)
		if !failed {
			continue
		}
		out.RuleIssues = append(out.RuleIssues, dataset.RuleIssue{
			Rule:     rule.Name,
			Severity: rule.Severity,
			Reason:   reason,
		})
		if rule.Severity == schema.SeverityReject {
			out.Disposition = dataset.Rejected
		}
	}

	return out
}

// evaluate runs one rule predicate. It returns the failure reason and
// whether the rule failed.
func (v *Validator) evaluate(rule schema.Rule, rec *dataset.Normalized) (string, bool) {
	val := rec.Field(rule.Field)

	switch rule.Kind {
	case schema.RuleRequired:
		if val.IsMissing() {
			return fmt.Sprintf("missing_field:%s", rule.Field), true
		}

	case schema.RulePositive:
		if !val.IsMissing() && val.Dec().Sign() <= 0 {
			return fmt.Sprintf("%s must be positive (got %s)", rule.Field, val.Display()), true
		}

	case schema.RuleNonNegative:
		if !val.IsMissing() && val.Dec().Sign() < 0 {
			return fmt.Sprintf("%s must not be negative (got %s)", rule.Field, val.Display()), true
		}

	case schema.RuleNotFuture:
		if !val.IsMissing() {
			limit := v.now().AddDate(0, 0, v.cfg.FutureToleranceDays)
			if val.Time().After(limit) {
				return fmt.Sprintf("%s is in the future (%s)", rule.Field, val.Display()), true
			}
		}
	}

	return "", false
}
