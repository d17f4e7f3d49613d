package pipeline

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
)

// fixedNow pins the validator clock for the not_future rule.
var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func record(fields map[schema.Field]dataset.Value) *dataset.Normalized {
	return &dataset.Normalized{Fields: fields}
}

func completeRecord() map[schema.Field]dataset.Value {
	return map[schema.Field]dataset.Value{
		schema.FieldDate:     dataset.Date(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)),
		schema.FieldProduct:  dataset.String("Laptop"),
		schema.FieldQuantity: dataset.Integer(2),
		schema.FieldAmount:   dataset.Decimal(decimal.RequireFromString("21.00")),
	}
}

func TestValidateAccepts(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	out := v.Validate(record(completeRecord()))
	assert.Equal(t, out.Disposition, dataset.Accepted)
	assert.Equal(t, len(out.RuleIssues), 0)
	assert.Equal(t, out.DuplicateOf, -1)
}

func TestValidateRejectsMissingDate(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	fields := completeRecord()
	fields[schema.FieldDate] = dataset.Missing(schema.TypeDate)

	out := v.Validate(record(fields))
	assert.Equal(t, out.Disposition, dataset.Rejected)
	assert.Equal(t, len(out.RuleIssues), 1)
	assert.Equal(t, out.RuleIssues[0].Rule, "fecha_requerida")
	assert.Equal(t, out.RuleIssues[0].Reason, "missing_field:date")
}

func TestValidateEvaluatesEveryRule(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	// Three independent violations; none must shadow another.
	fields := completeRecord()
	fields[schema.FieldDate] = dataset.Missing(schema.TypeDate)
	fields[schema.FieldQuantity] = dataset.Integer(0)
	fields[schema.FieldAmount] = dataset.Decimal(decimal.RequireFromString("-5"))

	out := v.Validate(record(fields))
	assert.Equal(t, out.Disposition, dataset.Rejected)

	rules := make([]string, len(out.RuleIssues))
	for i, issue := range out.RuleIssues {
		rules[i] = issue.Rule
	}
	assert.Equal(t, rules, []string{"fecha_requerida", "cantidad_positiva", "importe_no_negativo"})
}

func TestValidateWarnDoesNotReject(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	fields := completeRecord()
	fields[schema.FieldProduct] = dataset.Missing(schema.TypeString)

	out := v.Validate(record(fields))
	assert.Equal(t, out.Disposition, dataset.Accepted)
	assert.Equal(t, len(out.RuleIssues), 1)
	assert.Equal(t, out.RuleIssues[0].Rule, "producto_requerido")
	assert.Equal(t, out.RuleIssues[0].Severity, schema.SeverityWarn)
}

func TestValidateRejectsEmptyRecord(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	fields := map[schema.Field]dataset.Value{
		schema.FieldDate:   dataset.Missing(schema.TypeDate),
		schema.FieldAmount: dataset.Missing(schema.TypeDecimal),
	}

	out := v.Validate(record(fields))
	assert.Equal(t, out.Disposition, dataset.Rejected)

	// The empty-record rejection comes first, then the regular rules still
	// run over the missing fields.
	assert.True(t, len(out.RuleIssues) >= 1)
	assert.Equal(t, out.RuleIssues[0].Rule, "registro_vacio")
	assert.Equal(t, out.RuleIssues[0].Reason, "empty_record")
}

func TestValidateNotFuture(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	t.Run("beyond tolerance", func(t *testing.T) {
		fields := completeRecord()
		fields[schema.FieldDate] = dataset.Date(fixedNow.AddDate(0, 0, 3))

		out := v.Validate(record(fields))
		assert.Equal(t, out.Disposition, dataset.Rejected)
		assert.Equal(t, out.RuleIssues[0].Rule, "fecha_no_futura")
	})

	t.Run("inside tolerance", func(t *testing.T) {
		fields := completeRecord()
		fields[schema.FieldDate] = dataset.Date(fixedNow.AddDate(0, 0, 1).Truncate(24 * time.Hour))

		out := v.Validate(record(fields))
		assert.Equal(t, out.Disposition, dataset.Accepted)
	})

	t.Run("missing date does not trip the future check", func(t *testing.T) {
		fields := completeRecord()
		fields[schema.FieldDate] = dataset.Missing(schema.TypeDate)

		out := v.Validate(record(fields))
		for _, issue := range out.RuleIssues {
			assert.NotEqual(t, issue.Rule, "fecha_no_futura")
		}
	})
}

func TestValidatePositiveBoundaries(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	tests := []struct {
		name     string
		quantity int64
		want     dataset.Disposition
	}{
		{"positive", 1, dataset.Accepted},
		{"zero", 0, dataset.Rejected},
		{"negative", -2, dataset.Rejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := completeRecord()
			fields[schema.FieldQuantity] = dataset.Integer(tt.quantity)

			out := v.Validate(record(fields))
			assert.Equal(t, out.Disposition, tt.want)
		})
	}
}

func TestValidateZeroAmountIsAccepted(t *testing.T) {
	v := NewValidator(schema.Default(), clock)

	fields := completeRecord()
	fields[schema.FieldAmount] = dataset.Decimal(decimal.Zero)

	out := v.Validate(record(fields))
	assert.Equal(t, out.Disposition, dataset.Accepted)
}
