package pipeline

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
)

func TestFoldHeader(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"amount", "amount"},
		{"  Amount  ", "amount"},
		{"Fecha Registro", "fecha_registro"},
		{"UNIT   PRICE", "unit_price"},
		{"\uFEFFtransaction_id", "transaction_id"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, FoldHeader(tt.label), tt.want)
		})
	}
}

func TestResolve(t *testing.T) {
	n := NewNormalizer(schema.Default())

	f, ok := n.Resolve("IMPORTE")
	assert.True(t, ok)
	assert.Equal(t, f, schema.FieldAmount)

	f, ok = n.Resolve(" Precio Unitario ")
	assert.True(t, ok)
	assert.Equal(t, f, schema.FieldUnitPrice)

	_, ok = n.Resolve("internal_notes")
	assert.False(t, ok)
}

func TestNormalizeCoercesTypes(t *testing.T) {
	n := NewNormalizer(schema.Default())

	rec := n.Normalize(dataset.Raw{
		"transaction_id":  "TX-1",
		"fecha":           "2024-03-15",
		"cliente":         "ACME",
		"producto":        "Laptop",
		"categoria":       "Electronics",
		"region":          "Norte",
		"cantidad":        "2",
		"precio_unitario": "10.50",
		"descuento":       "0.1",
		"importe":         "18.90",
	}, 0)

	assert.Equal(t, rec.SourceIndex, 0)
	assert.Equal(t, len(rec.Issues), 0)

	assert.Equal(t, rec.Field(schema.FieldTransactionID).Str(), "TX-1")
	assert.Equal(t, rec.Field(schema.FieldDate).Time(), time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, rec.Field(schema.FieldQuantity).Int(), int64(2))
	assert.Equal(t, rec.Field(schema.FieldUnitPrice).Dec().String(), "10.5")
	assert.Equal(t, rec.Field(schema.FieldAmount).Dec().String(), "18.9")
}

func TestNormalizeDegradesInsteadOfFailing(t *testing.T) {
	n := NewNormalizer(schema.Default())

	t.Run("garbage number", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"cantidad": "muchos"}, 0)

		v := rec.Field(schema.FieldQuantity)
		assert.True(t, v.IsMissing())
		assert.True(t, hasIssue(rec, schema.FieldQuantity, dataset.ReasonUnparseableNumber))
	})

	t.Run("fractional quantity", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"cantidad": "2.5"}, 0)
		assert.True(t, rec.Field(schema.FieldQuantity).IsMissing())
		assert.True(t, hasIssue(rec, schema.FieldQuantity, dataset.ReasonUnparseableNumber))
	})

	t.Run("garbage date", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"fecha": "mañana"}, 0)
		assert.True(t, rec.Field(schema.FieldDate).IsMissing())
		assert.True(t, hasIssue(rec, schema.FieldDate, dataset.ReasonUnparseableDate))
	})

	t.Run("empty string cell", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"producto": "   "}, 0)
		assert.True(t, rec.Field(schema.FieldProduct).IsMissing())
		assert.True(t, hasIssue(rec, schema.FieldProduct, dataset.ReasonEmptyString))
	})

	t.Run("absent column", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"producto": "Laptop"}, 0)
		assert.True(t, rec.Field(schema.FieldDate).IsMissing())
		assert.True(t, hasIssue(rec, schema.FieldDate, dataset.ReasonMissingField))
	})
}

func TestNormalizeDerivesAmount(t *testing.T) {
	n := NewNormalizer(schema.Default())

	t.Run("from quantity and price", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{
			"cantidad":        "3",
			"precio_unitario": "3.50",
		}, 0)

		amount := rec.Field(schema.FieldAmount)
		assert.False(t, amount.IsMissing())
		assert.Equal(t, amount.Dec().String(), "10.5")
		assert.True(t, hasIssue(rec, schema.FieldAmount, dataset.ReasonDerivedAmount))
		assert.False(t, hasIssue(rec, schema.FieldAmount, dataset.ReasonMissingField))
	})

	t.Run("applies the discount", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{
			"cantidad":        "3",
			"precio_unitario": "3.50",
			"descuento":       "0.1",
		}, 0)

		assert.Equal(t, rec.Field(schema.FieldAmount).Dec().String(), "9.45")
	})

	t.Run("present amount is left alone", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{
			"cantidad":        "3",
			"precio_unitario": "3.50",
			"importe":         "99.99",
		}, 0)

		assert.Equal(t, rec.Field(schema.FieldAmount).Dec().String(), "99.99")
		assert.False(t, hasIssue(rec, schema.FieldAmount, dataset.ReasonDerivedAmount))
	})

	t.Run("no price means no recovery", func(t *testing.T) {
		rec := n.Normalize(dataset.Raw{"cantidad": "3"}, 0)
		assert.True(t, rec.Field(schema.FieldAmount).IsMissing())
	})
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		locale schema.Locale
		want   string
		ok     bool
	}{
		{"plain", "42", schema.LocaleDotDecimal, "42", true},
		{"dot decimal", "10.50", schema.LocaleDotDecimal, "10.5", true},
		{"dot locale with grouping", "1,234.50", schema.LocaleDotDecimal, "1234.5", true},
		{"comma decimal", "10,50", schema.LocaleCommaDecimal, "10.5", true},
		{"comma locale with grouping", "1.234,50", schema.LocaleCommaDecimal, "1234.5", true},
		{"negative", "-5.25", schema.LocaleDotDecimal, "-5.25", true},
		{"parenthesised negative", "(5.00)", schema.LocaleDotDecimal, "-5", true},
		{"internal spaces", "1 234.50", schema.LocaleDotDecimal, "1234.5", true},
		{"not a number", "N/A", schema.LocaleDotDecimal, "", false},
		{"empty", "", schema.LocaleDotDecimal, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := parseNumber(tt.input, tt.locale)
			assert.Equal(t, ok, tt.ok)
			if tt.ok {
				assert.Equal(t, d.String(), tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	layouts := schema.Default().DateFormats

	t.Run("iso", func(t *testing.T) {
		d, ok := parseDate("2024-03-15", layouts)
		assert.True(t, ok)
		assert.Equal(t, d, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	})

	t.Run("iso with time", func(t *testing.T) {
		d, ok := parseDate("2024-03-15 10:30:00", layouts)
		assert.True(t, ok)
		assert.Equal(t, d.Hour(), 10)
	})

	t.Run("slashed day first", func(t *testing.T) {
		d, ok := parseDate("15/03/2024", layouts)
		assert.True(t, ok)
		assert.Equal(t, d, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC))
	})

	t.Run("ambiguous date takes the first layout", func(t *testing.T) {
		// 03/04 parses under both slashed layouts; the configured order
		// decides, and day-first comes first.
		d, ok := parseDate("03/04/2024", layouts)
		assert.True(t, ok)
		assert.Equal(t, d, time.Date(2024, 4, 3, 0, 0, 0, 0, time.UTC))
	})

	t.Run("unparseable", func(t *testing.T) {
		_, ok := parseDate("ayer", layouts)
		assert.False(t, ok)
	})
}

func hasIssue(rec *dataset.Normalized, field schema.Field, reason dataset.IssueReason) bool {
	for _, issue := range rec.Issues {
		if issue.Field == field && issue.Reason == reason {
			return true
		}
	}
	return false
}
