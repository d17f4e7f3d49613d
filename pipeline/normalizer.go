package pipeline

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
)

// Normalizer maps raw column labels to canonical fields and coerces cell
// text into typed values. Coercion never fails upward: every problem
// degrades the field to missing and appends an issue, so a batch always
// completes.
type Normalizer struct {
	cfg     *schema.Config
	aliases map[string]schema.Field
	fields  []schema.Field // canonical fields reachable through the alias table, stable order
}

// NewNormalizer builds the folded alias index. The configuration must
// already be validated.
func NewNormalizer(cfg *schema.Config) *Normalizer {
	aliases := make(map[string]schema.Field, len(cfg.Aliases))
	targets := make(map[schema.Field]bool)
	for raw, field := range cfg.Aliases {
		aliases[FoldHeader(raw)] = field
		targets[field] = true
	}

	var fields []schema.Field
	for _, f := range schema.Fields() {
		if targets[f] {
			fields = append(fields, f)
		}
	}

	return &Normalizer{cfg: cfg, aliases: aliases, fields: fields}
}

// FoldHeader canonicalizes a raw column label for alias matching: trims
// whitespace and a UTF-8 BOM, lowercases, and folds internal spaces to
// underscores.
func FoldHeader(label string) string {
	s := strings.TrimPrefix(label, "\uFEFF")
	s = strings.TrimSpace(s)
	s = strings.ToLower(s)
	s = strings.Join(strings.Fields(s), "_")
	return s
}

// Resolve returns the canonical field a raw label maps to.
func (n *Normalizer) Resolve(label string) (schema.Field, bool) {
	f, ok := n.aliases[FoldHeader(label)]
	return f, ok
}

// Fields returns the canonical fields the alias table can produce.
func (n *Normalizer) Fields() []schema.Field {
	return n.fields
}

// Normalize turns one raw row into a normalized record. sourceIndex is the
// zero-based position of the row in the input.
func (n *Normalizer) Normalize(raw dataset.Raw, sourceIndex int) *dataset.Normalized {
	rec := &dataset.Normalized{
		SourceIndex: sourceIndex,
		Fields:      make(map[schema.Field]dataset.Value, len(n.fields)),
	}

	// Map iteration order is random; walk labels sorted so that two raw
	// columns aliasing the same field resolve deterministically (first label
	// in sort order wins).
	labels := make([]string, 0, len(raw))
	for label := range raw {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	cells := make(map[schema.Field]string, len(n.fields))
	for _, label := range labels {
		field, ok := n.Resolve(label)
		if !ok {
			continue // unmatched columns are batch metadata, not errors
		}
		if _, dup := cells[field]; dup {
			continue
		}
		cells[field] = raw[label]
	}

	for _, field := range n.fields {
		cell, present := cells[field]
		trimmed := strings.TrimSpace(cell)

		if !present || trimmed == "" {
			if present && trimmed == "" && field.Type() == schema.TypeString {
				rec.Fields[field] = dataset.Missing(field.Type())
				rec.Issues = append(rec.Issues, dataset.Issue{Field: field, Raw: cell, Reason: dataset.ReasonEmptyString})
				continue
			}
			rec.Fields[field] = dataset.Missing(field.Type())
			rec.Issues = append(rec.Issues, dataset.Issue{Field: field, Reason: dataset.ReasonMissingField})
			continue
		}

		rec.Fields[field] = n.coerce(rec, field, trimmed)
	}

	n.deriveAmount(rec)

	return rec
}

// coerce parses a non-empty cell into the field's declared type, degrading
// to missing plus an issue on failure.
func (n *Normalizer) coerce(rec *dataset.Normalized, field schema.Field, cell string) dataset.Value {
	switch field.Type() {
	case schema.TypeString:
		return dataset.String(cell)

	case schema.TypeInteger:
		d, ok := parseNumber(cell, n.cfg.Locale)
		if !ok || !d.IsInteger() {
			rec.Issues = append(rec.Issues, dataset.Issue{Field: field, Raw: cell, Reason: dataset.ReasonUnparseableNumber})
			return dataset.Missing(schema.TypeInteger)
		}
		return dataset.Integer(d.IntPart())

	case schema.TypeDecimal:
		d, ok := parseNumber(cell, n.cfg.Locale)
		if !ok {
			rec.Issues = append(rec.Issues, dataset.Issue{Field: field, Raw: cell, Reason: dataset.ReasonUnparseableNumber})
			return dataset.Missing(schema.TypeDecimal)
		}
		return dataset.Decimal(d)

	case schema.TypeDate:
		t, ok := parseDate(cell, n.cfg.DateFormats)
		if !ok {
			rec.Issues = append(rec.Issues, dataset.Issue{Field: field, Raw: cell, Reason: dataset.ReasonUnparseableDate})
			return dataset.Missing(schema.TypeDate)
		}
		return dataset.Date(t)

	default:
		return dataset.String(cell)
	}
}

// deriveAmount recomputes a missing amount as quantity x unit price x
// (1 - discount), the same recovery the original reporting tool applied to
// empty revenue cells.
func (n *Normalizer) deriveAmount(rec *dataset.Normalized) {
	amount, tracked := rec.Fields[schema.FieldAmount]
	if !tracked || !amount.IsMissing() {
		return
	}

	qty := rec.Field(schema.FieldQuantity)
	price := rec.Field(schema.FieldUnitPrice)
	if qty.IsMissing() || price.IsMissing() {
		return
	}

	factor := decimal.NewFromInt(1)
	if disc := rec.Field(schema.FieldDiscount); !disc.IsMissing() {
		factor = factor.Sub(disc.Dec())
	}

	derived := price.Dec().Mul(qty.Dec()).Mul(factor).Round(2)
	rec.Fields[schema.FieldAmount] = dataset.Decimal(derived)

	// Replace the missing_field issue recorded for the amount.
	for i := len(rec.Issues) - 1; i >= 0; i-- {
		if rec.Issues[i].Field == schema.FieldAmount {
			rec.Issues = append(rec.Issues[:i], rec.Issues[i+1:]...)
		}
	}
	rec.Issues = append(rec.Issues, dataset.Issue{Field: schema.FieldAmount, Reason: dataset.ReasonDerivedAmount})
}

// parseNumber parses a numeric literal under the locale's separators.
// Thousands separators are stripped, the decimal separator is mapped to a
// point, and a parenthesised value reads as negative.
func parseNumber(s string, locale schema.Locale) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case locale.ThousandsSeparator():
			// grouping only, drop it
		case locale.DecimalSeparator():
			b.WriteRune('.')
		case ' ':
			// tolerate stray spaces inside the number
		default:
			b.WriteRune(r)
		}
	}

	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// parseDate tries each configured layout in order until one parses.
func parseDate(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
