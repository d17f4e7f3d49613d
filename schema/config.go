package schema

import (
	"fmt"
	"strings"
)

// Locale selects how numeric literals are interpreted.
type Locale string

const (
	// LocaleDotDecimal reads "1,234.50" as 1234.50.
	LocaleDotDecimal Locale = "dot-decimal"
	// LocaleCommaDecimal reads "1.234,50" as 1234.50.
	LocaleCommaDecimal Locale = "comma-decimal"
)

// DecimalSeparator returns the rune that separates the fractional part.
func (l Locale) DecimalSeparator() rune {
	if l == LocaleCommaDecimal {
		return ','
	}
	return '.'
}

// ThousandsSeparator returns the rune used to group digits.
func (l Locale) ThousandsSeparator() rune {
	if l == LocaleCommaDecimal {
		return '.'
	}
	return ','
}

// DedupMode fixes which record in a duplicate group survives.
type DedupMode string

const (
	FirstWins DedupMode = "first_wins"
	LastWins  DedupMode = "last_wins"
)

// Severity determines whether a failed rule rejects a record or only flags it.
type Severity string

const (
	SeverityWarn   Severity = "warn"
	SeverityReject Severity = "reject"
)

// RuleKind enumerates the supported validation predicates.
type RuleKind string

const (
	// RuleRequired fails when the field is missing.
	RuleRequired RuleKind = "required"
	// RulePositive fails when the field is present and not strictly positive.
	RulePositive RuleKind = "positive"
	// RuleNonNegative fails when the field is present and negative.
	RuleNonNegative RuleKind = "non_negative"
	// RuleNotFuture fails when a date lies beyond now plus the configured
	// tolerance.
	RuleNotFuture RuleKind = "not_future"
)

// Rule is a single validation predicate over one canonical field.
type Rule struct {
	Name     string   `yaml:"name"`
	Field    Field    `yaml:"field"`
	Kind     RuleKind `yaml:"kind"`
	Severity Severity `yaml:"severity"`
}

// MeasureKind enumerates the supported aggregate measures.
type MeasureKind string

const (
	MeasureCount MeasureKind = "count"
	MeasureSum   MeasureKind = "sum"
	MeasureAvg   MeasureKind = "avg"
)

// Measure is one numeric column of an aggregate table.
type Measure struct {
	Name  string      `yaml:"name"`
	Kind  MeasureKind `yaml:"kind"`
	Field Field       `yaml:"field,omitempty"` // unused for count
}

// Bucket selects time bucketing for an aggregate spec.
type Bucket string

const (
	BucketNone  Bucket = ""
	BucketMonth Bucket = "month"
)

// SortMode fixes the row order of an aggregate table.
type SortMode string

const (
	// SortKeyAsc orders rows by group key ascending. This is the default and
	// what makes aggregation output deterministic.
	SortKeyAsc SortMode = "key_asc"
	// SortMeasureDesc orders rows by the first measure descending, breaking
	// ties by group key ascending.
	SortMeasureDesc SortMode = "measure_desc"
)

// AggregateSpec describes one summary table to compute.
type AggregateSpec struct {
	Name     string    `yaml:"name"`
	GroupBy  []Field   `yaml:"group_by,omitempty"`
	Bucket   Bucket    `yaml:"bucket,omitempty"`
	Measures []Measure `yaml:"measures"`
	Sort     SortMode  `yaml:"sort,omitempty"`
	Limit    int       `yaml:"limit,omitempty"` // 0 means unlimited
}

// Config carries every knob of a batch run. It is passed explicitly into
// each stage constructor; there is no ambient global configuration.
type Config struct {
	Aliases             map[string]Field `yaml:"aliases"`
	Locale              Locale           `yaml:"locale"`
	DateFormats         []string         `yaml:"date_formats"`
	FutureToleranceDays int              `yaml:"future_tolerance_days"`
	DedupMode           DedupMode        `yaml:"dedup_mode"`
	DedupKey            []Field          `yaml:"dedup_key"`
	DedupKeyFallback    []Field          `yaml:"dedup_key_fallback"`
	Rules               []Rule           `yaml:"rules"`
	Aggregates          []AggregateSpec  `yaml:"aggregates"`
}

// ConfigError is a structural configuration problem. These surface at
// pipeline construction time, before any record is processed.
type ConfigError struct {
	Section string
	Detail  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Section, e.Detail)
}

func configErrorf(section, format string, args ...interface{}) *ConfigError {
	return &ConfigError{Section: section, Detail: fmt.Sprintf(format, args...)}
}

// Default returns the configuration used when no file is given. The alias
// table covers both the synthetic dataset headers and the Spanish headers of
// the real exports the tool was written for.
func Default() *Config {
	return &Config{
		Aliases: map[string]Field{
			"transaction_id":  FieldTransactionID,
			"order_id":        FieldTransactionID,
			"date":            FieldDate,
			"order_date":      FieldDate,
			"fecha":           FieldDate,
			"fecha_registro":  FieldDate,
			"customer":        FieldCustomer,
			"customer_id":     FieldCustomer,
			"cliente":         FieldCustomer,
			"product":         FieldProduct,
			"product_name":    FieldProduct,
			"producto":        FieldProduct,
			"category":        FieldCategory,
			"categoria":       FieldCategory,
			"region":          FieldRegion,
			"quantity":        FieldQuantity,
			"qty":             FieldQuantity,
			"cantidad":        FieldQuantity,
			"unit_price":      FieldUnitPrice,
			"price":           FieldUnitPrice,
			"precio_unitario": FieldUnitPrice,
			"discount":        FieldDiscount,
			"descuento":       FieldDiscount,
			"amount":          FieldAmount,
			"revenue":         FieldAmount,
			"importe":         FieldAmount,
			"ingreso_mensual": FieldAmount,
		},
		Locale: LocaleDotDecimal,
		DateFormats: []string{
			"2006-01-02",
			"2006-01-02 15:04:05",
			"02/01/2006",
			"01/02/2006",
			"02-01-2006",
		},
		FutureToleranceDays: 1,
		DedupMode:           LastWins,
		DedupKey:            []Field{FieldTransactionID},
		DedupKeyFallback:    []Field{FieldDate, FieldCustomer, FieldProduct, FieldAmount},
		Rules: []Rule{
			{Name: "fecha_requerida", Field: FieldDate, Kind: RuleRequired, Severity: SeverityReject},
			{Name: "producto_requerido", Field: FieldProduct, Kind: RuleRequired, Severity: SeverityWarn},
			{Name: "cantidad_positiva", Field: FieldQuantity, Kind: RulePositive, Severity: SeverityReject},
			{Name: "importe_no_negativo", Field: FieldAmount, Kind: RuleNonNegative, Severity: SeverityReject},
			{Name: "fecha_no_futura", Field: FieldDate, Kind: RuleNotFuture, Severity: SeverityReject},
		},
		Aggregates: []AggregateSpec{
			{
				Name:    "ResumenCategoria",
				GroupBy: []Field{FieldCategory},
				Measures: []Measure{
					{Name: "pedidos", Kind: MeasureCount},
					{Name: "revenue_total", Kind: MeasureSum, Field: FieldAmount},
					{Name: "ingreso_promedio", Kind: MeasureAvg, Field: FieldAmount},
				},
			},
			{
				Name:    "ResumenRegion",
				GroupBy: []Field{FieldRegion},
				Measures: []Measure{
					{Name: "pedidos", Kind: MeasureCount},
					{Name: "revenue_total", Kind: MeasureSum, Field: FieldAmount},
					{Name: "ingreso_promedio", Kind: MeasureAvg, Field: FieldAmount},
				},
			},
			{
				Name:    "ResumenCliente",
				GroupBy: []Field{FieldCustomer},
				Measures: []Measure{
					{Name: "pedidos", Kind: MeasureCount},
					{Name: "revenue_total", Kind: MeasureSum, Field: FieldAmount},
				},
			},
			{
				Name:   "TendenciaMensual",
				Bucket: BucketMonth,
				Measures: []Measure{
					{Name: "pedidos", Kind: MeasureCount},
					{Name: "revenue_total", Kind: MeasureSum, Field: FieldAmount},
				},
			},
			{
				Name:    "TopProductos",
				GroupBy: []Field{FieldProduct},
				Measures: []Measure{
					{Name: "revenue_total", Kind: MeasureSum, Field: FieldAmount},
					{Name: "quantity_total", Kind: MeasureSum, Field: FieldQuantity},
					{Name: "pedidos", Kind: MeasureCount},
				},
				Sort:  SortMeasureDesc,
				Limit: 50,
			},
		},
	}
}

// Validate checks the configuration for structural problems: unknown
// canonical fields in aliases, rules, dedup keys or aggregate specs, and
// otherwise unusable settings. It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Aliases) == 0 {
		return configErrorf("aliases", "alias table is empty")
	}
	for raw, field := range c.Aliases {
		if strings.TrimSpace(raw) == "" {
			return configErrorf("aliases", "empty raw header mapped to %q", field)
		}
		if !Known(field) {
			return configErrorf("aliases", "unknown canonical field %q for header %q", field, raw)
		}
	}

	switch c.Locale {
	case LocaleDotDecimal, LocaleCommaDecimal:
	default:
		return configErrorf("locale", "unknown locale %q", c.Locale)
	}

	if len(c.DateFormats) == 0 {
		return configErrorf("date_formats", "at least one date format is required")
	}

	switch c.DedupMode {
	case FirstWins, LastWins:
	default:
		return configErrorf("dedup_mode", "unknown mode %q", c.DedupMode)
	}
	if len(c.DedupKey) == 0 {
		return configErrorf("dedup_key", "at least one key field is required")
	}
	for _, f := range c.DedupKey {
		if !Known(f) {
			return configErrorf("dedup_key", "unknown canonical field %q", f)
		}
	}
	for _, f := range c.DedupKeyFallback {
		if !Known(f) {
			return configErrorf("dedup_key_fallback", "unknown canonical field %q", f)
		}
	}

	for i, r := range c.Rules {
		if !Known(r.Field) {
			return configErrorf("rules", "rule %d (%s) references unknown field %q", i, r.Name, r.Field)
		}
		switch r.Kind {
		case RuleRequired, RulePositive, RuleNonNegative, RuleNotFuture:
		default:
			return configErrorf("rules", "rule %d (%s) has unknown kind %q", i, r.Name, r.Kind)
		}
		switch r.Severity {
		case SeverityWarn, SeverityReject:
		default:
			return configErrorf("rules", "rule %d (%s) has unknown severity %q", i, r.Name, r.Severity)
		}
		if r.Kind == RuleNotFuture && r.Field.Type() != TypeDate {
			return configErrorf("rules", "rule %d (%s) applies not_future to non-date field %q", i, r.Name, r.Field)
		}
		if (r.Kind == RulePositive || r.Kind == RuleNonNegative) && r.Field.Type() == TypeString {
			return configErrorf("rules", "rule %d (%s) applies %s to string field %q", i, r.Name, r.Kind, r.Field)
		}
	}

	names := make(map[string]bool, len(c.Aggregates))
	for i, spec := range c.Aggregates {
		if spec.Name == "" {
			return configErrorf("aggregates", "spec %d has no name", i)
		}
		if names[spec.Name] {
			return configErrorf("aggregates", "duplicate spec name %q", spec.Name)
		}
		names[spec.Name] = true

		if spec.Bucket == BucketNone && len(spec.GroupBy) == 0 {
			return configErrorf("aggregates", "spec %q has neither group_by nor bucket", spec.Name)
		}
		if spec.Bucket != BucketNone && spec.Bucket != BucketMonth {
			return configErrorf("aggregates", "spec %q has unknown bucket %q", spec.Name, spec.Bucket)
		}
		for _, f := range spec.GroupBy {
			if !Known(f) {
				return configErrorf("aggregates", "spec %q groups by unknown field %q", spec.Name, f)
			}
		}
		if len(spec.Measures) == 0 {
			return configErrorf("aggregates", "spec %q has no measures", spec.Name)
		}
		for _, m := range spec.Measures {
			if m.Name == "" {
				return configErrorf("aggregates", "spec %q has an unnamed measure", spec.Name)
			}
			switch m.Kind {
			case MeasureCount:
			case MeasureSum, MeasureAvg:
				if !Known(m.Field) {
					return configErrorf("aggregates", "spec %q measure %q uses unknown field %q", spec.Name, m.Name, m.Field)
				}
				switch m.Field.Type() {
				case TypeInteger, TypeDecimal:
				default:
					return configErrorf("aggregates", "spec %q measure %q aggregates non-numeric field %q", spec.Name, m.Name, m.Field)
				}
			default:
				return configErrorf("aggregates", "spec %q measure %q has unknown kind %q", spec.Name, m.Name, m.Kind)
			}
		}
		switch spec.Sort {
		case "", SortKeyAsc, SortMeasureDesc:
		default:
			return configErrorf("aggregates", "spec %q has unknown sort %q", spec.Name, spec.Sort)
		}
		if spec.Limit < 0 {
			return configErrorf("aggregates", "spec %q has negative limit", spec.Name)
		}
	}

	if c.FutureToleranceDays < 0 {
		return configErrorf("future_tolerance_days", "must not be negative")
	}

	return nil
}
