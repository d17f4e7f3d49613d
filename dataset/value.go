// Package dataset defines the record types that flow through the pipeline:
// raw rows as read from the file, normalized records with typed values,
// validated records with a disposition, and the canonical dataset that holds
// every record of a batch together with its audit trail.
package dataset

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nroldan/ventas/schema"
)

// Value is a typed field value with an explicit missing marker. A missing
// Value is the result of an absent column or a failed coercion; it never
// carries a payload.
type Value struct {
	typ     schema.FieldType
	missing bool

	str  string
	num  int64
	dec  decimal.Decimal
	date time.Time
}

// Missing returns the missing marker for the given type.
func Missing(typ schema.FieldType) Value {
	return Value{typ: typ, missing: true}
}

// String wraps a trimmed, non-empty string.
func String(s string) Value {
	return Value{typ: schema.TypeString, str: s}
}

// Integer wraps an integer value.
func Integer(n int64) Value {
	return Value{typ: schema.TypeInteger, num: n}
}

// Decimal wraps an exact decimal value.
func Decimal(d decimal.Decimal) Value {
	return Value{typ: schema.TypeDecimal, dec: d}
}

// Date wraps a calendar date. The time portion is truncated by callers that
// only care about the day.
func Date(t time.Time) Value {
	return Value{typ: schema.TypeDate, date: t}
}

// IsMissing reports whether the value carries no payload.
func (v Value) IsMissing() bool { return v.missing }

// Type returns the semantic type the value was coerced to.
func (v Value) Type() schema.FieldType { return v.typ }

// Str returns the string payload. Only meaningful for TypeString.
func (v Value) Str() string { return v.str }

// Int returns the integer payload. Only meaningful for TypeInteger.
func (v Value) Int() int64 { return v.num }

// Dec returns the decimal payload. Integers are widened so that numeric
// fields can be aggregated uniformly.
func (v Value) Dec() decimal.Decimal {
	if v.typ == schema.TypeInteger {
		return decimal.NewFromInt(v.num)
	}
	return v.dec
}

// Time returns the date payload. Only meaningful for TypeDate.
func (v Value) Time() time.Time { return v.date }

// Display renders the value for human-facing output. Missing values render
// as the empty string.
func (v Value) Display() string {
	if v.missing {
		return ""
	}
	switch v.typ {
	case schema.TypeString:
		return v.str
	case schema.TypeInteger:
		return strconv.FormatInt(v.num, 10)
	case schema.TypeDecimal:
		return v.dec.String()
	case schema.TypeDate:
		return v.date.Format("2006-01-02")
	default:
		return ""
	}
}

// Key renders the value in a canonical form suitable for building dedup
// keys and group keys. Unlike Display it distinguishes missing values and
// normalizes decimals so that 21 and 21.00 collide.
func (v Value) Key() string {
	if v.missing {
		return "\x00"
	}
	switch v.typ {
	case schema.TypeString:
		return v.str
	case schema.TypeInteger:
		return strconv.FormatInt(v.num, 10)
	case schema.TypeDecimal:
		// Rounding to a fixed exponent makes 21, 21.0 and 21.00 collide.
		return v.dec.Round(8).String()
	case schema.TypeDate:
		return v.date.Format("2006-01-02")
	default:
		return fmt.Sprintf("%v", v)
	}
}
