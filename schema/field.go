// Package schema defines the canonical sales schema and the batch
// configuration that drives the pipeline. The set of canonical fields and
// their types is fixed; raw inputs are mapped onto it through a configurable
// alias table instead of being inferred at runtime.
package schema

// FieldType is the declared semantic type of a canonical field.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInteger
	TypeDecimal
	TypeDate
)

func (t FieldType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	default:
		return "unknown"
	}
}

// Field identifies a canonical data element, independent of how it was
// labeled in the raw source.
type Field string

const (
	FieldTransactionID Field = "transaction_id"
	FieldDate          Field = "date"
	FieldCustomer      Field = "customer"
	FieldProduct       Field = "product"
	FieldCategory      Field = "category"
	FieldRegion        Field = "region"
	FieldQuantity      Field = "quantity"
	FieldUnitPrice     Field = "unit_price"
	FieldDiscount      Field = "discount"
	FieldAmount        Field = "amount"
)

// fieldTypes declares the semantic type of every canonical field.
var fieldTypes = map[Field]FieldType{
	FieldTransactionID: TypeString,
	FieldDate:          TypeDate,
	FieldCustomer:      TypeString,
	FieldProduct:       TypeString,
	FieldCategory:      TypeString,
	FieldRegion:        TypeString,
	FieldQuantity:      TypeInteger,
	FieldUnitPrice:     TypeDecimal,
	FieldDiscount:      TypeDecimal,
	FieldAmount:        TypeDecimal,
}

// Fields returns all canonical fields in a stable order.
func Fields() []Field {
	return []Field{
		FieldTransactionID,
		FieldDate,
		FieldCustomer,
		FieldProduct,
		FieldCategory,
		FieldRegion,
		FieldQuantity,
		FieldUnitPrice,
		FieldDiscount,
		FieldAmount,
	}
}

// Known reports whether f is a canonical field.
func Known(f Field) bool {
	_, ok := fieldTypes[f]
	return ok
}

// Type returns the declared type of the field. Unknown fields are reported
// as strings; callers that care should check Known first.
func (f Field) Type() FieldType {
	if t, ok := fieldTypes[f]; ok {
		return t
	}
	return TypeString
}
