package dataset

import (
	"fmt"

	"github.com/nroldan/ventas/schema"
)

// Raw is one row as it came out of the file: source column label to cell
// text. Raw rows are transient and discarded after normalization.
type Raw map[string]string

// IssueReason classifies why a field degraded during normalization.
type IssueReason string

const (
	ReasonMissingField      IssueReason = "missing_field"
	ReasonUnparseableNumber IssueReason = "unparseable_number"
	ReasonUnparseableDate   IssueReason = "unparseable_date"
	ReasonEmptyString       IssueReason = "empty_string"
	// ReasonDerivedAmount marks an amount recomputed from quantity and
	// unit price because the source cell was unusable.
	ReasonDerivedAmount IssueReason = "derived_amount"
)

// Issue records a single field-level normalization problem. Issues never
// abort a record; the field degrades to missing instead.
type Issue struct {
	Field  schema.Field
	Raw    string
	Reason IssueReason
}

func (i Issue) String() string {
	if i.Raw == "" {
		return fmt.Sprintf("%s:%s", i.Reason, i.Field)
	}
	return fmt.Sprintf("%s:%s (%q)", i.Reason, i.Field, i.Raw)
}

// Normalized is one input row after schema normalization: canonical fields
// with typed values plus the issues accumulated during coercion. The source
// row order is preserved in SourceIndex for traceability.
type Normalized struct {
	SourceIndex int
	Fields      map[schema.Field]Value
	Issues      []Issue
}

// Field returns the value for f, or the typed missing marker when the
// normalizer never produced one.
func (n *Normalized) Field(f schema.Field) Value {
	if v, ok := n.Fields[f]; ok {
		return v
	}
	return Missing(f.Type())
}

// Empty reports whether no canonical field resolved to a present value.
// Entirely empty records are always rejected by the validator.
func (n *Normalized) Empty() bool {
	for _, v := range n.Fields {
		if !v.IsMissing() {
			return false
		}
	}
	return true
}

// Disposition is the accepted/rejected status of a record after validation
// and deduplication.
type Disposition int

const (
	Accepted Disposition = iota
	Rejected
)

func (d Disposition) String() string {
	if d == Accepted {
		return "accepted"
	}
	return "rejected"
}

// RuleIssue records a validation rule failure or the dedup relabel.
type RuleIssue struct {
	Rule     string
	Severity schema.Severity
	Reason   string
}

func (i RuleIssue) String() string {
	return fmt.Sprintf("%s [%s]: %s", i.Rule, i.Severity, i.Reason)
}

// Validated is a normalized record plus its disposition and the rule issues
// that led to it. Rejected records are retained for reporting but excluded
// from aggregation.
type Validated struct {
	*Normalized

	Disposition Disposition
	RuleIssues  []RuleIssue

	// DuplicateOf holds the source index of the surviving record when this
	// one was rejected as a duplicate, and -1 otherwise.
	DuplicateOf int
}

// IsDuplicate reports whether the record was rejected by the deduplicator.
func (v *Validated) IsDuplicate() bool {
	return v.DuplicateOf >= 0
}
