package pipeline

import (
	"fmt"
	"strings"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
)

// Deduplicator collapses groups of accepted records that share a dedup key.
// Non-surviving group members are relabeled rejected with a duplicate_of
// reason and stay in the dataset, keeping the audit trail intact.
type Deduplicator struct {
	cfg *schema.Config
}

// NewDeduplicator creates a deduplicator over an already-validated
// configuration.
func NewDeduplicator(cfg *schema.Config) *Deduplicator {
	return &Deduplicator{cfg: cfg}
}

// Apply relabels duplicates in place. records must be in source order; the
// survivor choice (first or last occurrence) depends on relative ordering.
func (d *Deduplicator) Apply(records []*dataset.Validated) {
	groups := make(map[string][]*dataset.Validated)
	var order []string // group keys in first-seen order, for determinism

	for _, rec := range records {
		if rec.Disposition != dataset.Accepted {
			continue
		}
		key, ok := d.key(rec)
		if !ok {
			// A fully missing key must not merge unrelated transactions;
			// the record stays a singleton.
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], rec)
	}

	for _, key := range order {
		group := groups[key]
		if len(group) < 2 {
			continue
		}

		survivor := group[len(group)-1] // last occurrence wins
		if d.cfg.DedupMode == schema.FirstWins {
			survivor = group[0]
		}

		for _, rec := range group {
			if rec == survivor {
				continue
			}
			rec.Disposition = dataset.Rejected
			rec.DuplicateOf = survivor.SourceIndex
			rec.RuleIssues = append(rec.RuleIssues, dataset.RuleIssue{
				Rule:     "duplicado",
				Severity: schema.SeverityReject,
				Reason:   fmt.Sprintf("duplicate_of:%d", survivor.SourceIndex),
			})
		}
	}
}

// key builds the dedup key for a record. It uses the configured key fields,
// falling back to the secondary field list when every primary part is
// missing. ok is false when no usable key exists.
func (d *Deduplicator) key(rec *dataset.Validated) (string, bool) {
	if key, ok := buildKey(rec, d.cfg.DedupKey); ok {
		return key, true
	}
	if len(d.cfg.DedupKeyFallback) > 0 {
		if key, ok := buildKey(rec, d.cfg.DedupKeyFallback); ok {
			return "fallback|" + key, true
		}
	}
	return "", false
}

// buildKey joins the canonical encodings of the key fields. ok is false when
// all parts are missing.
func buildKey(rec *dataset.Validated, fields []schema.Field) (string, bool) {
	parts := make([]string, len(fields))
	resolved := false
	for i, f := range fields {
		v := rec.Field(f)
		parts[i] = v.Key()
		if !v.IsMissing() {
			resolved = true
		}
	}
	if !resolved {
		return "", false
	}
	return strings.Join(parts, "|"), true
}
