package dataset

// Dataset is the ordered sequence of all validated records of one batch,
// together with batch-level metadata gathered during normalization.
// Source indexes are unique and strictly increasing; every input row appears
// exactly once, whatever its fate.
type Dataset struct {
	Records []*Validated

	// UnmappedColumns lists raw header labels that matched no alias. Kept as
	// metadata rather than treated as an error.
	UnmappedColumns []string
}

// Counts tallies record dispositions for report metadata. Duplicates are a
// subset of rejected.
type Counts struct {
	Total      int
	Accepted   int
	Rejected   int
	Duplicates int
	Derived    int
}

// Counts scans the dataset once and returns the disposition tallies.
func (d *Dataset) Counts() Counts {
	c := Counts{Total: len(d.Records)}
	for _, r := range d.Records {
		if r.Disposition == Accepted {
			c.Accepted++
		} else {
			c.Rejected++
			if r.IsDuplicate() {
				c.Duplicates++
			}
		}
		for _, issue := range r.Issues {
			if issue.Reason == ReasonDerivedAmount {
				c.Derived++
			}
		}
	}
	return c
}

// Accepted returns the records that survived validation and deduplication,
// in source order. This is the aggregation input.
func (d *Dataset) Accepted() []*Validated {
	out := make([]*Validated, 0, len(d.Records))
	for _, r := range d.Records {
		if r.Disposition == Accepted {
			out = append(out, r)
		}
	}
	return out
}

// RejectedRecords returns the records excluded from aggregation, in source
// order, for the rejected sheet of the workbook.
func (d *Dataset) RejectedRecords() []*Validated {
	out := make([]*Validated, 0)
	for _, r := range d.Records {
		if r.Disposition == Rejected {
			out = append(out, r)
		}
	}
	return out
}
