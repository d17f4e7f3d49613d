// Package aggregate computes the configured summary tables over the
// accepted, deduplicated records of a dataset. Aggregation is a pure
// function of its input: the same dataset always yields bit-identical
// tables, with rows deterministically ordered.
//
// Currency measures use exact decimal arithmetic; counts are exact
// integers. Group keys that are missing bucket under "(unknown)" so every
// table reconciles to the full accepted count.
package aggregate

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/maps"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
	"github.com/nroldan/ventas/telemetry"
)

// UnknownBucket is the group label for records whose grouping key is
// missing. Bucketing instead of dropping keeps totals reconcilable.
const UnknownBucket = "(unknown)"

// avgScale is the rounding scale for average measures.
const avgScale = 4

// Row is one line of an aggregate table: the group key values followed by
// one decimal per measure.
type Row struct {
	Keys   []string
	Values []decimal.Decimal
}

// Table is a named summary: dimension headers, measure headers, and rows.
// Tables are derived data; they are replaced wholesale, never mutated.
type Table struct {
	Name       string
	Dimensions []string
	Measures   []string
	Rows       []Row
}

// Total sums the named measure across all rows. Used for conservation
// checks and the report KPIs.
func (t *Table) Total(measure string) decimal.Decimal {
	idx := -1
	for i, m := range t.Measures {
		if m == measure {
			idx = i
			break
		}
	}
	total := decimal.Zero
	if idx < 0 {
		return total
	}
	for _, row := range t.Rows {
		total = total.Add(row.Values[idx])
	}
	return total
}

// Result holds the ordered tables computed from one dataset. The dataset
// reference lets the report builder verify that tables and dataset belong
// together.
type Result struct {
	ds     *dataset.Dataset
	Tables []*Table
}

// Dataset returns the dataset the tables were computed from.
func (r *Result) Dataset() *dataset.Dataset {
	return r.ds
}

// Aggregator computes the configured aggregate specs.
type Aggregator struct {
	cfg *schema.Config
}

// New validates the configuration and builds an aggregator.
func New(cfg *schema.Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Aggregate computes every configured table over the accepted records.
func (a *Aggregator) Aggregate(ctx context.Context, ds *dataset.Dataset) *Result {
	timer := telemetry.StartTimer(ctx, "aggregate")
	defer timer.End()

	accepted := ds.Accepted()

	result := &Result{ds: ds}
	for _, spec := range a.cfg.Aggregates {
		result.Tables = append(result.Tables, a.table(spec, accepted))
	}
	return result
}

// group accumulates one table row before finalization.
type group struct {
	keys      []string
	count     int64
	sums      []decimal.Decimal
	presences []int64 // per measure, how many records contributed (for avg)
}

// table computes a single aggregate table.
func (a *Aggregator) table(spec schema.AggregateSpec, accepted []*dataset.Validated) *Table {
	t := &Table{
		Name:     spec.Name,
		Measures: make([]string, len(spec.Measures)),
	}
	for i, m := range spec.Measures {
		t.Measures[i] = m.Name
	}
	if spec.Bucket == schema.BucketMonth {
		t.Dimensions = []string{"mes"}
	} else {
		for _, f := range spec.GroupBy {
			t.Dimensions = append(t.Dimensions, string(f))
		}
	}

	groups := make(map[string]*group)
	for _, rec := range accepted {
		keys := a.groupKeys(spec, rec)
		mapKey := joinKeys(keys)

		g, ok := groups[mapKey]
		if !ok {
			g = &group{
				keys:      keys,
				sums:      make([]decimal.Decimal, len(spec.Measures)),
				presences: make([]int64, len(spec.Measures)),
			}
			for i := range g.sums {
				g.sums[i] = decimal.Zero
			}
			groups[mapKey] = g
		}

		g.count++
		for i, m := range spec.Measures {
			if m.Kind == schema.MeasureCount {
				continue
			}
			v := rec.Field(m.Field)
			if v.IsMissing() {
				continue
			}
			g.sums[i] = g.sums[i].Add(v.Dec())
			g.presences[i]++
		}
	}

	if spec.Bucket == schema.BucketMonth {
		fillMonths(groups, accepted, len(spec.Measures))
	}

	mapKeys := maps.Keys(groups)
	sort.Strings(mapKeys)

	for _, mk := range mapKeys {
		g := groups[mk]
		row := Row{Keys: g.keys, Values: make([]decimal.Decimal, len(spec.Measures))}
		for i, m := range spec.Measures {
			switch m.Kind {
			case schema.MeasureCount:
				row.Values[i] = decimal.NewFromInt(g.count)
			case schema.MeasureSum:
				row.Values[i] = g.sums[i]
			case schema.MeasureAvg:
				if g.presences[i] == 0 {
					row.Values[i] = decimal.Zero
				} else {
					row.Values[i] = g.sums[i].DivRound(decimal.NewFromInt(g.presences[i]), avgScale)
				}
			}
		}
		t.Rows = append(t.Rows, row)
	}

	if spec.Sort == schema.SortMeasureDesc {
		sort.SliceStable(t.Rows, func(i, j int) bool {
			return t.Rows[i].Values[0].GreaterThan(t.Rows[j].Values[0])
		})
	}
	if spec.Limit > 0 && len(t.Rows) > spec.Limit {
		t.Rows = t.Rows[:spec.Limit]
	}

	return t
}

// groupKeys derives the display keys a record falls under for a spec.
func (a *Aggregator) groupKeys(spec schema.AggregateSpec, rec *dataset.Validated) []string {
	if spec.Bucket == schema.BucketMonth {
		date := rec.Field(schema.FieldDate)
		if date.IsMissing() {
			return []string{UnknownBucket}
		}
		return []string{date.Time().Format("2006-01")}
	}

	keys := make([]string, len(spec.GroupBy))
	for i, f := range spec.GroupBy {
		v := rec.Field(f)
		if v.IsMissing() {
			keys[i] = UnknownBucket
		} else {
			keys[i] = v.Display()
		}
	}
	return keys
}

// fillMonths inserts zero rows for months inside the observed date range
// that saw no activity, so trend tables keep a uniform cadence.
func fillMonths(groups map[string]*group, accepted []*dataset.Validated, measures int) {
	var min, max string
	for _, rec := range accepted {
		date := rec.Field(schema.FieldDate)
		if date.IsMissing() {
			continue
		}
		month := date.Time().Format("2006-01")
		if min == "" || month < min {
			min = month
		}
		if max == "" || month > max {
			max = month
		}
	}
	if min == "" {
		return
	}

	start, _ := timeParseMonth(min)
	end, _ := timeParseMonth(max)
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		month := m.Format("2006-01")
		mapKey := joinKeys([]string{month})
		if _, ok := groups[mapKey]; ok {
			continue
		}
		g := &group{
			keys:      []string{month},
			sums:      make([]decimal.Decimal, measures),
			presences: make([]int64, measures),
		}
		for i := range g.sums {
			g.sums[i] = decimal.Zero
		}
		groups[mapKey] = g
	}
}

func timeParseMonth(s string) (time.Time, error) {
	return time.Parse("2006-01", s)
}

// joinKeys builds the map key for a group. The separator cannot appear in
// display values of the fields we group by.
func joinKeys(keys []string) string {
	out := ""
	for i, k := range keys {
		if i > 0 {
			out += "\x1f"
		}
		out += k
	}
	return out
}
