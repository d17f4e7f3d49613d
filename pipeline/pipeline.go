// Package pipeline implements the batch transformation from raw rows to the
// canonical dataset: schema normalization, rule validation, and
// deduplication. Stages run strictly in order; per-record problems become
// issues on the records, never errors, so a batch always runs to completion.
//
// Example usage:
//
//	cfg := schema.Default()
//	p, err := pipeline.New(cfg)
//	if err != nil {
//	    // structural configuration problem, nothing was processed
//	}
//	ds, err := p.Process(ctx, rows)
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/schema"
	"github.com/nroldan/ventas/telemetry"
)

// Pipeline wires the normalizer, validator and deduplicator for one batch
// configuration. A pipeline is safe for concurrent batches as long as each
// Process call runs over its own rows.
type Pipeline struct {
	cfg        *schema.Config
	normalizer *Normalizer
	validator  *Validator
	dedup      *Deduplicator
	workers    int
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers enables per-record parallelism for the normalize and validate
// stages. Source order is restored before deduplication, which depends on
// relative record ordering.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithClock pins the validator's clock, used by the not_future rule.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.validator = NewValidator(p.cfg, now)
	}
}

// New validates the configuration and builds the pipeline. Structural
// configuration problems surface here, before any record is processed.
func New(cfg *schema.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:        cfg,
		normalizer: NewNormalizer(cfg),
		validator:  NewValidator(cfg, nil),
		dedup:      NewDeduplicator(cfg),
		workers:    1,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Process runs the full batch. The only error it can return is context
// cancellation; data problems end up as issues on the records.
func (p *Pipeline) Process(ctx context.Context, rows []dataset.Raw) (*dataset.Dataset, error) {
	ds := &dataset.Dataset{
		Records:         make([]*dataset.Validated, len(rows)),
		UnmappedColumns: p.unmappedColumns(rows),
	}

	timer := telemetry.StartTimer(ctx, "normalize+validate")
	var err error
	if p.workers > 1 && len(rows) > 1 {
		err = p.processParallel(ctx, rows, ds.Records)
	} else {
		err = p.processSerial(ctx, rows, ds.Records)
	}
	timer.End()
	if err != nil {
		return nil, err
	}

	dedupTimer := telemetry.StartTimer(ctx, "dedup")
	p.dedup.Apply(ds.Records)
	dedupTimer.End()

	return ds, nil
}

// processSerial normalizes and validates rows one by one.
func (p *Pipeline) processSerial(ctx context.Context, rows []dataset.Raw, out []*dataset.Validated) error {
	for i, row := range rows {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		out[i] = p.validator.Validate(p.normalizer.Normalize(row, i))
	}
	return nil
}

// processParallel fans rows out over p.workers goroutines. Each worker owns
// a disjoint set of indexes and writes straight into the result slice, so
// source order is preserved without a merge step and no issue list is shared
// between tasks.
func (p *Pipeline) processParallel(ctx context.Context, rows []dataset.Raw, out []*dataset.Validated) error {
	workers := p.workers
	if workers > len(rows) {
		workers = len(rows)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < len(rows); i += workers {
				select {
				case <-ctx.Done():
					return
				default:
				}
				out[i] = p.validator.Validate(p.normalizer.Normalize(rows[i], i))
			}
		}(w)
	}
	wg.Wait()

	return ctx.Err()
}

// unmappedColumns collects raw header labels that match no alias, sorted for
// stable output. They are batch metadata, not errors.
func (p *Pipeline) unmappedColumns(rows []dataset.Raw) []string {
	seen := make(map[string]bool)
	for _, row := range rows {
		for label := range row {
			if _, ok := p.normalizer.Resolve(label); !ok {
				seen[label] = true
			}
		}
	}

	out := make([]string, 0, len(seen))
	for label := range seen {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}
