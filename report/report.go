// Package report assembles the canonical dataset, the aggregate tables and
// the batch metadata into one immutable model consumed by the writer
// adapters (spreadsheet, PDF, terminal).
package report

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/nroldan/ventas/aggregate"
	"github.com/nroldan/ventas/dataset"
)

// ErrDatasetMismatch is returned when the aggregate result was computed
// from a different dataset than the one handed to the builder. This is a
// programming-contract violation, not a data error.
var ErrDatasetMismatch = errors.New("report: aggregate result does not belong to the given dataset")

// Metadata carries batch-level facts stamped onto the model.
type Metadata struct {
	BatchID     uuid.UUID
	GeneratedAt time.Time
	InputName   string

	RowsOriginal    int
	Accepted        int
	Rejected        int
	Duplicates      int
	DerivedAmounts  int
	UnmappedColumns []string
}

// Model is the immutable bundle the writers consume. Construct it with
// Build; treat it as read-only afterwards.
type Model struct {
	Dataset *dataset.Dataset
	Tables  []*aggregate.Table
	Meta    Metadata
}

// Build assembles the model. generatedAt is supplied by the caller rather
// than read from the clock here, so builds are reproducible in tests.
func Build(ds *dataset.Dataset, result *aggregate.Result, inputName string, generatedAt time.Time) (*Model, error) {
	if result.Dataset() != ds {
		return nil, ErrDatasetMismatch
	}

	counts := ds.Counts()

	return &Model{
		Dataset: ds,
		Tables:  result.Tables,
		Meta: Metadata{
			BatchID:         uuid.New(),
			GeneratedAt:     generatedAt,
			InputName:       inputName,
			RowsOriginal:    counts.Total,
			Accepted:        counts.Accepted,
			Rejected:        counts.Rejected,
			Duplicates:      counts.Duplicates,
			DerivedAmounts:  counts.Derived,
			UnmappedColumns: ds.UnmappedColumns,
		},
	}, nil
}

// Table returns the named aggregate table, or nil when the configuration
// did not produce it.
func (m *Model) Table(name string) *aggregate.Table {
	for _, t := range m.Tables {
		if t.Name == name {
			return t
		}
	}
	return nil
}
