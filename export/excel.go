// Package export contains the writer adapters that turn a report model
// into the two batch artifacts: a cleaned workbook and a KPI PDF. Layout
// and styling stay deliberately minimal; the model carries all the data.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/nroldan/ventas/aggregate"
	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/report"
	"github.com/nroldan/ventas/schema"
	"github.com/nroldan/ventas/telemetry"
)

// Workbook sheet names follow the original report layout.
const (
	sheetRecords  = "datos_limpios"
	sheetRejected = "Rechazados"
	sheetMetrics  = "Metrics"
)

// WriteWorkbook writes the full workbook: the canonical dataset with
// dispositions and issues, one sheet per aggregate table, the rejected rows
// with their reasons, and the batch metrics.
func WriteWorkbook(ctx context.Context, m *report.Model, path string) error {
	timer := telemetry.StartTimer(ctx, "write workbook")
	defer timer.End()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := writeRecordsSheet(f, sheetRecords, m.Dataset.Records); err != nil {
		return err
	}

	for _, table := range m.Tables {
		if err := writeTableSheet(f, table.Name, table); err != nil {
			return err
		}
	}

	if rejected := m.Dataset.RejectedRecords(); len(rejected) > 0 {
		if err := writeRecordsSheet(f, sheetRejected, rejected); err != nil {
			return err
		}
	}

	if err := writeMetricsSheet(f, m); err != nil {
		return err
	}

	// The default sheet excelize creates is replaced by our first one.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(sheetRecords); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to write workbook %s: %w", path, err)
	}
	return nil
}

// writeRecordsSheet lists records with every canonical field plus the audit
// columns: disposition, issues and the survivor reference for duplicates.
func writeRecordsSheet(f *excelize.File, name string, records []*dataset.Validated) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	fields := schema.Fields()
	header := []interface{}{"source_index"}
	for _, field := range fields {
		header = append(header, string(field))
	}
	header = append(header, "disposition", "issues", "duplicate_of")

	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", name, err)
	}

	for i, rec := range records {
		row := []interface{}{rec.SourceIndex}
		for _, field := range fields {
			row = append(row, rec.Field(field).Display())
		}
		row = append(row, rec.Disposition.String(), issueSummary(rec))
		if rec.IsDuplicate() {
			row = append(row, rec.DuplicateOf)
		} else {
			row = append(row, "")
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", name, err)
		}
	}

	return nil
}

// issueSummary joins normalization and rule issues into one cell.
func issueSummary(rec *dataset.Validated) string {
	parts := make([]string, 0, len(rec.Issues)+len(rec.RuleIssues))
	for _, issue := range rec.Issues {
		parts = append(parts, issue.String())
	}
	for _, issue := range rec.RuleIssues {
		parts = append(parts, issue.Reason)
	}
	return strings.Join(parts, "; ")
}

// writeTableSheet writes one aggregate table: dimension columns followed by
// measure columns, one row per group.
func writeTableSheet(f *excelize.File, name string, table *aggregate.Table) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", name, err)
	}

	header := make([]interface{}, 0, len(table.Dimensions)+len(table.Measures))
	for _, d := range table.Dimensions {
		header = append(header, d)
	}
	for _, m := range table.Measures {
		header = append(header, m)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header on %s: %w", name, err)
	}

	for i, row := range table.Rows {
		cells := make([]interface{}, 0, len(row.Keys)+len(row.Values))
		for _, k := range row.Keys {
			cells = append(cells, k)
		}
		for _, v := range row.Values {
			if v.IsInteger() {
				cells = append(cells, v.IntPart())
			} else {
				cells = append(cells, v.InexactFloat64())
			}
		}

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("failed to write row on %s: %w", name, err)
		}
	}

	return nil
}

// writeMetricsSheet records batch-level facts as metric/value pairs, the
// same surface the original Metrics sheet carried.
func writeMetricsSheet(f *excelize.File, m *report.Model) error {
	if _, err := f.NewSheet(sheetMetrics); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheetMetrics, err)
	}

	metrics := [][]interface{}{
		{"metric", "value"},
		{"batch_id", m.Meta.BatchID.String()},
		{"generated_at", m.Meta.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"input", m.Meta.InputName},
		{"rows_original", m.Meta.RowsOriginal},
		{"accepted", m.Meta.Accepted},
		{"rejected", m.Meta.Rejected},
		{"duplicates", m.Meta.Duplicates},
		{"revenue_recalc", m.Meta.DerivedAmounts},
		{"unmapped_columns", strings.Join(m.Meta.UnmappedColumns, ", ")},
	}

	for i := range metrics {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheetMetrics, cell, &metrics[i]); err != nil {
			return fmt.Errorf("failed to write metrics row: %w", err)
		}
	}

	return nil
}
