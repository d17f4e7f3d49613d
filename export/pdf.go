package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"github.com/nroldan/ventas/report"
	"github.com/nroldan/ventas/schema"
	"github.com/nroldan/ventas/telemetry"
)

// WritePDF renders the narrative summary: headline KPIs, the data quality
// block, and the top category by revenue.
func WritePDF(ctx context.Context, m *report.Model, path string) error {
	timer := telemetry.StartTimer(ctx, "write pdf")
	defer timer.End()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	total, average := revenueKPIs(m)

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 12, "Reporte de Ventas", "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 8, fmt.Sprintf("Generado: %s", m.Meta.GeneratedAt.Format("2006-01-02 15:04")), "", 1, "", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Entrada: %s (lote %s)", m.Meta.InputName, m.Meta.BatchID), "", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "KPIs", "", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	kpiLine(pdf, fmt.Sprintf("Pedidos: %d", m.Meta.Accepted))
	kpiLine(pdf, fmt.Sprintf("Ingreso total: %s", total.StringFixed(2)))
	kpiLine(pdf, fmt.Sprintf("Ingreso promedio: %s", average.StringFixed(2)))
	if name, revenue, ok := topCategory(m); ok {
		kpiLine(pdf, fmt.Sprintf("Mejor categoria: %s (%s)", name, revenue.StringFixed(2)))
	}

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(0, 8, "Calidad de Datos", "", 1, "", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	kpiLine(pdf, fmt.Sprintf("Filas originales: %d / aceptadas: %d", m.Meta.RowsOriginal, m.Meta.Accepted))
	kpiLine(pdf, fmt.Sprintf("Rechazadas: %d (duplicadas: %d)", m.Meta.Rejected, m.Meta.Duplicates))
	kpiLine(pdf, fmt.Sprintf("Importes recalculados: %d", m.Meta.DerivedAmounts))
	if len(m.Meta.UnmappedColumns) > 0 {
		kpiLine(pdf, fmt.Sprintf("Columnas sin mapear: %d", len(m.Meta.UnmappedColumns)))
	}

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write pdf %s: %w", path, err)
	}
	return nil
}

func kpiLine(pdf *fpdf.Fpdf, text string) {
	pdf.CellFormat(0, 6, "- "+text, "", 1, "", false, 0, "")
}

// revenueKPIs sums the amount field over the accepted records.
func revenueKPIs(m *report.Model) (total, average decimal.Decimal) {
	total = decimal.Zero
	count := int64(0)
	for _, rec := range m.Dataset.Accepted() {
		v := rec.Field(schema.FieldAmount)
		if v.IsMissing() {
			continue
		}
		total = total.Add(v.Dec())
		count++
	}
	if count > 0 {
		average = total.DivRound(decimal.NewFromInt(count), 2)
	} else {
		average = decimal.Zero
	}
	return total, average
}

// topCategory returns the category with the highest revenue_total, when the
// category summary was configured.
func topCategory(m *report.Model) (string, decimal.Decimal, bool) {
	table := m.Table("ResumenCategoria")
	if table == nil || len(table.Rows) == 0 {
		return "", decimal.Zero, false
	}

	idx := -1
	for i, measure := range table.Measures {
		if measure == "revenue_total" {
			idx = i
			break
		}
	}
	if idx < 0 {
		return "", decimal.Zero, false
	}

	best := table.Rows[0]
	for _, row := range table.Rows[1:] {
		if row.Values[idx].GreaterThan(best.Values[idx]) {
			best = row
		}
	}
	return best.Keys[0], best.Values[idx], true
}
