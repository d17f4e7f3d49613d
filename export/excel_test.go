package export

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/xuri/excelize/v2"

	"github.com/nroldan/ventas/aggregate"
	"github.com/nroldan/ventas/dataset"
	"github.com/nroldan/ventas/pipeline"
	"github.com/nroldan/ventas/report"
	"github.com/nroldan/ventas/schema"
)

func buildModel(t *testing.T, rows []dataset.Raw) *report.Model {
	t.Helper()

	cfg := schema.Default()
	p, err := pipeline.New(cfg)
	assert.NoError(t, err)
	ds, err := p.Process(context.Background(), rows)
	assert.NoError(t, err)

	agg, err := aggregate.New(cfg)
	assert.NoError(t, err)
	result := agg.Aggregate(context.Background(), ds)

	model, err := report.Build(ds, result, "ventas.csv", time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC))
	assert.NoError(t, err)
	return model
}

func testRows() []dataset.Raw {
	return []dataset.Raw{
		{"transaction_id": "TX-1", "fecha": "2024-03-15", "producto": "Laptop", "categoria": "Electronics", "region": "Norte", "cantidad": "1", "importe": "900.00"},
		{"transaction_id": "TX-2", "fecha": "2024-03-16", "producto": "Mouse", "categoria": "Electronics", "region": "Sur", "cantidad": "2", "importe": "10.00"},
		{"transaction_id": "TX-3", "producto": "Desk", "categoria": "Furniture", "cantidad": "1", "importe": "150.00"},
	}
}

func TestWriteWorkbook(t *testing.T) {
	model := buildModel(t, testRows())
	path := filepath.Join(t.TempDir(), "reporte.xlsx")

	assert.NoError(t, WriteWorkbook(context.Background(), model, path))

	f, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	want := []string{
		"datos_limpios",
		"ResumenCategoria",
		"ResumenRegion",
		"ResumenCliente",
		"TendenciaMensual",
		"TopProductos",
		"Rechazados",
		"Metrics",
	}
	for _, name := range want {
		found := false
		for _, sheet := range sheets {
			if sheet == name {
				found = true
				break
			}
		}
		assert.True(t, found, "missing sheet %s", name)
	}

	// The excelize default sheet must be gone.
	idx, err := f.GetSheetIndex("Sheet1")
	assert.NoError(t, err)
	assert.Equal(t, idx, -1)

	t.Run("records sheet", func(t *testing.T) {
		header, err := f.GetCellValue("datos_limpios", "A1")
		assert.NoError(t, err)
		assert.Equal(t, header, "source_index")

		// Row 2 is the first record: source index 0, accepted.
		disposition, err := f.GetCellValue("datos_limpios", "L2")
		assert.NoError(t, err)
		assert.Equal(t, disposition, "accepted")
	})

	t.Run("rejected sheet", func(t *testing.T) {
		rows, err := f.GetRows("Rechazados")
		assert.NoError(t, err)
		// Header plus the dateless record.
		assert.Equal(t, len(rows), 2)
	})

	t.Run("category summary", func(t *testing.T) {
		rows, err := f.GetRows("ResumenCategoria")
		assert.NoError(t, err)
		assert.Equal(t, rows[0][0], "category")
		assert.Equal(t, rows[1][0], "Electronics")
		assert.Equal(t, rows[1][2], "910") // revenue_total
	})

	t.Run("metrics sheet", func(t *testing.T) {
		rows, err := f.GetRows("Metrics")
		assert.NoError(t, err)

		metrics := make(map[string]string)
		for _, row := range rows {
			if len(row) >= 2 {
				metrics[row[0]] = row[1]
			}
		}
		assert.Equal(t, metrics["input"], "ventas.csv")
		assert.Equal(t, metrics["rows_original"], "3")
		assert.Equal(t, metrics["accepted"], "2")
		assert.Equal(t, metrics["rejected"], "1")
		assert.NotEqual(t, metrics["batch_id"], "")
	})
}

func TestWriteWorkbookWithoutRejected(t *testing.T) {
	model := buildModel(t, []dataset.Raw{
		{"transaction_id": "TX-1", "fecha": "2024-03-15", "producto": "Laptop", "cantidad": "1", "importe": "900.00"},
	})
	path := filepath.Join(t.TempDir(), "reporte.xlsx")

	assert.NoError(t, WriteWorkbook(context.Background(), model, path))

	f, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	defer func() { _ = f.Close() }()

	idx, err := f.GetSheetIndex("Rechazados")
	assert.NoError(t, err)
	assert.Equal(t, idx, -1)
}

func TestWriteWorkbookCreatesDirectories(t *testing.T) {
	model := buildModel(t, testRows())
	path := filepath.Join(t.TempDir(), "nested", "out", "reporte.xlsx")

	assert.NoError(t, WriteWorkbook(context.Background(), model, path))

	f, err := excelize.OpenFile(path)
	assert.NoError(t, err)
	assert.NoError(t, f.Close())
}
