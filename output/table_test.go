package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"

	"github.com/nroldan/ventas/aggregate"
)

func sampleTable() *aggregate.Table {
	return &aggregate.Table{
		Name:       "ResumenCategoria",
		Dimensions: []string{"category"},
		Measures:   []string{"pedidos", "revenue_total"},
		Rows: []aggregate.Row{
			{Keys: []string{"Electronics"}, Values: []decimal.Decimal{decimal.NewFromInt(2), decimal.RequireFromString("910.00")}},
			{Keys: []string{"Furniture"}, Values: []decimal.Decimal{decimal.NewFromInt(1), decimal.RequireFromString("150.00")}},
		},
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sampleTable(), NewStyles(false))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")

	// Title, header, separator, and one line per row.
	assert.Equal(t, len(lines), 5)
	assert.Equal(t, lines[0], "ResumenCategoria")
	assert.True(t, strings.Contains(lines[1], "category"))
	assert.True(t, strings.Contains(lines[1], "revenue_total"))
	assert.True(t, strings.Contains(lines[3], "Electronics"))
	assert.True(t, strings.Contains(lines[4], "Furniture"))
}

func TestRenderTableAlignsMeasuresRight(t *testing.T) {
	var buf bytes.Buffer
	RenderTable(&buf, sampleTable(), NewStyles(false))

	lines := strings.Split(buf.String(), "\n")
	row := lines[3] // Electronics

	// The measure column is right-aligned against its header, so the cell
	// value ends where the header ends.
	header := lines[1]
	assert.Equal(t, len(row), len(header))
	assert.True(t, strings.HasSuffix(strings.TrimRight(header, " "), "revenue_total"))
	assert.True(t, strings.HasSuffix(row, "910"))
}

func TestStylesDisabledPassThrough(t *testing.T) {
	styles := NewStyles(false)
	assert.Equal(t, styles.Header("title"), "title")
	assert.Equal(t, styles.Dim("----"), "----")
}
