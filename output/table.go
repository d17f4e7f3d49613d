package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nroldan/ventas/aggregate"
)

// RenderTable writes an aggregate table as an aligned text table. Dimension
// columns are left-aligned, measure columns right-aligned.
func RenderTable(w io.Writer, t *aggregate.Table, styles *Styles) {
	dims := len(t.Dimensions)
	headers := append(append([]string{}, t.Dimensions...), t.Measures...)

	rows := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		cells := append([]string{}, row.Keys...)
		for _, v := range row.Values {
			cells = append(cells, v.String())
		}
		rows = append(rows, cells)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, cells := range rows {
		for i, cell := range cells {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	_, _ = fmt.Fprintf(w, "%s\n", styles.Header(t.Name))

	line := make([]string, len(headers))
	for i, h := range headers {
		line[i] = pad(h, widths[i], i >= dims)
	}
	_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(line, "  "))

	for i, width := range widths {
		line[i] = strings.Repeat("-", width)
	}
	_, _ = fmt.Fprintf(w, "  %s\n", styles.Dim(strings.Join(line, "  ")))

	for _, cells := range rows {
		for i, cell := range cells {
			line[i] = pad(cell, widths[i], i >= dims)
		}
		_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(line, "  "))
	}
}

// pad aligns a cell to the column width, right-aligning numeric columns.
func pad(s string, width int, right bool) string {
	if right {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}
