package format

import (
	"fmt"
	"strings"

	"github.com/tabq-dev/tabq/core"
)

// RowDetail renders all columns of one row in label: value form.
func RowDetail(columns []core.Column, row core.Row) string {
	var b strings.Builder
	for i, cell := range row {
		name := fmt.Sprintf("<unknown-field-%d>", i)
		if i < len(columns) {
			name = columns[i].Name
		}
		fmt.Fprintf(&b, "%s: %s\n", name, cell.String())
	}
	return b.String()
}

// CellDetail renders a single value in full, without truncation.
func CellDetail(cell core.Cell) string {
	return cell.String()
}
