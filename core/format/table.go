package format

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/tabq-dev/tabq/core"
)

// maxCellWidth is the grid truncation point; the cell-detail view exists
// to show the full value.
const maxCellWidth = 40

// Table renders a result page as a text grid with a leading row-index
// column. Cell text is truncated to maxCellWidth runes.
func Table(page *core.ResultPage) string {
	tableHeaders := []any{""}
	for _, col := range page.Columns {
		tableHeaders = append(tableHeaders, col.Name)
	}

	var tableRows []table.Row
	for i, row := range page.Rows {
		indexedRow := make([]any, 0, len(row)+1)
		indexedRow = append(indexedRow, page.Offset+i+1)
		for _, cell := range row {
			indexedRow = append(indexedRow, truncate(cell.String()))
		}
		tableRows = append(tableRows, table.Row(indexedRow))
	}

	t := table.NewWriter()
	t.AppendHeader(table.Row(tableHeaders))
	t.AppendRows(tableRows)
	t.AppendSeparator()
	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Style().Options.DrawBorder = false
	t.SuppressTrailingSpaces()

	return t.Render()
}

func truncate(s string) string {
	runes := []rune(s)
	if len(runes) <= maxCellWidth {
		return s
	}
	return string(runes[:maxCellWidth-1]) + "…"
}
