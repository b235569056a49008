package format

import (
	"encoding/json"
	"fmt"

	"github.com/tabq-dev/tabq/core"
)

// PageJSON serializes a whole page as a JSON array of column->value
// objects.
func PageJSON(page *core.ResultPage) ([]byte, error) {
	data := make([]map[string]any, 0, len(page.Rows))
	for _, row := range page.Rows {
		data = append(data, rowObject(page.Columns, row))
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %w", err)
	}

	return out, nil
}

// RowJSON serializes one row as a single column->value object.
func RowJSON(columns []core.Column, row core.Row) ([]byte, error) {
	out, err := json.MarshalIndent(rowObject(columns, row), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %w", err)
	}

	return out, nil
}

// CellJSON serializes a single cell value.
func CellJSON(cell core.Cell) ([]byte, error) {
	out, err := json.MarshalIndent(cell.JSONValue(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("json.MarshalIndent: %w", err)
	}

	return out, nil
}

func rowObject(columns []core.Column, row core.Row) map[string]any {
	record := make(map[string]any, len(row))
	for i, cell := range row {
		var name string
		if i < len(columns) {
			name = columns[i].Name
		} else {
			name = fmt.Sprintf("<unknown-field-%d>", i)
		}
		record[name] = cell.JSONValue()
	}
	return record
}
