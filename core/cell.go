package core

import (
	"fmt"
	"strconv"
)

type CellKind int

const (
	CellNull CellKind = iota
	CellInt
	CellFloat
	CellText
	CellBlob
	CellBool
)

func (k CellKind) String() string {
	switch k {
	case CellNull:
		return "null"
	case CellInt:
		return "integer"
	case CellFloat:
		return "float"
	case CellText:
		return "text"
	case CellBlob:
		return "blob"
	case CellBool:
		return "boolean"
	default:
		return "unknown"
	}
}

// Cell is the shared typed value representation. Adapters coerce every
// driver value into a Cell at the boundary, so no backend-specific type
// leaks past the adapters package.
type Cell struct {
	kind CellKind
	i    int64
	f    float64
	s    string
	b    []byte
	t    bool
}

func NullCell() Cell { return Cell{kind: CellNull} }

func IntCell(v int64) Cell { return Cell{kind: CellInt, i: v} }

func FloatCell(v float64) Cell { return Cell{kind: CellFloat, f: v} }

func TextCell(v string) Cell { return Cell{kind: CellText, s: v} }

func BlobCell(v []byte) Cell { return Cell{kind: CellBlob, b: v} }

func BoolCell(v bool) Cell { return Cell{kind: CellBool, t: v} }

func (c Cell) Kind() CellKind { return c.kind }

func (c Cell) IsNull() bool { return c.kind == CellNull }

func (c Cell) Int() int64 { return c.i }

func (c Cell) Float() float64 { return c.f }

func (c Cell) Text() string { return c.s }

func (c Cell) Blob() []byte { return c.b }

func (c Cell) Bool() bool { return c.t }

// String renders the cell for display. Blobs render as a size placeholder,
// never raw bytes.
func (c Cell) String() string {
	switch c.kind {
	case CellNull:
		return "NULL"
	case CellInt:
		return strconv.FormatInt(c.i, 10)
	case CellFloat:
		return strconv.FormatFloat(c.f, 'g', -1, 64)
	case CellText:
		return c.s
	case CellBlob:
		return fmt.Sprintf("[BLOB %d bytes]", len(c.b))
	case CellBool:
		return strconv.FormatBool(c.t)
	default:
		return ""
	}
}

// JSONValue returns the value the cell serializes to in structural JSON.
func (c Cell) JSONValue() any {
	switch c.kind {
	case CellNull:
		return nil
	case CellInt:
		return c.i
	case CellFloat:
		return c.f
	case CellText:
		return c.s
	case CellBlob:
		return c.String()
	case CellBool:
		return c.t
	default:
		return nil
	}
}
