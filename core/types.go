package core

import "context"

type (
	// Row is one ordered sequence of typed cells.
	Row []Cell

	// Column is the metadata of one result column.
	Column struct {
		Name string
		Type string
	}

	// ResultStream is a finite, non-restartable lazy row sequence.
	// Consuming it advances the underlying cursor.
	ResultStream interface {
		Columns() []Column
		Next() (Row, error)
		HasNext() bool
		Close()
	}
)

type SchemaObjectType int

const (
	SchemaObjectTable SchemaObjectType = iota
	SchemaObjectView
)

func (s SchemaObjectType) String() string {
	switch s {
	case SchemaObjectTable:
		return "table"
	case SchemaObjectView:
		return "view"
	default:
		return ""
	}
}

type (
	// SchemaColumn describes one column of a table or view.
	SchemaColumn struct {
		Name       string
		Type       string
		Nullable   bool
		PrimaryKey bool
	}

	// SchemaObject is the normalized description of one table or view,
	// derived on demand through backend-native introspection.
	SchemaObject struct {
		Name    string
		Type    SchemaObjectType
		Columns []SchemaColumn
	}
)

type (
	// Adapter opens driver sessions for one backend kind.
	Adapter interface {
		Connect(ctx context.Context, descriptor Descriptor) (Session, error)
	}

	// Session is one live driver session.
	Session interface {
		ListSchema(ctx context.Context) ([]*SchemaObject, error)
		Query(ctx context.Context, statement string) (ResultStream, error)
		Close() error
	}
)
