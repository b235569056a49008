package builders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tabq-dev/tabq/core"
)

// default sql client shared by both backends
type Client struct {
	db       *sql.DB
	convert  Converter
	classify Classifier
}

func NewClient(db *sql.DB, opts ...ClientOption) *Client {
	config := clientConfig{
		convert:  func(val any, _ string) core.Cell { return defaultConvert(val) },
		classify: func(err error) error { return err },
	}
	for _, opt := range opts {
		opt(&config)
	}

	return &Client{
		db:       db,
		convert:  config.convert,
		classify: config.classify,
	}
}

func (c *Client) Conn(ctx context.Context) (*Conn, error) {
	conn, err := c.db.Conn(ctx)
	if err != nil {
		return nil, c.classify(err)
	}

	return &Conn{
		conn:     conn,
		convert:  c.convert,
		classify: c.classify,
	}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return c.classify(err)
	}
	return nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

// connection to use for execution
type Conn struct {
	conn     *sql.Conn
	convert  Converter
	classify Classifier
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

// Exec executes a statement and returns a stream with a single row
// holding the number of affected rows.
func (c *Conn) Exec(ctx context.Context, statement string) (*ResultStream, error) {
	res, err := c.conn.ExecContext(ctx, statement)
	if err != nil {
		return nil, c.classify(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, c.classify(err)
	}

	rows := NewResultStreamBuilder().
		WithNextFunc(NextSingle(core.IntCell(affected))).
		WithColumns([]core.Column{{Name: "Rows Affected", Type: "INTEGER"}}).
		Build()

	return rows, nil
}

// Query executes a statement and returns a lazy result stream. Every
// scanned value is coerced into a typed cell by the converter.
func (c *Conn) Query(ctx context.Context, statement string) (*ResultStream, error) {
	dbRows, err := c.conn.QueryContext(ctx, statement)
	if err != nil {
		return nil, c.classify(err)
	}

	dbCols, err := dbRows.ColumnTypes()
	if err != nil {
		_ = dbRows.Close()
		return nil, c.classify(err)
	}

	columns := make([]core.Column, len(dbCols))
	for i, col := range dbCols {
		columns[i] = core.Column{
			Name: col.Name(),
			Type: col.DatabaseTypeName(),
		}
	}

	hasNextFunc := func() bool {
		if !dbRows.Next() {
			if !dbRows.NextResultSet() {
				return false
			}
			return dbRows.Next()
		}
		return true
	}

	nextFunc := func() (core.Row, error) {
		values := make([]any, len(dbCols))
		pointers := make([]any, len(dbCols))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := dbRows.Scan(pointers...); err != nil {
			return nil, c.classify(err)
		}

		row := make(core.Row, len(dbCols))
		for i := range dbCols {
			row[i] = c.convert(values[i], dbCols[i].DatabaseTypeName())
		}

		return row, nil
	}

	rows := NewResultStreamBuilder().
		WithNextFunc(nextFunc, hasNextFunc).
		WithColumns(columns).
		WithCloseFunc(func() {
			_ = dbRows.Close()
		}).
		Build()

	return rows, nil
}

// defaultConvert covers the driver value classes database/sql can
// produce without backend-specific knowledge.
func defaultConvert(val any) core.Cell {
	switch v := val.(type) {
	case nil:
		return core.NullCell()
	case int64:
		return core.IntCell(v)
	case float64:
		return core.FloatCell(v)
	case bool:
		return core.BoolCell(v)
	case string:
		return core.TextCell(v)
	case []byte:
		return core.BlobCell(v)
	default:
		return core.TextCell(fmt.Sprintf("%v", v))
	}
}
