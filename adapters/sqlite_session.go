package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/builders"
)

var _ core.Session = (*sqliteSession)(nil)

type sqliteSession struct {
	c    *builders.Client
	conn *builders.Conn
}

func (s *sqliteSession) Query(ctx context.Context, statement string) (core.ResultStream, error) {
	if isRowReturning(statement) {
		stream, err := s.conn.Query(ctx, statement)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	stream, err := s.conn.Exec(ctx, statement)
	if err != nil {
		// some builds report affected counts as unsupported
		if strings.Contains(err.Error(), "RowsAffected") {
			fallback, ferr := s.conn.Query(ctx, "select changes() as 'Rows Affected'")
			if ferr != nil {
				return nil, ferr
			}
			return fallback, nil
		}
		return nil, err
	}
	return stream, nil
}

func (s *sqliteSession) ListSchema(ctx context.Context) ([]*core.SchemaObject, error) {
	stream, err := s.conn.Query(ctx,
		"SELECT name, type FROM sqlite_master WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("conn.Query: %w", err)
	}
	defer stream.Close()

	var objects []*core.SchemaObject
	for stream.HasNext() {
		row, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("stream.Next: %w", err)
		}
		if len(row) < 2 {
			continue
		}

		typ := core.SchemaObjectTable
		if row[1].Text() == "view" {
			typ = core.SchemaObjectView
		}

		object := &core.SchemaObject{
			Name: row[0].Text(),
			Type: typ,
		}

		columns, err := s.listColumns(ctx, object.Name)
		if err != nil {
			return nil, err
		}
		object.Columns = columns

		objects = append(objects, object)
	}

	return objects, nil
}

func (s *sqliteSession) listColumns(ctx context.Context, table string) ([]core.SchemaColumn, error) {
	statement := fmt.Sprintf(
		`SELECT name, type, "notnull", pk FROM pragma_table_info('%s')`,
		strings.ReplaceAll(table, "'", "''"))

	stream, err := s.conn.Query(ctx, statement)
	if err != nil {
		return nil, fmt.Errorf("conn.Query: %w", err)
	}
	defer stream.Close()

	var columns []core.SchemaColumn
	for stream.HasNext() {
		row, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("stream.Next: %w", err)
		}
		if len(row) < 4 {
			continue
		}

		columns = append(columns, core.SchemaColumn{
			Name:       row[0].Text(),
			Type:       row[1].Text(),
			Nullable:   row[2].Int() == 0,
			PrimaryKey: row[3].Int() != 0,
		})
	}

	return columns, nil
}

func (s *sqliteSession) Close() error {
	if err := s.conn.Close(); err != nil {
		_ = s.c.Close()
		return err
	}
	return s.c.Close()
}
