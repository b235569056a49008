package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/builders"
)

var _ core.Session = (*postgresSession)(nil)

type postgresSession struct {
	c    *builders.Client
	conn *builders.Conn
}

func (s *postgresSession) Query(ctx context.Context, statement string) (core.ResultStream, error) {
	if isRowReturning(statement) {
		stream, err := s.conn.Query(ctx, statement)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	stream, err := s.conn.Exec(ctx, statement)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

func (s *postgresSession) ListSchema(ctx context.Context) ([]*core.SchemaObject, error) {
	stream, err := s.conn.Query(ctx, `
		SELECT table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type IN ('BASE TABLE', 'VIEW')
		ORDER BY table_name`)
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
		if row[1].Text() == "VIEW" {
			typ = core.SchemaObjectView
		}

		objects = append(objects, &core.SchemaObject{
			Name: row[0].Text(),
			Type: typ,
		})
	}

	for _, object := range objects {
		columns, err := s.listColumns(ctx, object.Name)
		if err != nil {
			return nil, err
		}
		object.Columns = columns
	}

	return objects, nil
}

func (s *postgresSession) listColumns(ctx context.Context, table string) ([]core.SchemaColumn, error) {
	quoted := strings.ReplaceAll(table, "'", "''")

	primary, err := s.primaryKeys(ctx, quoted)
	if err != nil {
		return nil, err
	}

	stream, err := s.conn.Query(ctx, fmt.Sprintf(`
		SELECT column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public' AND table_name = '%s'
		ORDER BY ordinal_position`, quoted))
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
		if len(row) < 3 {
			continue
		}

		name := row[0].Text()
		columns = append(columns, core.SchemaColumn{
			Name:       name,
			Type:       row[1].Text(),
			Nullable:   row[2].Text() == "YES",
			PrimaryKey: primary[name],
		})
	}

	return columns, nil
}

func (s *postgresSession) primaryKeys(ctx context.Context, quotedTable string) (map[string]bool, error) {
	stream, err := s.conn.Query(ctx, fmt.Sprintf(`
		SELECT a.attname
		FROM pg_index i
		JOIN pg_attribute a ON a.attrelid = i.indrelid AND a.attnum = ANY(i.indkey)
		WHERE i.indrelid = '"%s"'::regclass AND i.indisprimary`, quotedTable))
	if err != nil {
		// tables without an oid-resolvable name just have no pk info
		return map[string]bool{}, nil
	}
	defer stream.Close()

	primary := make(map[string]bool)
	for stream.HasNext() {
		row, err := stream.Next()
		if err != nil {
			return nil, fmt.Errorf("stream.Next: %w", err)
		}
		if len(row) > 0 {
			primary[row[0].Text()] = true
		}
	}

	return primary, nil
}

func (s *postgresSession) Close() error {
	if err := s.conn.Close(); err != nil {
		_ = s.c.Close()
		return err
	}
	return s.c.Close()
}
