package adapters

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/builders"
)

var _ core.Adapter = (*SQLite)(nil)

type SQLite struct{}

func (s *SQLite) Connect(ctx context.Context, descriptor core.Descriptor) (core.Session, error) {
	if descriptor.Kind() != core.KindSqlite {
		return nil, core.NewConnectionError(core.ConnInvalidDescriptor,
			fmt.Errorf("not a sqlite descriptor: kind %s", descriptor.Kind()))
	}

	db, err := sql.Open("sqlite", descriptor.Identifier())
	if err != nil {
		return nil, core.NewConnectionError(core.ConnInvalidDescriptor, err)
	}

	client := builders.NewClient(db,
		builders.WithConverter(sqliteConvert),
		builders.WithClassifier(classifySQLiteError),
	)

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, core.NewConnectionError(core.ConnUnreachable, err)
	}

	// one dedicated connection per handle, serialized by the handle
	conn, err := client.Conn(ctx)
	if err != nil {
		_ = client.Close()
		return nil, core.NewConnectionError(core.ConnUnreachable, err)
	}

	return &sqliteSession{c: client, conn: conn}, nil
}

// sqliteConvert maps sqlite's dynamic storage classes onto cells. There
// is no boolean storage class, so boolean cells never originate here.
func sqliteConvert(val any, _ string) core.Cell {
	switch v := val.(type) {
	case nil:
		return core.NullCell()
	case int64:
		return core.IntCell(v)
	case float64:
		return core.FloatCell(v)
	case string:
		return core.TextCell(v)
	case []byte:
		return core.BlobCell(v)
	default:
		return core.TextCell(fmt.Sprintf("%v", v))
	}
}

func classifySQLiteError(err error) error {
	if err == nil {
		return nil
	}

	var qerr *core.QueryError
	var cerr *core.ConnectionError
	if errors.As(err, &qerr) || errors.As(err, &cerr) {
		return err
	}

	switch {
	case errors.Is(err, context.Canceled):
		return core.NewQueryError(core.QueryCancelled, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, sql.ErrConnDone):
		return core.NewQueryError(core.QueryConnectionLost, err)
	case strings.Contains(err.Error(), "syntax error"):
		return core.NewQueryError(core.QuerySyntax, err)
	default:
		return core.NewQueryError(core.QueryExecution, err)
	}
}
