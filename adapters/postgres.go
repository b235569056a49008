package adapters

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/builders"
)

var _ core.Adapter = (*Postgres)(nil)

type Postgres struct{}

func (p *Postgres) Connect(ctx context.Context, descriptor core.Descriptor) (core.Session, error) {
	if descriptor.Kind() != core.KindPostgres {
		return nil, core.NewConnectionError(core.ConnInvalidDescriptor,
			fmt.Errorf("not a postgres descriptor: kind %s", descriptor.Kind()))
	}

	db, err := sql.Open("pgx", descriptor.Identifier())
	if err != nil {
		return nil, core.NewConnectionError(core.ConnInvalidDescriptor, err)
	}

	client := builders.NewClient(db,
		builders.WithConverter(postgresConvert),
		builders.WithClassifier(classifyPostgresError),
	)

	if err := client.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, classifyPostgresConnectError(err)
	}

	// one dedicated connection per handle, serialized by the handle
	conn, err := client.Conn(ctx)
	if err != nil {
		_ = client.Close()
		return nil, classifyPostgresConnectError(err)
	}

	return &postgresSession{c: client, conn: conn}, nil
}

// postgresConvert maps the stdlib pgx driver values onto cells. Bytes
// are a blob only for BYTEA columns; every other byte-backed wire form
// (numeric, json, uuid, ...) renders as text.
func postgresConvert(val any, dbType string) core.Cell {
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
	case time.Time:
		return core.TextCell(v.Format(time.RFC3339))
	case []byte:
		if strings.EqualFold(dbType, "BYTEA") {
			return core.BlobCell(v)
		}
		return core.TextCell(string(v))
	default:
		return core.TextCell(fmt.Sprintf("%v", v))
	}
}

func classifyPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var qerr *core.QueryError
	var cerr *core.ConnectionError
	if errors.As(err, &qerr) || errors.As(err, &cerr) {
		return err
	}

	if errors.Is(err, context.Canceled) {
		return core.NewQueryError(core.QueryCancelled, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "42601":
			return core.NewQueryError(core.QuerySyntax, err)
		case pgErr.Code == "57014":
			return core.NewQueryError(core.QueryCancelled, err)
		case strings.HasPrefix(pgErr.Code, "28"):
			return core.NewConnectionError(core.ConnAuthFailed, err)
		case strings.HasPrefix(pgErr.Code, "08"):
			return core.NewQueryError(core.QueryConnectionLost, err)
		default:
			return core.NewQueryError(core.QueryExecution, err)
		}
	}

	var netErr net.Error
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr) {
		return core.NewQueryError(core.QueryConnectionLost, err)
	}

	return core.NewQueryError(core.QueryExecution, err)
}

// classifyPostgresConnectError maps connect-time failures: bad
// credentials are AuthFailed, everything else is Unreachable.
func classifyPostgresConnectError(err error) error {
	if core.IsConnectionError(err, core.ConnAuthFailed) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "28") {
		return core.NewConnectionError(core.ConnAuthFailed, err)
	}

	return core.NewConnectionError(core.ConnUnreachable, err)
}
