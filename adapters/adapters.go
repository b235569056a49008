package adapters

import (
	"fmt"
	"strings"

	"github.com/tabq-dev/tabq/core"
)

// New resolves the backend adapter for a kind. The dispatch is closed:
// only the two members of core.Kind exist, anything else is a
// programming error.
func New(kind core.Kind) (core.Adapter, error) {
	switch kind {
	case core.KindSqlite:
		return &SQLite{}, nil
	case core.KindPostgres:
		return &Postgres{}, nil
	default:
		return nil, core.NewConnectionError(core.ConnInvalidDescriptor, fmt.Errorf("unknown backend kind: %d", kind))
	}
}

// rowReturning are the leading keywords of statements executed through
// QueryContext; everything else goes through ExecContext and surfaces
// as a "Rows Affected" result.
var rowReturning = map[string]struct{}{
	"select":  {},
	"with":    {},
	"values":  {},
	"explain": {},
	"pragma":  {},
	"show":    {},
	"table":   {},
}

func isRowReturning(statement string) bool {
	fields := strings.Fields(strings.ToLower(statement))
	if len(fields) == 0 {
		return true
	}
	_, ok := rowReturning[fields[0]]
	return ok
}
