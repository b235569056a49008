package mock

import (
	"errors"
	"fmt"
	"time"

	"github.com/tabq-dev/tabq/core"
)

func newNext(rows []core.Row) (func() (core.Row, error), func() bool) {
	index := 0

	hasNext := func() bool {
		return index < len(rows)
	}

	next := func() (core.Row, error) {
		if !hasNext() {
			return nil, errors.New("no next row")
		}

		row := rows[index]
		index++
		return row, nil
	}

	return next, hasNext
}

var _ core.ResultStream = (*ResultStream)(nil)

type ResultStream struct {
	next    func() (core.Row, error)
	hasNext func() bool
	config  *resultStreamConfig
}

func makeDefaultColumns(rows []core.Row) []core.Column {
	var columns []core.Column
	if len(rows) > 0 {
		for i := range rows[0] {
			columns = append(columns, core.Column{Name: fmt.Sprintf("column_%d", i)})
		}
	}
	return columns
}

// NewResultStream returns a mocked result stream with the provided rows.
// Unless overridden, columns match the width of the first row in form of
// <column_0>, <column_1>, etc.
func NewResultStream(rows []core.Row, opts ...ResultStreamOption) *ResultStream {
	config := &resultStreamConfig{
		nextSleep: 0,
		columns:   makeDefaultColumns(rows),
	}
	for _, opt := range opts {
		opt(config)
	}

	next, hasNext := newNext(rows)

	return &ResultStream{
		next:    next,
		hasNext: hasNext,
		config:  config,
	}
}

func (rs *ResultStream) Columns() []core.Column {
	return rs.config.columns
}

func (rs *ResultStream) Next() (core.Row, error) {
	time.Sleep(rs.config.nextSleep)
	if rs.config.nextErr != nil {
		return nil, rs.config.nextErr
	}
	return rs.next()
}

func (rs *ResultStream) HasNext() bool {
	return rs.hasNext()
}

func (rs *ResultStream) Close() {}

// NewRows returns a slice of rows in form of:
//
//	{ <index>(integer), "row_<index>"(text) }
//
// where the first index is "from" and the last one is one less than "to".
func NewRows(from, to int) []core.Row {
	var rows []core.Row

	for i := from; i < to; i++ {
		rows = append(rows, core.Row{
			core.IntCell(int64(i)),
			core.TextCell(fmt.Sprintf("row_%d", i)),
		})
	}
	return rows
}
