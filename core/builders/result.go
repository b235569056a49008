package builders

import (
	"errors"
	"sync"

	"github.com/tabq-dev/tabq/core"
)

var _ core.ResultStream = (*ResultStream)(nil)

// ResultStream fills core.ResultStream for both sql backends.
type ResultStream struct {
	next    func() (core.Row, error)
	hasNext func() bool
	close   func()
	columns []core.Column
	once    sync.Once
}

func (r *ResultStream) Columns() []core.Column {
	return r.columns
}

func (r *ResultStream) HasNext() bool {
	return r.hasNext()
}

func (r *ResultStream) Next() (core.Row, error) {
	row, err := r.next()
	if err != nil || row == nil {
		r.Close()
		return nil, err
	}
	return row, nil
}

func (r *ResultStream) Close() {
	r.once.Do(r.close)
	r.hasNext = func() bool { return false }
}

// ResultStreamBuilder builds the stream
type ResultStreamBuilder struct {
	next    func() (core.Row, error)
	hasNext func() bool
	columns []core.Column
	close   func()
}

func NewResultStreamBuilder() *ResultStreamBuilder {
	return &ResultStreamBuilder{
		next:    func() (core.Row, error) { return nil, errors.New("no next row") },
		hasNext: func() bool { return false },
		close:   func() {},
	}
}

func (b *ResultStreamBuilder) WithNextFunc(fn func() (core.Row, error), has func() bool) *ResultStreamBuilder {
	b.next = fn
	b.hasNext = has
	return b
}

func (b *ResultStreamBuilder) WithColumns(columns []core.Column) *ResultStreamBuilder {
	b.columns = columns
	return b
}

func (b *ResultStreamBuilder) WithCloseFunc(fn func()) *ResultStreamBuilder {
	b.close = fn
	return b
}

func (b *ResultStreamBuilder) Build() *ResultStream {
	return &ResultStream{
		next:    b.next,
		hasNext: b.hasNext,
		columns: b.columns,
		close:   b.close,
	}
}
