package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ResultPage is one bounded chunk of query output.
type ResultPage struct {
	Columns []Column
	Rows    []Row
	// Index is the page number, Offset the index of the first row.
	Index  int
	Offset int
	// NextOffset is the offset of the following page, or -1 when the
	// result is drained and this is the last page.
	NextOffset int
	// Total is the number of rows drained so far; final once the
	// result is drained.
	Total int
}

// Result is the drained form of a ResultStream. The owning call appends
// rows in page-size chunks while readers wait only until enough rows
// have been drained.
type Result struct {
	mu      sync.RWMutex
	columns []Column
	rows    []Row

	isDrained bool
	isFilled  bool
}

// Drain consumes the stream into the cache, chunk rows at a time,
// polling ctx between chunks. It may be called only once per result.
func (r *Result) Drain(ctx context.Context, stream ResultStream, chunk int, onStart func()) error {
	defer stream.Close()
	defer func() {
		r.mu.Lock()
		r.isDrained = true
		r.mu.Unlock()
	}()

	r.mu.Lock()
	r.columns = stream.Columns()
	r.rows = make([]Row, 0)
	r.isFilled = true
	r.mu.Unlock()

	if onStart != nil {
		onStart()
	}

	for {
		if err := ctx.Err(); err != nil {
			return NewQueryError(QueryCancelled, err)
		}

		n := 0
		for n < chunk && stream.HasNext() {
			row, err := stream.Next()
			if err != nil {
				return err
			}

			r.mu.Lock()
			r.rows = append(r.rows, row)
			r.mu.Unlock()
			n++
		}

		// stream exhausted
		if n < chunk {
			return nil
		}
	}
}

func (r *Result) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rows)
}

func (r *Result) IsEmpty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return !r.isFilled
}

func (r *Result) IsDrained() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isDrained
}

func (r *Result) Columns() []Column {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.columns
}

// Rows returns the [from, to) row range, blocking until the drain has
// either reached to or finished. Once drained, out-of-range indexes
// clamp to the drained length.
func (r *Result) Rows(ctx context.Context, from, to int) ([]Row, error) {
	if from < 0 || to < from {
		return nil, fmt.Errorf("invalid selection range: %d ... %d", from, to)
	}

	if err := r.wait(ctx, to); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	length := len(r.rows)
	if from > length {
		from = length
	}
	if to > length {
		to = length
	}

	return r.rows[from:to], nil
}

// Page returns the n-th page of the result, blocking like Rows.
func (r *Result) Page(ctx context.Context, n, pageSize int) (*ResultPage, error) {
	if n < 0 || pageSize < 1 {
		return nil, fmt.Errorf("invalid page request: page %d, size %d", n, pageSize)
	}

	offset := n * pageSize
	rows, err := r.Rows(ctx, offset, offset+pageSize)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	next := offset + len(rows)
	if r.isDrained && next >= len(r.rows) {
		next = -1
	}

	return &ResultPage{
		Columns:    r.columns,
		Rows:       rows,
		Index:      n,
		Offset:     offset,
		NextOffset: next,
		Total:      len(r.rows),
	}, nil
}

// wait blocks until the result is drained past to or ctx expires.
func (r *Result) wait(ctx context.Context, to int) error {
	for {
		r.mu.RLock()
		ready := r.isDrained || to <= len(r.rows)
		r.mu.RUnlock()
		if ready {
			return nil
		}

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("waiting for result rows: %w", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
