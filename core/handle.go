package core

import (
	"context"
	"fmt"
	"sync"
)

// Handle is one live, shared database session bound to a descriptor.
// Handles are owned exclusively by the registry; tabs reach them only
// through identifier lookup.
//
// Statement execution is serialized: each call chains on the previous
// call's completion, so concurrent executions sharing the handle queue
// in submission order. Neither driver supports safe concurrent
// statements over one session.
type Handle struct {
	descriptor Descriptor
	session    Session

	queueMu sync.Mutex
	// tail is the completion signal of the most recently submitted call.
	tail chan struct{}

	schemaMu sync.Mutex
	schema   []*SchemaObject

	closeOnce sync.Once
	closeErr  error
}

func NewHandle(descriptor Descriptor, session Session) *Handle {
	return &Handle{
		descriptor: descriptor,
		session:    session,
	}
}

func (h *Handle) Descriptor() Descriptor { return h.descriptor }

func (h *Handle) Kind() Kind { return h.descriptor.Kind() }

// Execute starts an asynchronous call for the statement. The call's
// place in the execution queue is claimed here, synchronously, so
// back-to-back submissions are served in submission order; the wait
// itself happens inside the call's goroutine and Execute never blocks
// the caller.
func (h *Handle) Execute(statement string, pageSize int, onEvent func(CallState, *Call)) *Call {
	h.queueMu.Lock()
	prev := h.tail
	turn := make(chan struct{})
	h.tail = turn
	h.queueMu.Unlock()

	executor := func(ctx context.Context) (ResultStream, error) {
		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return nil, NewQueryError(QueryCancelled, ctx.Err())
			}
		}

		stream, err := h.session.Query(ctx, statement)
		if err != nil {
			return nil, err
		}
		return stream, nil
	}

	finally := func() {
		if prev == nil {
			close(turn)
			return
		}
		select {
		case <-prev:
			close(turn)
		default:
			// cancelled while queued: the turn passes to the successor
			// only once the predecessor has finished
			go func() {
				<-prev
				close(turn)
			}()
		}
	}

	return newCall(executor, statement, pageSize, finally, onEvent)
}

// Schema introspects the backend, caching the answer for the handle's
// lifetime. Refresh bypasses the cache.
func (h *Handle) Schema(ctx context.Context) ([]*SchemaObject, error) {
	h.schemaMu.Lock()
	defer h.schemaMu.Unlock()

	if h.schema != nil {
		return h.schema, nil
	}

	schema, err := h.session.ListSchema(ctx)
	if err != nil {
		return nil, fmt.Errorf("session.ListSchema: %w", err)
	}

	h.schema = schema
	return schema, nil
}

// Refresh drops the cached schema and introspects again.
func (h *Handle) Refresh(ctx context.Context) ([]*SchemaObject, error) {
	h.schemaMu.Lock()
	h.schema = nil
	h.schemaMu.Unlock()
	return h.Schema(ctx)
}

// Close releases driver resources. Idempotent.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.session.Close()
	})
	return h.closeErr
}
