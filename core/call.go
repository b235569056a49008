package core

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type (
	CallID string

	// Call is one asynchronous execution of one statement. It owns the
	// goroutine that runs the statement and drains the stream into a
	// Result cache, page-size rows at a time.
	Call struct {
		id        CallID
		query     string
		pageSize  int
		timestamp time.Time

		mu        sync.Mutex
		state     CallState
		timeTaken time.Duration
		err       error

		result     *Result
		cancelFunc func()
		done       chan struct{}
	}
)

// newCall spawns the executor in the background and returns immediately.
// finally is invoked exactly once after the call reaches a terminal state.
func newCall(executor func(context.Context) (ResultStream, error), query string, pageSize int, finally func(), onEvent func(CallState, *Call)) *Call {
	if pageSize < 1 {
		pageSize = 1
	}

	c := &Call{
		id:       CallID(uuid.New().String()),
		query:    query,
		pageSize: pageSize,
		state:    CallStateUnknown,

		result: new(Result),
		done:   make(chan struct{}),
	}

	eventsCh := make(chan CallState, 10)

	ctx, cancel := context.WithCancel(context.Background())
	c.timestamp = time.Now()
	var cancelOnce sync.Once
	c.cancelFunc = func() {
		cancelOnce.Do(func() {
			cancel()
			eventsCh <- CallStateCanceled
		})
	}

	// event handler; first terminal state wins and stops the loop, so
	// eventsCh is never closed - a late Cancel lands in the buffer.
	go func() {
		for state := range eventsCh {
			c.mu.Lock()
			if c.state.IsTerminal() {
				c.mu.Unlock()
				return
			}
			c.state = state
			c.mu.Unlock()

			if onEvent != nil {
				onEvent(state, c)
			}
		}
	}()

	go func() {
		defer func() {
			close(c.done)
			if finally != nil {
				finally()
			}
		}()

		fail := func(err error, state CallState) {
			c.mu.Lock()
			c.timeTaken = time.Since(c.timestamp)
			if ctx.Err() != nil {
				err = NewQueryError(QueryCancelled, context.Cause(ctx))
				state = CallStateCanceled
			}
			c.err = err
			c.mu.Unlock()
			eventsCh <- state
		}

		eventsCh <- CallStateExecuting
		stream, err := executor(ctx)
		if err != nil {
			fail(err, CallStateExecutingFailed)
			return
		}

		err = c.result.Drain(ctx, stream, c.pageSize, func() { eventsCh <- CallStateRetrieving })
		if err != nil {
			fail(err, CallStateRetrievingFailed)
			return
		}

		c.mu.Lock()
		c.timeTaken = time.Since(c.timestamp)
		c.mu.Unlock()
		eventsCh <- CallStateDone
	}()

	return c
}

func (c *Call) GetID() CallID { return c.id }

func (c *Call) GetQuery() string { return c.query }

func (c *Call) GetState() CallState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Call) GetTimeTaken() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeTaken
}

func (c *Call) GetTimestamp() time.Time { return c.timestamp }

func (c *Call) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Done returns a channel that is closed when the call reaches a terminal
// state and its result is fully drained.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Cancel requests cooperative cancellation. The cancellation context is
// polled between page fetches, so latency is bounded by one page fetch.
func (c *Call) Cancel() {
	c.mu.Lock()
	terminal := c.state.IsTerminal()
	c.mu.Unlock()
	if terminal {
		return
	}
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
}

// Result returns the (possibly still draining) result cache.
func (c *Call) Result() *Result {
	return c.result
}
