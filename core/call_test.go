package core_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/mock"
)

// eventRecorder collects call state transitions for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	states []core.CallState
}

func (r *eventRecorder) record(state core.CallState, _ *core.Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *eventRecorder) recorded() []core.CallState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.CallState, len(r.states))
	copy(out, r.states)
	return out
}

func newTestHandle(t *testing.T, adapter *mock.Adapter) *core.Handle {
	t.Helper()

	descriptor := core.NewDescriptor("test.db")
	session, err := adapter.Connect(context.Background(), descriptor)
	require.NoError(t, err)

	handle := core.NewHandle(descriptor, session)
	t.Cleanup(func() { _ = handle.Close() })
	return handle
}

func TestCallSuccess(t *testing.T) {
	handle := newTestHandle(t, mock.NewAdapter(mock.NewRows(0, 5)))
	rec := new(eventRecorder)

	call := handle.Execute("SELECT * FROM numbers", 100, rec.record)
	require.NotNil(t, call)

	<-call.Done()
	require.NoError(t, call.Err())

	page, err := call.Result().Page(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, len(page.Rows))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, -1, page.NextOffset)

	// the final event is delivered asynchronously
	require.Eventually(t, func() bool {
		states := rec.recorded()
		return len(states) > 0 && states[len(states)-1].IsTerminal()
	}, time.Second, time.Millisecond)

	assert.Equal(t,
		[]core.CallState{core.CallStateExecuting, core.CallStateRetrieving, core.CallStateDone},
		rec.recorded())

	assert.Equal(t, "SELECT * FROM numbers", call.GetQuery())
	assert.NotEmpty(t, call.GetID())
	assert.Greater(t, call.GetTimeTaken(), time.Duration(0))
}

func TestCallExecutionFailure(t *testing.T) {
	boom := errors.New("boom")
	adapter := mock.NewAdapter(nil,
		mock.AdapterWithQuerySideEffect("bad statement", func(context.Context) error {
			return boom
		}),
	)
	handle := newTestHandle(t, adapter)
	rec := new(eventRecorder)

	call := handle.Execute("bad statement", 100, rec.record)
	<-call.Done()

	require.Error(t, call.Err())
	assert.ErrorIs(t, call.Err(), boom)

	require.Eventually(t, func() bool {
		states := rec.recorded()
		return len(states) > 0 && states[len(states)-1] == core.CallStateExecutingFailed
	}, time.Second, time.Millisecond)
}

func TestCallRetrievalFailure(t *testing.T) {
	adapter := mock.NewAdapter(mock.NewRows(0, 5),
		mock.AdapterWithResultStreamOpts(
			mock.ResultStreamWithNextError(errors.New("stream broke")),
		),
	)
	handle := newTestHandle(t, adapter)
	rec := new(eventRecorder)

	call := handle.Execute("SELECT 1", 100, rec.record)
	<-call.Done()

	require.Error(t, call.Err())

	require.Eventually(t, func() bool {
		states := rec.recorded()
		return len(states) > 0 && states[len(states)-1] == core.CallStateRetrievingFailed
	}, time.Second, time.Millisecond)
}

func TestCallCancel(t *testing.T) {
	// a slow stream keeps the call in the retrieving phase long enough
	// for the cancel to land between chunk fetches
	adapter := mock.NewAdapter(mock.NewRows(0, 10_000),
		mock.AdapterWithResultStreamOpts(
			mock.ResultStreamWithNextSleep(time.Millisecond),
		),
	)
	handle := newTestHandle(t, adapter)

	call := handle.Execute("SELECT * FROM big", 10, nil)

	time.Sleep(20 * time.Millisecond)
	call.Cancel()
	<-call.Done()

	require.Error(t, call.Err())
	assert.True(t, core.IsQueryError(call.Err(), core.QueryCancelled))
	assert.Less(t, call.Result().Len(), 10_000)
}

func TestCallCancelAfterDoneIsNoop(t *testing.T) {
	handle := newTestHandle(t, mock.NewAdapter(mock.NewRows(0, 3)))

	call := handle.Execute("SELECT 1", 100, nil)
	<-call.Done()
	require.NoError(t, call.Err())

	// repeated cancels after completion change nothing
	call.Cancel()
	call.Cancel()
	assert.NoError(t, call.Err())
}
