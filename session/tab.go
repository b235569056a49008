package session

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tabq-dev/tabq/core"
)

// ViewMode is the current display interpretation of a tab's last result.
type ViewMode int

const (
	ViewTable ViewMode = iota
	ViewCellDetail
	ViewRowDetail
	ViewJSON
)

func (m ViewMode) String() string {
	switch m {
	case ViewTable:
		return "table"
	case ViewCellDetail:
		return "cell-detail"
	case ViewRowDetail:
		return "row-detail"
	case ViewJSON:
		return "json"
	default:
		return "unknown"
	}
}

// InvalidStateTransitionError rejects a view-mode request without
// touching tab state.
type InvalidStateTransitionError struct {
	From   ViewMode
	To     ViewMode
	Reason string
}

func (e *InvalidStateTransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s: %s", e.From, e.To, e.Reason)
}

type TabID string

// Tab is one query-editing and result-viewing unit. A tab always
// belongs to exactly one connection, held as an identifier (and its
// hash), never as a handle.
type Tab struct {
	id    TabID
	title string

	mu sync.RWMutex

	// connection is the plaintext identifier; empty when the tab was
	// restored from a hashed snapshot and not yet re-attached.
	connection    string
	connectionKey string

	query  string
	cursor int

	view   ViewMode
	selRow int
	selCol int

	call   *core.Call
	result *core.Result
	page   *core.ResultPage
	err    error

	disconnected bool
}

func newTab(title, identifier, key string) *Tab {
	return &Tab{
		id:            TabID(uuid.New().String()),
		title:         title,
		connection:    identifier,
		connectionKey: key,
		view:          ViewTable,
		selRow:        -1,
		selCol:        -1,
	}
}

func (t *Tab) ID() TabID { return t.id }

func (t *Tab) Title() string { return t.title }

func (t *Tab) Connection() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.connection
}

func (t *Tab) ConnectionKey() string { return t.connectionKey }

func (t *Tab) Query() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.query
}

func (t *Tab) Cursor() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cursor
}

func (t *Tab) View() ViewMode {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.view
}

// Selection returns the row and column the detail views operate on;
// -1 means nothing is selected.
func (t *Tab) Selection() (row, col int) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.selRow, t.selCol
}

// Page returns the tab's last materialized result page, nil when the
// last execution failed or nothing ran yet.
func (t *Tab) Page() *core.ResultPage {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.page
}

// Result returns the (possibly still draining) result cache of the last
// successful execution.
func (t *Tab) Result() *core.Result {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.result
}

// Err returns the tab's displayed error, nil when the last execution
// succeeded.
func (t *Tab) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Tab) IsDisconnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.disconnected
}

func (t *Tab) setQuery(query string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.query = query
}

func (t *Tab) setCursor(cursor int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cursor < 0 {
		cursor = 0
	}
	if cursor > len(t.query) {
		cursor = len(t.query)
	}
	t.cursor = cursor
}

// swapCall installs the new in-flight call and returns the one it
// supersedes, if any.
func (t *Tab) swapCall(call *core.Call) *core.Call {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.call
	t.call = call
	return prev
}

func (t *Tab) isCurrentCall(call *core.Call) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.call == call
}

// setResult installs a finished call's outcome. Until then the tab
// keeps showing whatever the previous run produced.
func (t *Tab) setResult(call *core.Call, page *core.ResultPage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.call != call {
		return
	}
	t.result = call.Result()
	t.page = page
	t.err = nil
	t.view = ViewTable
	t.selRow = -1
	t.selCol = -1
	t.disconnected = false
}

func (t *Tab) setError(call *core.Call, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if call != nil && t.call != call {
		return
	}
	t.err = err
	t.result = nil
	t.page = nil
	t.view = ViewTable
	t.selRow = -1
	t.selCol = -1
}

func (t *Tab) setPage(page *core.ResultPage) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.page = page
}

func (t *Tab) attach(identifier string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.connection = identifier
	t.disconnected = false
}

func (t *Tab) markDisconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disconnected = true
}

// transition validates and applies a view-mode change. Detail modes are
// entered from Table only and require a non-empty current page; leaving
// a detail mode returns to Table. Self-transitions are no-ops.
func (t *Tab) transition(to ViewMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if to == t.view {
		return nil
	}

	if to == ViewTable {
		t.view = ViewTable
		return nil
	}

	if t.view != ViewTable {
		return &InvalidStateTransitionError{
			From:   t.view,
			To:     to,
			Reason: "return to table view first",
		}
	}

	if t.page == nil || len(t.page.Rows) == 0 {
		return &InvalidStateTransitionError{
			From:   t.view,
			To:     to,
			Reason: "no result rows to inspect",
		}
	}

	if to == ViewCellDetail && (t.selRow < 0 || t.selCol < 0) {
		return &InvalidStateTransitionError{
			From:   t.view,
			To:     to,
			Reason: "no cell selected",
		}
	}

	// row detail and json default to the first row
	if t.selRow < 0 {
		t.selRow = 0
	}

	t.view = to
	return nil
}

func (t *Tab) selectCell(row, col int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.page == nil || row < 0 || row >= len(t.page.Rows) {
		return fmt.Errorf("row %d out of range", row)
	}
	if col < 0 || col >= len(t.page.Columns) {
		return fmt.Errorf("column %d out of range", col)
	}

	t.selRow = row
	t.selCol = col
	return nil
}
