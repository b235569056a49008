package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/core/format"
	"github.com/tabq-dev/tabq/store"
)

// DefaultPageSize is the result page size when none is configured.
const DefaultPageSize = 100

// Manager orchestrates the registry, tabs and the session store. It is
// the object the UI layer drives: every mutating operation triggers an
// asynchronous, debounced snapshot write that never blocks or fails the
// operation itself.
type Manager struct {
	registry *Registry
	store    *store.Store
	writer   *store.Writer
	log      *slog.Logger
	pageSize int

	mu     sync.Mutex
	tabs   []*Tab
	active int
	tabSeq int
}

func NewManager(registry *Registry, st *store.Store, writer *store.Writer, pageSize int, log *slog.Logger) *Manager {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Manager{
		registry: registry,
		store:    st,
		writer:   writer,
		log:      log,
		pageSize: pageSize,
		active:   -1,
	}
}

// OpenConnection opens (or reuses) the connection for an identifier and
// re-attaches any tabs restored from its hashed snapshot.
func (m *Manager) OpenConnection(ctx context.Context, identifier string) (*core.Handle, error) {
	handle, err := m.registry.Open(ctx, identifier)
	if err != nil {
		return nil, err
	}

	key := store.HashKey(identifier)
	m.mu.Lock()
	for _, tab := range m.tabs {
		if tab.ConnectionKey() == key && tab.Connection() == "" {
			tab.attach(identifier)
		}
	}
	m.mu.Unlock()

	return handle, nil
}

// NewTab creates a tab on an open connection and makes it active.
func (m *Manager) NewTab(identifier string) (*Tab, error) {
	if _, err := m.registry.Get(identifier); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tab := m.newTabLocked(identifier, store.HashKey(identifier))
	m.active = len(m.tabs) - 1
	m.snapshotLocked(tab.ConnectionKey())

	return tab, nil
}

func (m *Manager) newTabLocked(identifier, key string) *Tab {
	m.tabSeq++
	tab := newTab(fmt.Sprintf("Query %d", m.tabSeq), identifier, key)
	m.tabs = append(m.tabs, tab)
	return tab
}

// CloseTab destroys a tab. Closing the last tab of a connection also
// closes the connection itself.
func (m *Manager) CloseTab(tabID TabID) error {
	m.mu.Lock()

	index := m.indexLocked(tabID)
	if index < 0 {
		m.mu.Unlock()
		return fmt.Errorf("unknown tab with id: %q", tabID)
	}

	tab := m.tabs[index]
	if call := tab.swapCall(nil); call != nil {
		call.Cancel()
	}

	m.tabs = append(m.tabs[:index], m.tabs[index+1:]...)
	switch {
	case len(m.tabs) == 0:
		m.active = -1
	case m.active > index:
		m.active--
	case m.active >= len(m.tabs):
		m.active = len(m.tabs) - 1
	}

	last := true
	for _, other := range m.tabs {
		if other.ConnectionKey() == tab.ConnectionKey() {
			last = false
			break
		}
	}

	m.snapshotLocked(tab.ConnectionKey())
	m.mu.Unlock()

	if last && tab.Connection() != "" {
		if err := m.registry.Close(tab.Connection()); err != nil {
			return fmt.Errorf("registry.Close: %w", err)
		}
	}

	return nil
}

func (m *Manager) SwitchActiveTab(tabID TabID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := m.indexLocked(tabID)
	if index < 0 {
		return fmt.Errorf("unknown tab with id: %q", tabID)
	}

	m.active = index
	m.snapshotLocked(m.tabs[index].ConnectionKey())
	return nil
}

func (m *Manager) SetQueryText(tabID TabID, text string) error {
	tab, err := m.Tab(tabID)
	if err != nil {
		return err
	}

	tab.setQuery(text)

	m.mu.Lock()
	m.snapshotLocked(tab.ConnectionKey())
	m.mu.Unlock()
	return nil
}

func (m *Manager) SetCursor(tabID TabID, cursor int) error {
	tab, err := m.Tab(tabID)
	if err != nil {
		return err
	}

	tab.setCursor(cursor)
	return nil
}

// ExecuteActiveTab runs the active tab's buffer. Last request wins: an
// in-flight call on the tab is cancelled first and its outcome
// abandoned.
func (m *Manager) ExecuteActiveTab() (*core.Call, error) {
	m.mu.Lock()
	if m.active < 0 {
		m.mu.Unlock()
		return nil, fmt.Errorf("no active tab")
	}
	tab := m.tabs[m.active]
	m.mu.Unlock()

	return m.executeTab(tab)
}

func (m *Manager) ExecuteTab(tabID TabID) (*core.Call, error) {
	tab, err := m.Tab(tabID)
	if err != nil {
		return nil, err
	}
	return m.executeTab(tab)
}

func (m *Manager) executeTab(tab *Tab) (*core.Call, error) {
	identifier := tab.Connection()
	if identifier == "" {
		err := core.NewConnectionError(core.ConnNotOpen, nil)
		tab.markDisconnected()
		tab.setError(nil, err)
		return nil, err
	}

	handle, err := m.registry.Get(identifier)
	if err != nil {
		tab.markDisconnected()
		tab.setError(nil, err)
		return nil, err
	}

	call := handle.Execute(tab.Query(), m.pageSize, func(state core.CallState, c *core.Call) {
		m.log.Debug("call state changed", "call", c.GetID(), "state", state.String())
	})

	if prev := tab.swapCall(call); prev != nil {
		prev.Cancel()
	}

	go m.watch(tab, call)

	return call, nil
}

// watch settles the tab once its call finishes. Superseded and
// cancelled calls are abandoned without touching the tab's previous
// result.
func (m *Manager) watch(tab *Tab, call *core.Call) {
	<-call.Done()

	if !tab.isCurrentCall(call) {
		return
	}
	if call.GetState() == core.CallStateCanceled {
		return
	}

	if err := call.Err(); err != nil {
		// the canceled state may still be in flight right after Done
		if core.IsQueryError(err, core.QueryCancelled) {
			return
		}
		tab.setError(call, err)
		if core.IsQueryError(err, core.QueryConnectionLost) {
			m.connectionLost(tab.Connection())
		}
		return
	}

	// drained by now, page fetch cannot block long
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	page, err := call.Result().Page(ctx, 0, m.pageSize)
	if err != nil {
		tab.setError(call, err)
		return
	}

	tab.setResult(call, page)
}

// connectionLost evicts the dead handle and marks every dependent tab
// disconnected; the user must explicitly reconnect.
func (m *Manager) connectionLost(identifier string) {
	if identifier == "" {
		return
	}

	m.registry.Evict(identifier)

	key := store.HashKey(identifier)
	m.mu.Lock()
	for _, tab := range m.tabs {
		if tab.ConnectionKey() == key {
			tab.markDisconnected()
		}
	}
	m.mu.Unlock()

	m.log.Warn("connection lost, tabs disconnected")
}

// SetView requests a view-mode transition; invalid requests are
// rejected with InvalidStateTransitionError and change nothing.
func (m *Manager) SetView(tabID TabID, mode ViewMode) error {
	tab, err := m.Tab(tabID)
	if err != nil {
		return err
	}
	return tab.transition(mode)
}

// SelectCell picks the cell the detail views operate on.
func (m *Manager) SelectCell(tabID TabID, row, col int) error {
	tab, err := m.Tab(tabID)
	if err != nil {
		return err
	}
	return tab.selectCell(row, col)
}

// Page fetches the n-th page of the tab's last result and makes it the
// tab's current page.
func (m *Manager) Page(ctx context.Context, tabID TabID, n int) (*core.ResultPage, error) {
	tab, err := m.Tab(tabID)
	if err != nil {
		return nil, err
	}

	result := tab.Result()
	if result == nil {
		return nil, fmt.Errorf("tab has no result")
	}

	page, err := result.Page(ctx, n, m.pageSize)
	if err != nil {
		return nil, fmt.Errorf("result.Page: %w", err)
	}

	tab.setPage(page)
	return page, nil
}

// ViewContent renders the tab's current page according to its view
// mode. This is what the render layer draws into the results pane.
func (m *Manager) ViewContent(tabID TabID) (string, error) {
	tab, err := m.Tab(tabID)
	if err != nil {
		return "", err
	}

	page := tab.Page()
	if page == nil {
		if terr := tab.Err(); terr != nil {
			return terr.Error(), nil
		}
		return "", nil
	}

	row, col := tab.Selection()

	switch tab.View() {
	case ViewTable:
		return format.Table(page), nil

	case ViewRowDetail:
		if row < 0 || row >= len(page.Rows) {
			row = 0
		}
		return format.RowDetail(page.Columns, page.Rows[row]), nil

	case ViewCellDetail:
		if row < 0 || row >= len(page.Rows) || col < 0 || col >= len(page.Rows[row]) {
			return "", fmt.Errorf("no cell selected")
		}
		return format.CellDetail(page.Rows[row][col]), nil

	case ViewJSON:
		var out []byte
		var ferr error
		if row >= 0 && row < len(page.Rows) {
			out, ferr = format.RowJSON(page.Columns, page.Rows[row])
		} else {
			out, ferr = format.PageJSON(page)
		}
		if ferr != nil {
			return "", fmt.Errorf("format json: %w", ferr)
		}
		return string(out), nil

	default:
		return "", fmt.Errorf("unknown view mode: %d", tab.View())
	}
}

// Schema introspects the connection an identifier points at.
func (m *Manager) Schema(ctx context.Context, identifier string) ([]*core.SchemaObject, error) {
	handle, err := m.registry.Get(identifier)
	if err != nil {
		return nil, err
	}
	return handle.Schema(ctx)
}

// PageSize returns the configured rows-per-page.
func (m *Manager) PageSize() int { return m.pageSize }

// ActiveTab returns the tab UI commands apply to, nil when none exists.
func (m *Manager) ActiveTab() *Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active < 0 || m.active >= len(m.tabs) {
		return nil
	}
	return m.tabs[m.active]
}

// Tabs returns the ordered tab list.
func (m *Manager) Tabs() []*Tab {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Tab, len(m.tabs))
	copy(out, m.tabs)
	return out
}

func (m *Manager) Tab(tabID TabID) (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	index := m.indexLocked(tabID)
	if index < 0 {
		return nil, fmt.Errorf("unknown tab with id: %q", tabID)
	}
	return m.tabs[index], nil
}

func (m *Manager) indexLocked(tabID TabID) int {
	for i, tab := range m.tabs {
		if tab.ID() == tabID {
			return i
		}
	}
	return -1
}

// Restore opens a connection and rebuilds its tabs from the stored
// snapshot. Absence of a snapshot (or a corrupt one) falls back to a
// single empty tab. When tabs for the connection already exist (a
// previous Restore, or a re-attached last-active session) the rebuild
// is skipped.
func (m *Manager) Restore(ctx context.Context, identifier string) error {
	if _, err := m.OpenConnection(ctx, identifier); err != nil {
		return err
	}

	var snapshot *store.Snapshot
	if m.store != nil {
		var err error
		snapshot, err = m.store.Load(identifier)
		if err != nil {
			m.log.Warn("session not restored", "error", err)
			snapshot = nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := store.HashKey(identifier)
	for _, tab := range m.tabs {
		if tab.ConnectionKey() == key {
			return nil
		}
	}
	if snapshot == nil || len(snapshot.Queries) == 0 {
		m.newTabLocked(identifier, key)
		m.active = len(m.tabs) - 1
		m.snapshotLocked(key)
		return nil
	}

	first := len(m.tabs)
	for _, query := range snapshot.Queries {
		tab := m.newTabLocked(identifier, key)
		tab.setQuery(query)
	}
	m.active = first + snapshot.ActiveTab

	return nil
}

// RestoreLastActive rebuilds the tabs of whichever connection was
// active when the process last exited. The snapshot holds only the
// hashed key, so the tabs come back detached; OpenConnection with the
// matching identifier re-attaches them.
func (m *Manager) RestoreLastActive() (*store.Snapshot, error) {
	if m.store == nil {
		return nil, nil
	}

	snapshot, err := m.store.LoadLastActive()
	if err != nil {
		return nil, err
	}
	if snapshot == nil || len(snapshot.Queries) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	first := len(m.tabs)
	for _, query := range snapshot.Queries {
		tab := m.newTabLocked("", snapshot.Key)
		tab.setQuery(query)
		tab.markDisconnected()
	}
	m.active = first + snapshot.ActiveTab

	return snapshot, nil
}

// Close performs the bounded shutdown sequence: wait briefly for
// in-flight calls, flush the pending snapshot, close all handles.
// Durability is best-effort; an expired ctx never blocks quit.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	tabs := make([]*Tab, len(m.tabs))
	copy(tabs, m.tabs)
	m.mu.Unlock()

	for _, tab := range tabs {
		if call := tab.swapCall(nil); call != nil {
			call.Cancel()
			select {
			case <-call.Done():
			case <-ctx.Done():
			}
		}
	}

	if m.writer != nil {
		if err := m.writer.Flush(ctx); err != nil {
			m.log.Warn("snapshot flush abandoned", "error", err)
		}
	}

	done := make(chan error, 1)
	go func() { done <- m.registry.CloseAll(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// snapshotLocked queues a debounced snapshot write for the connection a
// key identifies. The write can fail without failing the operation.
func (m *Manager) snapshotLocked(key string) {
	if m.writer == nil || key == "" {
		return
	}

	snapshot := &store.Snapshot{
		Key:        key,
		LastActive: true,
	}

	activeID := TabID("")
	if m.active >= 0 && m.active < len(m.tabs) {
		activeID = m.tabs[m.active].ID()
	}

	for _, tab := range m.tabs {
		if tab.ConnectionKey() != key {
			continue
		}
		if tab.ID() == activeID {
			snapshot.ActiveTab = len(snapshot.Queries)
		}
		snapshot.Queries = append(snapshot.Queries, tab.Query())
	}

	m.writer.Enqueue(snapshot)
}
