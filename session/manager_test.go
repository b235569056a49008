package session_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabq-dev/tabq/core"
	"github.com/tabq-dev/tabq/session"
	"github.com/tabq-dev/tabq/store"
)

func newTestManager(t *testing.T, statePath string) *session.Manager {
	t.Helper()

	st, err := store.Open(statePath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	return session.NewManager(
		session.NewRegistry(nil),
		st,
		store.NewWriter(st, 10*time.Millisecond, nil),
		100,
		nil,
	)
}

func closeManager(t *testing.T, m *session.Manager) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Close(ctx))
}

// runStatement executes one statement on the tab and waits for the tab
// to settle on its outcome.
func runStatement(t *testing.T, m *session.Manager, tabID session.TabID, statement string) {
	t.Helper()

	require.NoError(t, m.SetQueryText(tabID, statement))
	call, err := m.ExecuteTab(tabID)
	require.NoError(t, err)
	<-call.Done()

	tab, err := m.Tab(tabID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return tab.Result() != nil || tab.Err() != nil
	}, 5*time.Second, 5*time.Millisecond)
}

func TestManagerTabLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))

	// restoring a fresh connection yields one empty tab
	require.Len(t, m.Tabs(), 1)
	first := m.ActiveTab()
	require.NotNil(t, first)
	assert.Equal(t, "Query 1", first.Title())
	assert.Equal(t, "", first.Query())

	second, err := m.NewTab(dbPath)
	require.NoError(t, err)
	assert.Equal(t, "Query 2", second.Title())
	assert.Equal(t, second.ID(), m.ActiveTab().ID())

	require.NoError(t, m.SwitchActiveTab(first.ID()))
	assert.Equal(t, first.ID(), m.ActiveTab().ID())

	require.NoError(t, m.CloseTab(first.ID()))
	require.Len(t, m.Tabs(), 1)
	assert.Equal(t, second.ID(), m.ActiveTab().ID())

	// closing the last tab closes the connection as well
	require.NoError(t, m.CloseTab(second.ID()))
	require.Len(t, m.Tabs(), 0)

	_, err = m.NewTab(dbPath)
	require.Error(t, err)
	assert.True(t, core.IsConnectionError(err, core.ConnNotOpen))
}

func TestManagerExecuteAndView(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tab := m.ActiveTab()
	require.NotNil(t, tab)

	runStatement(t, m, tab.ID(), "CREATE TABLE fruit (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, tab.Err())

	runStatement(t, m, tab.ID(), "INSERT INTO fruit (name) VALUES ('apple'), ('pear')")
	require.NoError(t, tab.Err())

	runStatement(t, m, tab.ID(), "SELECT id, name FROM fruit ORDER BY id")
	require.NoError(t, tab.Err())

	page := tab.Page()
	require.NotNil(t, page)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, -1, page.NextOffset)

	out, err := m.ViewContent(tab.ID())
	require.NoError(t, err)
	assert.Contains(t, out, "apple")
	assert.Contains(t, out, "pear")

	// detail views over the selected cell
	require.NoError(t, m.SelectCell(tab.ID(), 1, 1))
	require.NoError(t, m.SetView(tab.ID(), session.ViewCellDetail))
	out, err = m.ViewContent(tab.ID())
	require.NoError(t, err)
	assert.Equal(t, "pear", out)

	require.NoError(t, m.SetView(tab.ID(), session.ViewTable))
	require.NoError(t, m.SetView(tab.ID(), session.ViewJSON))
	out, err = m.ViewContent(tab.ID())
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "pear"`)
}

func TestManagerExecutionErrorStaysOnTab(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tab := m.ActiveTab()

	runStatement(t, m, tab.ID(), "SELEC nope")
	require.Error(t, tab.Err())
	assert.True(t, core.IsQueryError(tab.Err(), core.QuerySyntax))

	// the connection survives statement failures
	runStatement(t, m, tab.ID(), "SELECT 1")
	assert.NoError(t, tab.Err())
}

func TestManagerPaging(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tab := m.ActiveTab()

	runStatement(t, m, tab.ID(),
		`WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt WHERE x < 250)
		 SELECT x FROM cnt`)
	require.NoError(t, tab.Err())

	page, err := m.Page(context.Background(), tab.ID(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, page.Offset)
	assert.Equal(t, 100, len(page.Rows))
	assert.Equal(t, int64(101), page.Rows[0][0].Int())

	last, err := m.Page(context.Background(), tab.ID(), 2)
	require.NoError(t, err)
	assert.Equal(t, 50, len(last.Rows))
	assert.Equal(t, -1, last.NextOffset)
	assert.Equal(t, 250, last.Total)
}

func TestManagerSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.db")
	dbPath := filepath.Join(dir, "app.db")

	m1 := newTestManager(t, statePath)
	require.NoError(t, m1.Restore(context.Background(), dbPath))
	first := m1.ActiveTab()
	require.NoError(t, m1.SetQueryText(first.ID(), "SELECT 1"))

	second, err := m1.NewTab(dbPath)
	require.NoError(t, err)
	require.NoError(t, m1.SetQueryText(second.ID(), "SELECT 2"))
	closeManager(t, m1)

	m2 := newTestManager(t, statePath)
	require.NoError(t, m2.Restore(context.Background(), dbPath))
	defer closeManager(t, m2)

	tabs := m2.Tabs()
	require.Len(t, tabs, 2)
	assert.Equal(t, "SELECT 1", tabs[0].Query())
	assert.Equal(t, "SELECT 2", tabs[1].Query())
	assert.Equal(t, tabs[1].ID(), m2.ActiveTab().ID())
}

func TestManagerRestoreIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "app.db")
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	require.NoError(t, m.Restore(context.Background(), dbPath))
	require.NoError(t, m.SetQueryText(m.ActiveTab().ID(), "SELECT 1"))

	// a second restore for the same connection must not duplicate tabs
	require.NoError(t, m.Restore(context.Background(), dbPath))

	tabs := m.Tabs()
	require.Len(t, tabs, 1)
	assert.Equal(t, "SELECT 1", tabs[0].Query())
}

func TestManagerRestoreLastActive(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "state.db")
	dbPath := filepath.Join(dir, "app.db")

	m1 := newTestManager(t, statePath)
	require.NoError(t, m1.Restore(context.Background(), dbPath))
	require.NoError(t, m1.SetQueryText(m1.ActiveTab().ID(), "SELECT 42"))
	closeManager(t, m1)

	m2 := newTestManager(t, statePath)
	defer closeManager(t, m2)

	snapshot, err := m2.RestoreLastActive()
	require.NoError(t, err)
	require.NotNil(t, snapshot)

	// the snapshot holds only the hashed key, so the tab comes back
	// detached: texts restored, execution refused until reconnect
	tab := m2.ActiveTab()
	require.NotNil(t, tab)
	assert.Equal(t, "SELECT 42", tab.Query())
	assert.True(t, tab.IsDisconnected())
	assert.Equal(t, "", tab.Connection())

	_, err = m2.ExecuteActiveTab()
	require.Error(t, err)
	assert.True(t, core.IsConnectionError(err, core.ConnNotOpen))

	// reconnecting with the matching identifier re-attaches the tab
	_, err = m2.OpenConnection(context.Background(), dbPath)
	require.NoError(t, err)
	assert.Equal(t, dbPath, tab.Connection())

	runStatement(t, m2, tab.ID(), "SELECT 42")
	assert.NoError(t, tab.Err())
}

func TestManagerRestoreLastActiveEmptyStore(t *testing.T) {
	m := newTestManager(t, filepath.Join(t.TempDir(), "state.db"))
	defer closeManager(t, m)

	snapshot, err := m.RestoreLastActive()
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Len(t, m.Tabs(), 0)
}

func TestManagerCancelKeepsPreviousResult(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tab := m.ActiveTab()

	runStatement(t, m, tab.ID(), "SELECT 'kept'")
	require.NoError(t, tab.Err())
	firstResult := tab.Result()
	require.NotNil(t, firstResult)

	// cancel a slow run before it yields its first page
	require.NoError(t, m.SetQueryText(tab.ID(),
		`WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt WHERE x < 50000000)
		 SELECT count(*) FROM cnt`))
	slow, err := m.ExecuteTab(tab.ID())
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	slow.Cancel()
	<-slow.Done()

	assert.True(t, core.IsQueryError(slow.Err(), core.QueryCancelled))

	// the tab still shows the run before the cancelled one
	time.Sleep(50 * time.Millisecond)
	assert.Same(t, firstResult, tab.Result())
	assert.NoError(t, tab.Err())
}

// Two tabs against one file: a good query, a typo, and the view rules
// around them.
func TestManagerTwoTabScenario(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "test.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tabA := m.ActiveTab()

	runStatement(t, m, tabA.ID(), "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	runStatement(t, m, tabA.ID(), "INSERT INTO users (name) VALUES ('ann'), ('ben')")

	tabB, err := m.NewTab(dbPath)
	require.NoError(t, err)

	runStatement(t, m, tabA.ID(), "SELECT * FROM users")
	require.NoError(t, tabA.Err())
	require.Equal(t, 2, tabA.Page().Total)

	runStatement(t, m, tabB.ID(), "SELEC * FROM users")
	assert.True(t, core.IsQueryError(tabB.Err(), core.QuerySyntax))

	// row detail on the good tab shows all columns of row 0
	require.NoError(t, m.SetView(tabA.ID(), session.ViewRowDetail))
	out, err := m.ViewContent(tabA.ID())
	require.NoError(t, err)
	assert.Contains(t, out, "id: 1")
	assert.Contains(t, out, "name: ann")

	// row detail on the failed tab is rejected and changes nothing
	err = m.SetView(tabB.ID(), session.ViewRowDetail)
	var terr *session.InvalidStateTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, session.ViewTable, tabB.View())
}

func TestManagerNewRunSupersedesOld(t *testing.T) {
	dir := t.TempDir()
	m := newTestManager(t, filepath.Join(dir, "state.db"))
	defer closeManager(t, m)

	dbPath := filepath.Join(dir, "app.db")
	require.NoError(t, m.Restore(context.Background(), dbPath))
	tab := m.ActiveTab()

	// a long scan that would take far longer than the test
	require.NoError(t, m.SetQueryText(tab.ID(),
		`WITH RECURSIVE cnt(x) AS (SELECT 1 UNION ALL SELECT x+1 FROM cnt WHERE x < 50000000)
		 SELECT count(*) FROM cnt`))
	slow, err := m.ExecuteTab(tab.ID())
	require.NoError(t, err)

	require.NoError(t, m.SetQueryText(tab.ID(), "SELECT 'fast'"))
	fast, err := m.ExecuteTab(tab.ID())
	require.NoError(t, err)

	<-slow.Done()
	<-fast.Done()

	require.NoError(t, fast.Err())
	assert.True(t, core.IsQueryError(slow.Err(), core.QueryCancelled))

	require.Eventually(t, func() bool {
		page := tab.Page()
		return page != nil && len(page.Rows) == 1 && page.Rows[0][0].Text() == "fast"
	}, 5*time.Second, 5*time.Millisecond)
	assert.NoError(t, tab.Err())
}
