package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabq-dev/tabq/core"
)

func tabWithPage(rows int) *Tab {
	tab := newTab("Query 1", "test.db", "key")
	if rows < 0 {
		return tab
	}

	page := &core.ResultPage{
		Columns: []core.Column{{Name: "id"}, {Name: "name"}},
		Total:   rows,
	}
	for i := 0; i < rows; i++ {
		page.Rows = append(page.Rows, core.Row{
			core.IntCell(int64(i)), core.TextCell("x"),
		})
	}
	tab.setPage(page)
	return tab
}

func TestViewTransitions(t *testing.T) {
	type testCase struct {
		name    string
		prepare func(*Tab)
		to      ViewMode
		wantErr bool
	}

	testCases := []testCase{
		{
			name:    "self transition is a no-op",
			prepare: func(*Tab) {},
			to:      ViewTable,
		},
		{
			name:    "row detail with rows",
			prepare: func(*Tab) {},
			to:      ViewRowDetail,
		},
		{
			name:    "json with rows",
			prepare: func(*Tab) {},
			to:      ViewJSON,
		},
		{
			name: "cell detail requires a selection",
			prepare: func(*Tab) {
			},
			to:      ViewCellDetail,
			wantErr: true,
		},
		{
			name: "cell detail with a selection",
			prepare: func(tab *Tab) {
				require.NoError(t, tab.selectCell(1, 0))
			},
			to: ViewCellDetail,
		},
		{
			name: "detail to detail is rejected",
			prepare: func(tab *Tab) {
				require.NoError(t, tab.transition(ViewRowDetail))
			},
			to:      ViewJSON,
			wantErr: true,
		},
		{
			name: "detail back to table",
			prepare: func(tab *Tab) {
				require.NoError(t, tab.transition(ViewRowDetail))
			},
			to: ViewTable,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tab := tabWithPage(3)
			tc.prepare(tab)

			err := tab.transition(tc.to)
			if tc.wantErr {
				var terr *InvalidStateTransitionError
				require.ErrorAs(t, err, &terr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.to, tab.View())
		})
	}
}

func TestViewTransitionRequiresRows(t *testing.T) {
	for _, to := range []ViewMode{ViewRowDetail, ViewCellDetail, ViewJSON} {
		t.Run(to.String(), func(t *testing.T) {
			// no page at all
			tab := tabWithPage(-1)
			err := tab.transition(to)
			var terr *InvalidStateTransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, ViewTable, tab.View())

			// empty page
			tab = tabWithPage(0)
			err = tab.transition(to)
			require.ErrorAs(t, err, &terr)
		})
	}
}

func TestRowDetailDefaultsSelectionToFirstRow(t *testing.T) {
	tab := tabWithPage(3)

	require.NoError(t, tab.transition(ViewRowDetail))
	row, _ := tab.Selection()
	assert.Equal(t, 0, row)
}

func TestSelectCellBounds(t *testing.T) {
	tab := tabWithPage(2)

	require.NoError(t, tab.selectCell(1, 1))
	row, col := tab.Selection()
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)

	assert.Error(t, tab.selectCell(2, 0))
	assert.Error(t, tab.selectCell(0, 2))
	assert.Error(t, tab.selectCell(-1, 0))

	// failed selections leave the previous one intact
	row, col = tab.Selection()
	assert.Equal(t, 1, row)
	assert.Equal(t, 1, col)
}

func TestFailedTransitionKeepsMode(t *testing.T) {
	tab := tabWithPage(3)
	require.NoError(t, tab.transition(ViewJSON))

	err := tab.transition(ViewRowDetail)
	require.Error(t, err)
	assert.Equal(t, ViewJSON, tab.View())
}
