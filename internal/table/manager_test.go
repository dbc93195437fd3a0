package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

func newManager(t *testing.T) *Manager {
	opts := game.DefaultOptions()
	opts.Seed = 7
	return NewManager(zaptest.NewLogger(t), nil, opts)
}

func TestCreateTable(t *testing.T) {
	m := newManager(t)

	tbl, err := m.CreateTable("", "casual")
	require.NoError(t, err)
	assert.NotEmpty(t, tbl.ID)
	assert.Equal(t, StateWaiting, tbl.GetState())
	assert.Equal(t, int64(7), tbl.Engine().Seed())

	again, err := m.CreateTable(tbl.ID, "other")
	require.NoError(t, err)
	assert.Same(t, tbl, again, "an existing id returns the existing table")

	got, ok := m.GetTable(tbl.ID)
	require.True(t, ok)
	assert.Same(t, tbl, got)
	assert.Equal(t, 1, m.GetActiveTableCount())

	m.RemoveTable(tbl.ID)
	_, ok = m.GetTable(tbl.ID)
	assert.False(t, ok)
	assert.Equal(t, StateClosed, tbl.GetState())
	assert.Equal(t, 0, m.GetActiveTableCount())
}

func TestSeats(t *testing.T) {
	m := newManager(t)
	tbl, err := m.CreateTable("t1", "casual")
	require.NoError(t, err)

	tbl.AddWatcher("alice")
	require.NoError(t, tbl.Sit(zone.Self, "alice"))
	require.NoError(t, tbl.Sit(zone.Self, "alice"))
	assert.ErrorIs(t, tbl.Sit(zone.Self, "bob"), ErrSeatTaken)
	assert.ErrorIs(t, tbl.Sit(zone.Player(4), "bob"), game.ErrInvalidPlayer)
	require.NoError(t, tbl.Sit(zone.Opponent, "bob"))

	seat, ok := tbl.SeatOf("bob")
	require.True(t, ok)
	assert.Equal(t, zone.Opponent, seat)

	snap := tbl.Snapshot()
	assert.Equal(t, map[string]string{"self": "alice", "opponent": "bob"}, snap.Seats)
	assert.Empty(t, snap.Watchers, "sitting down stops watching")

	require.NoError(t, tbl.Leave("alice"))
	assert.ErrorIs(t, tbl.Leave("alice"), ErrNotSeated)

	tbl.SetState(StateClosed)
	assert.ErrorIs(t, tbl.Sit(zone.Self, "carol"), ErrTableClosed)
}

func TestGetAllTablesOrdered(t *testing.T) {
	m := newManager(t)
	for _, id := range []string{"a", "b", "c"} {
		_, err := m.CreateTable(id, id)
		require.NoError(t, err)
	}
	tables := m.GetAllTables()
	require.Len(t, tables, 3)
	for i := 1; i < len(tables); i++ {
		assert.False(t, tables[i].CreateTime.Before(tables[i-1].CreateTime))
	}
}
