package server

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/config"
	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
	"github.com/cardtable/cardtable-go/internal/table"
)

var hubCards = []catalog.Entry{
	{ID: "knight", Name: "River Knight", Type: catalog.TypeUnit, Cost: "2W", Atk: 3, Def: 1, HP: 4},
	{ID: "scout", Name: "Scout", Type: catalog.TypeUnit, Atk: 1, HP: 1},
}

var hubDecks = map[string]any{
	"self":     []any{"knight", "scout", "s3", "s4", "s5", "s6", "s7"},
	"opponent": []any{"o1", "o2", "o3", "o4", "o5", "o6"},
}

type rawReply struct {
	Type    string          `json:"type"`
	TableID string          `json:"table_id"`
	Seq     int             `json:"seq"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type testHub struct {
	*Hub
	tables   *table.Manager
	recorder *game.ReplayRecorder
	seq      int
}

func newTestHub(t *testing.T) *testHub {
	t.Helper()
	logger := zaptest.NewLogger(t)
	opts := game.DefaultOptions()
	opts.Seed = 11
	tables := table.NewManager(logger, catalog.NewMemory(hubCards...), opts)
	recorder := game.NewReplayRecorder(logger, 50)
	h := NewHub(config.WebSocketConfig{SendBuffer: 1024}, tables, recorder, logger)
	return &testHub{Hub: h, tables: tables, recorder: recorder}
}

// call runs one message and returns its ok or error reply.
func (th *testHub) call(t *testing.T, c *Client, typ, tableID string, data map[string]any) rawReply {
	t.Helper()
	th.seq++
	th.handle(context.Background(), c, Message{Type: typ, TableID: tableID, Seq: th.seq, Data: data})
	for {
		r := next(t, c)
		if r.Seq == th.seq && (r.Type == MsgOK || r.Type == MsgError) {
			return r
		}
	}
}

func next(t *testing.T, c *Client) rawReply {
	t.Helper()
	select {
	case b, ok := <-c.send:
		require.True(t, ok, "client was disconnected")
		var r rawReply
		require.NoError(t, json.Unmarshal(b, &r))
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reply")
		return rawReply{}
	}
}

// lastView drains c and returns the most recent view it was sent.
func lastView(t *testing.T, c *Client) game.TableView {
	t.Helper()
	var tv game.TableView
	found := false
	for {
		select {
		case b := <-c.send:
			var r rawReply
			require.NoError(t, json.Unmarshal(b, &r))
			if r.Type == MsgState {
				require.NoError(t, json.Unmarshal(r.Data, &tv))
				found = true
			}
		default:
			require.True(t, found, "no view was sent")
			return tv
		}
	}
}

func hand(tv game.TableView, p zone.Player) game.PileView {
	for _, pv := range tv.Players {
		if pv.Player != p {
			continue
		}
		for _, pile := range pv.Piles {
			if pile.Zone == zone.Hand.String() {
				return pile
			}
		}
	}
	return game.PileView{}
}

func join(t *testing.T, th *testHub, user, seat string) *Client {
	t.Helper()
	c := newClient(th.Hub, nil)
	r := th.call(t, c, MsgJoin, "t1", map[string]any{"user": user, "seat": seat})
	require.Empty(t, r.Error)
	return c
}

func TestJoinAndNewGame(t *testing.T) {
	th := newTestHub(t)
	alice := join(t, th, "alice", "self")
	bob := join(t, th, "bob", "opponent")
	carol := join(t, th, "carol", "")

	r := th.call(t, alice, MsgNewGame, "", map[string]any{"decks": hubDecks, "format": "test"})
	require.Empty(t, r.Error)
	var entered rules.TurnEntered
	require.NoError(t, json.Unmarshal(r.Data, &entered))
	assert.Equal(t, "Ready", entered.Step)

	tbl, ok := th.tables.GetTable("t1")
	require.True(t, ok)
	assert.Equal(t, table.StatePlaying, tbl.GetState())

	av := lastView(t, alice)
	assert.Equal(t, zone.Self, av.Viewer)
	assert.Len(t, hand(av, zone.Self).Cards, 5)
	assert.Nil(t, hand(av, zone.Opponent).Cards)

	bv := lastView(t, bob)
	assert.Len(t, hand(bv, zone.Opponent).Cards, 5)
	assert.Nil(t, hand(bv, zone.Self).Cards)
	assert.Equal(t, av.Checksum, bv.Checksum)

	cv := lastView(t, carol)
	assert.Nil(t, hand(cv, zone.Self).Cards)
	assert.Nil(t, hand(cv, zone.Opponent).Cards)
	assert.Equal(t, 5, hand(cv, zone.Opponent).Count)

	replay, ok := th.recorder.GetReplay("t1")
	require.True(t, ok)
	assert.Equal(t, 1, replay.Size())
}

func TestSeatRules(t *testing.T) {
	th := newTestHub(t)
	join(t, th, "alice", "self")
	carol := join(t, th, "carol", "")

	r := th.call(t, carol, MsgDraw, "", nil)
	assert.Equal(t, ErrNotSeated.Error(), r.Error)

	dave := newClient(th.Hub, nil)
	r = th.call(t, dave, MsgJoin, "t1", map[string]any{"user": "dave", "seat": "self"})
	assert.Contains(t, r.Error, table.ErrSeatTaken.Error())

	r = th.call(t, dave, MsgDraw, "", nil)
	assert.Equal(t, ErrNotJoined.Error(), r.Error)

	r = th.call(t, dave, MsgJoin, "t1", map[string]any{"seat": "self"})
	assert.NotEmpty(t, r.Error, "user is required")
}

func TestCommandErrors(t *testing.T) {
	th := newTestHub(t)
	alice := join(t, th, "alice", "self")

	r := th.call(t, alice, "teleport", "", nil)
	assert.Contains(t, r.Error, ErrUnknownCommand.Error())

	r = th.call(t, alice, MsgDraw, "", map[string]any{"cnt": 1})
	assert.Contains(t, r.Error, "bad arguments")

	r = th.call(t, alice, MsgMoveTop, "", map[string]any{"from": "deck", "to": "grave"})
	assert.Contains(t, r.Error, game.ErrEmptySource.Error())

	r = th.call(t, alice, MsgMoveTop, "", map[string]any{"from": "attic", "to": "grave"})
	assert.NotEmpty(t, r.Error)
}

func TestPaymentOverWebsocketCommands(t *testing.T) {
	th := newTestHub(t)
	alice := join(t, th, "alice", "self")
	bob := join(t, th, "bob", "opponent")
	require.Empty(t, th.call(t, alice, MsgNewGame, "", map[string]any{"decks": hubDecks}).Error)

	r := th.call(t, alice, MsgPlace, "", map[string]any{"from": "hand", "index": 0, "slot": "unit1", "pay": true})
	require.Empty(t, r.Error)
	var res game.PlaceResult
	require.NoError(t, json.Unmarshal(r.Data, &res))
	require.NotEmpty(t, res.PendingPaymentID)
	assert.False(t, res.Placed)

	r = th.call(t, bob, MsgResolvePayment, "", map[string]any{"id": res.PendingPaymentID, "confirm": true})
	assert.Equal(t, ErrNotYours.Error(), r.Error)

	for i := 0; i < 2; i++ {
		require.Empty(t, th.call(t, alice, MsgProduce, "", map[string]any{"element": "Water"}).Error)
	}
	r = th.call(t, alice, MsgResolvePayment, "", map[string]any{
		"id":      res.PendingPaymentID,
		"confirm": true,
		"spend":   map[string]any{"Water": 2},
	})
	require.Empty(t, r.Error)

	tbl, _ := th.tables.GetTable("t1")
	ref, ok := tbl.Engine().Slot(zone.Self, zone.UnitKey(1))
	require.True(t, ok)
	assert.Equal(t, "knight", ref.ID)

	r = th.call(t, alice, MsgCounter, "", map[string]any{"slot": "unit1", "kind": "Damage", "delta": 2})
	require.Empty(t, r.Error)
	r = th.call(t, alice, MsgCounter, "", map[string]any{"slot": "unit1", "kind": "damage", "delta": -1})
	require.Empty(t, r.Error)
	assert.Equal(t, 1, tbl.Engine().Counters(zone.Self, zone.UnitKey(1))["damage"])

	r = th.call(t, alice, MsgBattle, "", map[string]any{"slot": "unit1", "role": "attacker"})
	require.Empty(t, r.Error)
	var to zone.SlotKey
	require.NoError(t, json.Unmarshal(r.Data, &to))
	assert.Equal(t, zone.BattleKey(1), to)
}

func TestEventsAreRedacted(t *testing.T) {
	self, opp := zone.Self, zone.Opponent
	draw := EventMessage{Type: "zone:drawn", Player: "self", Card: "knight",
		Metadata: map[string]string{"from": "deck", "to": "hand"}}
	assert.Equal(t, "knight", draw.redactFor(&self).Card)
	assert.Empty(t, draw.redactFor(&opp).Card)
	assert.Empty(t, draw.redactFor(nil).Card)

	discard := EventMessage{Type: "zone:change", Player: "self", Card: "knight",
		Metadata: map[string]string{"from": "hand", "to": "grave"}}
	assert.Equal(t, "knight", discard.redactFor(&opp).Card)

	bury := EventMessage{Type: "zone:change", Player: "self", Card: "knight",
		Metadata: map[string]string{"from": "deck", "to": "shield"}}
	assert.Empty(t, bury.redactFor(&self).Card)

	counter := EventMessage{Type: "counter:added", Player: "self", Card: "knight", Slot: "unit1"}
	assert.Equal(t, "knight", counter.redactFor(nil).Card)
}

func TestLastClientClosesTable(t *testing.T) {
	th := newTestHub(t)
	alice := join(t, th, "alice", "self")
	bob := join(t, th, "bob", "opponent")
	assert.Equal(t, 1, th.tables.GetActiveTableCount())

	require.Empty(t, th.call(t, alice, MsgLeave, "", nil).Error)
	tbl, ok := th.tables.GetTable("t1")
	require.True(t, ok)
	_, seated := tbl.SeatOf("alice")
	assert.False(t, seated)

	require.Empty(t, th.call(t, bob, MsgLeave, "", nil).Error)
	_, ok = th.tables.GetTable("t1")
	assert.False(t, ok)
	_, ok = th.room("t1")
	assert.False(t, ok)
}

func TestWebSocketRoundTrip(t *testing.T) {
	th := newTestHub(t)
	srv := httptest.NewServer(th.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: MsgJoin, TableID: "live", Seq: 1,
		Data: map[string]any{"user": "alice", "seat": "self"}}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var sawView, sawOK bool
	for !sawOK {
		var r rawReply
		require.NoError(t, conn.ReadJSON(&r))
		switch r.Type {
		case MsgState:
			sawView = true
		case MsgOK:
			sawOK = r.Seq == 1
		case MsgError:
			t.Fatalf("join failed: %s", r.Error)
		}
	}
	assert.True(t, sawView)

	require.NoError(t, conn.WriteJSON(Message{Type: "nonsense", Seq: 2}))
	for {
		var r rawReply
		require.NoError(t, conn.ReadJSON(&r))
		if r.Seq == 2 {
			assert.Equal(t, MsgError, r.Type)
			break
		}
	}

	_, ok := th.tables.GetTable("live")
	assert.True(t, ok)
}
