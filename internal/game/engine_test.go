package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/deck"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

var testCards = []catalog.Entry{
	{ID: "knight", Name: "River Knight", Type: catalog.TypeUnit, Cost: "2W", Atk: 3, Def: 1, HP: 4},
	{ID: "scout", Name: "Scout", Type: catalog.TypeUnit, Atk: 1, Def: 0, HP: 1},
	{ID: "totem", Name: "Totem", Type: catalog.TypeSupport, Cost: "1A"},
	{ID: "sage", Name: "Tide Sage", Type: catalog.TypePartner, Elements: []string{"Water", "Fire"}},
	{ID: "odd", Name: "Odd Cost", Type: catalog.TypeUnit, Cost: "2?"},
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	return newTestEngineWith(t, DefaultOptions())
}

func newTestEngineWith(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Seed == 0 {
		opts.Seed = 42
	}
	e, err := NewEngine(zaptest.NewLogger(t), catalog.NewMemory(testCards...), opts)
	require.NoError(t, err)
	return e
}

// recordEvents collects every event published after the call.
func recordEvents(e *Engine) *[]rules.Event {
	events := &[]rules.Event{}
	e.EventBus().Subscribe(func(evt rules.Event) {
		*events = append(*events, evt)
	})
	return events
}

func countEvents(events []rules.Event, t rules.EventType) int {
	n := 0
	for _, evt := range events {
		if evt.Type == t {
			n++
		}
	}
	return n
}

func seed(t *testing.T, e *Engine, p zone.Player, ids ...string) {
	t.Helper()
	require.NoError(t, e.SeedDeck(p, deck.List{Cards: ids}))
}

func ids(refs []zone.Ref) []string {
	out := make([]string, len(refs))
	for i, r := range refs {
		out[i] = r.ID
	}
	return out
}

func contents(t *testing.T, e *Engine, p zone.Player, z zone.Zone) []string {
	t.Helper()
	refs, err := e.Contents(p, z)
	require.NoError(t, err)
	return ids(refs)
}

func totalCards(e *Engine, p zone.Player) int {
	return e.Snapshot().Players[p].CardCount()
}

func TestNewEngineDefaults(t *testing.T) {
	e := newTestEngine(t)
	assert.Equal(t, int64(42), e.Seed())
	assert.Equal(t, 10, e.Options().ResourceCap)

	state := e.TurnState()
	assert.Equal(t, 1, state.TurnNumber)
	assert.Equal(t, zone.Self, state.ActivePlayer)

	_, err := NewEngine(nil, nil, Options{OpeningHand: -1})
	assert.Error(t, err)
}

func TestNewEngineRandomSeed(t *testing.T) {
	e, err := NewEngine(nil, nil, DefaultOptions())
	require.NoError(t, err)
	assert.NotZero(t, e.Seed())
}

func TestMoveTop(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c")
	events := recordEvents(e)

	r, ok := e.MoveTop(zone.Self, zone.Deck, zone.Hand)
	require.True(t, ok)
	assert.Equal(t, "a", r.ID)
	assert.Equal(t, []string{"a"}, contents(t, e, zone.Self, zone.Hand))
	assert.Equal(t, []string{"b", "c"}, contents(t, e, zone.Self, zone.Deck))
	assert.Equal(t, 1, countEvents(*events, rules.EventZoneChange))

	r, ok = e.MoveTop(zone.Self, zone.Deck, zone.Grave)
	require.True(t, ok)
	assert.Equal(t, "b", r.ID)
	r, ok = e.MoveTop(zone.Self, zone.Deck, zone.Grave)
	require.True(t, ok)
	assert.Equal(t, []string{"c", "b"}, contents(t, e, zone.Self, zone.Grave))

	_, ok = e.MoveTop(zone.Self, zone.Deck, zone.Hand)
	assert.False(t, ok, "empty deck")
	_, ok = e.MoveTop(zone.Self, zone.Hand, zone.Slots)
	assert.False(t, ok, "slots are not a pile")
	assert.Equal(t, 3, totalCards(e, zone.Self))
}

func TestMoveManyAndDraw(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c", "d")
	events := recordEvents(e)

	moved, err := e.MoveMany(zone.Self, zone.Deck, zone.Shield, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(moved))
	assert.Equal(t, []string{"b", "a"}, contents(t, e, zone.Self, zone.Shield))
	assert.Equal(t, 1, countEvents(*events, rules.EventZoneChangeBatch))

	drawn, err := e.Draw(zone.Self, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d"}, ids(drawn))
	assert.Equal(t, []string{"c", "d"}, contents(t, e, zone.Self, zone.Hand))
	assert.Equal(t, 1, countEvents(*events, rules.EventCardDrawn))

	drawn, err = e.Draw(zone.Self, 1)
	require.NoError(t, err)
	assert.Empty(t, drawn)
	assert.Equal(t, 4, totalCards(e, zone.Self))
}

func TestReorder(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c")
	_, err := e.Draw(zone.Self, 3)
	require.NoError(t, err)

	err = e.Reorder(zone.Self, zone.Hand, 0, 2, zone.ViewStacked)
	assert.ErrorIs(t, err, ErrClosedView)
	assert.Equal(t, []string{"a", "b", "c"}, contents(t, e, zone.Self, zone.Hand))

	require.NoError(t, e.Reorder(zone.Self, zone.Hand, 0, 2, zone.ViewOpen))
	assert.Equal(t, []string{"b", "c", "a"}, contents(t, e, zone.Self, zone.Hand))

	err = e.Reorder(zone.Self, zone.Hand, 5, 0, zone.ViewOpen)
	assert.ErrorIs(t, err, ErrNoCard)
}

func TestShuffleIsSeeded(t *testing.T) {
	cards := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	run := func() []string {
		e := newTestEngine(t)
		seed(t, e, zone.Self, cards...)
		require.NoError(t, e.Shuffle(zone.Self, zone.Deck))
		return contents(t, e, zone.Self, zone.Deck)
	}
	first := run()
	assert.Equal(t, first, run())
	assert.ElementsMatch(t, cards, first)
}

func TestFetch(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c", "d")

	r, err := e.Fetch(zone.Self, zone.Deck, 2, zone.Hand, false)
	require.NoError(t, err)
	assert.Equal(t, "c", r.ID)
	assert.Equal(t, []string{"a", "b", "d"}, contents(t, e, zone.Self, zone.Deck))

	_, err = e.Fetch(zone.Self, zone.Deck, 9, zone.Hand, true)
	assert.ErrorIs(t, err, ErrNoCard)
	assert.Equal(t, 4, totalCards(e, zone.Self))
}

func TestForesee(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c", "d", "e")

	window, err := e.Foresee(zone.Self, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(window))

	assert.ErrorIs(t, e.CommitForesee(zone.Self, []int{0}, nil), ErrBadArrangement)
	assert.ErrorIs(t, e.CommitForesee(zone.Self, []int{0, 0}, nil), ErrBadArrangement)

	require.NoError(t, e.CommitForesee(zone.Self, []int{1}, []int{0}))
	assert.Equal(t, []string{"b", "c", "d", "e", "a"}, contents(t, e, zone.Self, zone.Deck))
	assert.ErrorIs(t, e.CommitForesee(zone.Self, []int{0}, nil), ErrNoForesee)
}

func TestForeseeClosesOnDeckChange(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c")

	_, err := e.Foresee(zone.Self, 2)
	require.NoError(t, err)
	_, ok := e.MoveTop(zone.Self, zone.Deck, zone.Hand)
	require.True(t, ok)

	assert.ErrorIs(t, e.CommitForesee(zone.Self, []int{0, 1}, nil), ErrNoForesee)
	assert.Equal(t, []string{"b", "c"}, contents(t, e, zone.Self, zone.Deck))
}

func TestRoil(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c", "d", "e")
	_, err := e.Draw(zone.Self, 3)
	require.NoError(t, err)

	_, err = e.Roil(zone.Self, []int{0, 0})
	assert.ErrorIs(t, err, ErrBadIndices)
	_, err = e.Roil(zone.Self, []int{3})
	assert.ErrorIs(t, err, ErrBadIndices)
	assert.Equal(t, []string{"a", "b", "c"}, contents(t, e, zone.Self, zone.Hand))

	drawn, err := e.Roil(zone.Self, []int{2, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"d", "e"}, ids(drawn))
	assert.Equal(t, []string{"b", "d", "e"}, contents(t, e, zone.Self, zone.Hand))
	assert.Equal(t, []string{"c", "a"}, contents(t, e, zone.Self, zone.Deck))
}

func TestMulligan(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b", "c", "d", "e", "f")
	_, err := e.Draw(zone.Self, 3)
	require.NoError(t, err)
	events := recordEvents(e)

	drawn, err := e.Mulligan(zone.Self)
	require.NoError(t, err)
	assert.Len(t, drawn, 3)
	assert.Len(t, contents(t, e, zone.Self, zone.Hand), 3)
	assert.Len(t, contents(t, e, zone.Self, zone.Deck), 3)
	assert.Equal(t, 1, e.Mulligans(zone.Self))
	assert.Equal(t, 1, countEvents(*events, rules.EventMulligan))
	assert.Equal(t, 1, countEvents(*events, rules.EventShuffled))
	assert.Equal(t, 6, totalCards(e, zone.Self))
}

func TestSeedDeckRejectsBadLists(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a")

	err := e.SeedDeck(zone.Self, deck.List{})
	assert.ErrorIs(t, err, ErrInvalidDeck)
	err = e.SeedDeck(zone.Self, deck.List{Cards: []string{"a", " "}})
	assert.ErrorIs(t, err, ErrInvalidDeck)
	assert.Equal(t, []string{"a"}, contents(t, e, zone.Self, zone.Deck))
}

func TestPlayersAreIsolated(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "a", "b")
	seed(t, e, zone.Opponent, "x")

	_, err := e.Draw(zone.Opponent, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, contents(t, e, zone.Opponent, zone.Hand))
	assert.Empty(t, contents(t, e, zone.Self, zone.Hand))

	_, err = e.Draw(zone.Player(9), 1)
	assert.ErrorIs(t, err, ErrInvalidPlayer)
}

func TestCardEntryFallsBack(t *testing.T) {
	e := newTestEngine(t)
	seed(t, e, zone.Self, "mystery")
	_, err := e.Draw(zone.Self, 1)
	require.NoError(t, err)

	_, err = e.MoveToSlot(context.Background(), PlaceRequest{
		Source: zone.InPile(zone.Self, zone.Hand, 0),
		Player: zone.Self,
		Slot:   zone.UnitKey(1),
		Intent: zone.KindUnit,
	})
	require.NoError(t, err)

	entry, ok := e.CardEntry(context.Background(), zone.Self, zone.UnitKey(1))
	require.True(t, ok)
	assert.Equal(t, "mystery", entry.ID)
	assert.Zero(t, entry.Atk)
}
