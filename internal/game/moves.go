package game

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/deck"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Position picks where a card lands in an ordered zone.
type Position int

const (
	// Top is index 0.
	Top Position = 0
	// Bottom is after the last card.
	Bottom Position = -1
)

func (e *Engine) pile(ps *playerState, z zone.Zone) (*zone.Pile, error) {
	if !z.Ordered() {
		return nil, fmt.Errorf("%s: %w", z, ErrInvalidZone)
	}
	return ps.board.Pile(z), nil
}

// pushOnto puts r on dst's accessible end. Hand grows at the end so that
// drawn cards keep their draw order.
func pushOnto(dst *zone.Pile, z zone.Zone, r zone.Ref) {
	if z == zone.Hand {
		dst.PushBottom(r)
		return
	}
	dst.PushTop(r)
}

func insertAt(dst *zone.Pile, pos Position, r zone.Ref) {
	if pos == Bottom {
		dst.PushBottom(r)
		return
	}
	dst.Insert(int(pos), r)
}

// MoveTop pops the top card of src and pushes it onto dst. It returns false
// when src is empty or either zone is not ordered.
func (e *Engine) MoveTop(p zone.Player, src, dst zone.Zone) (zone.Ref, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	r, err := e.moveTopLocked(p, src, dst)
	return r, err == nil
}

func (e *Engine) moveTopLocked(p zone.Player, src, dst zone.Zone) (zone.Ref, error) {
	ps, err := e.state(p)
	if err != nil {
		return zone.Ref{}, err
	}
	from, err := e.pile(ps, src)
	if err != nil {
		return zone.Ref{}, err
	}
	to, err := e.pile(ps, dst)
	if err != nil {
		return zone.Ref{}, err
	}
	r, ok := from.PopTop()
	if !ok {
		return zone.Ref{}, fmt.Errorf("%s %s: %w", p, src, ErrEmptySource)
	}
	pushOnto(to, dst, r)
	if src == zone.Deck || dst == zone.Deck {
		ps.foresee = nil
	}
	e.publish(e.zoneEvent(rules.EventZoneChange, p, r, src.String(), dst.String()))
	return r, nil
}

// MoveMany moves the top n cards of src to dst one at a time. n is clamped
// to the size of src. It returns the moved cards in move order.
func (e *Engine) MoveMany(p zone.Player, src, dst zone.Zone, n int) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.moveManyLocked(p, src, dst, n)
}

func (e *Engine) moveManyLocked(p zone.Player, src, dst zone.Zone, n int) ([]zone.Ref, error) {
	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	from, err := e.pile(ps, src)
	if err != nil {
		return nil, err
	}
	if _, err := e.pile(ps, dst); err != nil {
		return nil, err
	}
	if n > from.Len() {
		n = from.Len()
	}
	moved := make([]zone.Ref, 0, n)
	for i := 0; i < n; i++ {
		r, err := e.moveTopLocked(p, src, dst)
		if err != nil {
			break
		}
		moved = append(moved, r)
	}
	if len(moved) > 0 {
		evt := rules.NewEventWithAmount(rules.EventZoneChangeBatch, "", p.String(), len(moved))
		evt.Metadata["from"] = src.String()
		evt.Metadata["to"] = dst.String()
		evt.Payload = moved
		e.publish(evt)
	}
	return moved, nil
}

// Draw moves up to n cards from the deck to the hand.
func (e *Engine) Draw(p zone.Player, n int) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.drawLocked(p, n)
}

func (e *Engine) drawLocked(p zone.Player, n int) ([]zone.Ref, error) {
	drawn, err := e.moveManyLocked(p, zone.Deck, zone.Hand, n)
	if err != nil {
		return nil, err
	}
	if len(drawn) > 0 {
		evt := rules.NewEventWithAmount(rules.EventCardDrawn, "", p.String(), len(drawn))
		evt.Description = fmt.Sprintf("%s drew %d card(s)", p, len(drawn))
		e.publish(evt)
	}
	return drawn, nil
}

// Reorder moves the card at from to index to inside an ordered zone. It is
// only legal while the caller shows the zone's full contents.
func (e *Engine) Reorder(p zone.Player, z zone.Zone, from, to int, view zone.ViewMode) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if view != zone.ViewOpen {
		return ErrClosedView
	}
	ps, err := e.state(p)
	if err != nil {
		return err
	}
	pile, err := e.pile(ps, z)
	if err != nil {
		return err
	}
	if !pile.Move(from, to) {
		return fmt.Errorf("%s %s[%d]: %w", p, z, from, ErrNoCard)
	}
	if z == zone.Deck {
		ps.foresee = nil
	}
	evt := rules.NewEvent(rules.EventReordered, "", p.String())
	evt.Zone = z.String()
	evt.Metadata["from"] = fmt.Sprint(from)
	evt.Metadata["to"] = fmt.Sprint(to)
	e.publish(evt)
	return nil
}

// Shuffle randomizes the full contents of an ordered zone.
func (e *Engine) Shuffle(p zone.Player, z zone.Zone) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shuffleLocked(p, z)
}

func (e *Engine) shuffleLocked(p zone.Player, z zone.Zone) error {
	ps, err := e.state(p)
	if err != nil {
		return err
	}
	pile, err := e.pile(ps, z)
	if err != nil {
		return err
	}
	pile.Shuffle(e.rng)
	if z == zone.Deck {
		ps.foresee = nil
	}
	evt := rules.NewEventWithAmount(rules.EventShuffled, "", p.String(), pile.Len())
	evt.Zone = z.String()
	e.publish(evt)
	return nil
}

// Fetch moves the card at index of src onto dst. With shuffle set and src
// being the deck, the deck is shuffled afterwards.
func (e *Engine) Fetch(p zone.Player, src zone.Zone, index int, dst zone.Zone, shuffle bool) (zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return zone.Ref{}, err
	}
	from, err := e.pile(ps, src)
	if err != nil {
		return zone.Ref{}, err
	}
	to, err := e.pile(ps, dst)
	if err != nil {
		return zone.Ref{}, err
	}
	r, ok := from.RemoveAt(index)
	if !ok {
		return zone.Ref{}, fmt.Errorf("%s %s[%d]: %w", p, src, index, ErrNoCard)
	}
	pushOnto(to, dst, r)
	if src == zone.Deck || dst == zone.Deck {
		ps.foresee = nil
	}
	e.publish(e.zoneEvent(rules.EventZoneChange, p, r, src.String(), dst.String()))
	if shuffle && src == zone.Deck {
		if err := e.shuffleLocked(p, zone.Deck); err != nil {
			return r, err
		}
	}
	return r, nil
}

// Foresee reveals the top n cards of the deck (clamped) and opens a window
// for CommitForesee. Any change to the deck closes the window.
func (e *Engine) Foresee(p zone.Player, n int) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	cards := ps.board.Pile(zone.Deck).Cards()
	if n < 0 {
		n = 0
	}
	if n > len(cards) {
		n = len(cards)
	}
	window := append([]zone.Ref(nil), cards[:n]...)
	ps.foresee = window

	evt := rules.NewEventWithAmount(rules.EventForeseen, "", p.String(), n)
	evt.Zone = zone.Deck.String()
	e.publish(evt)
	return append([]zone.Ref(nil), window...), nil
}

// CommitForesee rearranges the foreseen cards: top lists window indices that
// stay on top in the given order, bottom lists those sent to the bottom in
// the given order. Every window index must appear exactly once.
func (e *Engine) CommitForesee(p zone.Player, top, bottom []int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return err
	}
	window := ps.foresee
	if window == nil {
		return ErrNoForesee
	}
	n := len(window)
	seen := make([]bool, n)
	for _, i := range append(append([]int(nil), top...), bottom...) {
		if i < 0 || i >= n || seen[i] {
			return ErrBadArrangement
		}
		seen[i] = true
	}
	if len(top)+len(bottom) != n {
		return ErrBadArrangement
	}

	deckPile := ps.board.Pile(zone.Deck)
	cards := deckPile.Cards()
	if len(cards) < n {
		ps.foresee = nil
		return ErrStaleSource
	}
	for i := range window {
		if cards[i] != window[i] {
			ps.foresee = nil
			return ErrStaleSource
		}
	}

	arranged := make([]zone.Ref, 0, len(cards))
	for _, i := range top {
		arranged = append(arranged, window[i])
	}
	arranged = append(arranged, cards[n:]...)
	for _, i := range bottom {
		arranged = append(arranged, window[i])
	}
	deckPile.Replace(arranged)
	ps.foresee = nil

	evt := rules.NewEventWithAmount(rules.EventReordered, "", p.String(), n)
	evt.Zone = zone.Deck.String()
	evt.Metadata["top"] = fmt.Sprint(len(top))
	evt.Metadata["bottom"] = fmt.Sprint(len(bottom))
	e.publish(evt)
	return nil
}

// Roil puts the chosen hand cards on the bottom of the deck in the given
// order, then draws the same number.
func (e *Engine) Roil(p zone.Player, handIndices []int) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	hand := ps.board.Pile(zone.Hand)
	if err := checkIndices(handIndices, hand.Len()); err != nil {
		return nil, err
	}
	chosen := make([]zone.Ref, len(handIndices))
	for i, idx := range handIndices {
		chosen[i], _ = hand.At(idx)
	}
	removeIndices(hand, handIndices)

	deckPile := ps.board.Pile(zone.Deck)
	for _, r := range chosen {
		deckPile.PushBottom(r)
		e.publish(e.zoneEvent(rules.EventZoneChange, p, r, zone.Hand.String(), zone.Deck.String()))
	}
	ps.foresee = nil
	return e.drawLocked(p, len(chosen))
}

// Mulligan returns the whole hand to the deck, shuffles, and draws the same
// number of cards.
func (e *Engine) Mulligan(p zone.Player) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	returned := ps.board.Pile(zone.Hand).Clear()
	deckPile := ps.board.Pile(zone.Deck)
	for _, r := range returned {
		deckPile.PushBottom(r)
	}
	if err := e.shuffleLocked(p, zone.Deck); err != nil {
		return nil, err
	}
	ps.mulligans++

	drawn, err := e.drawLocked(p, len(returned))
	if err != nil {
		return nil, err
	}

	evt := rules.NewEventWithAmount(rules.EventMulligan, "", p.String(), ps.mulligans)
	evt.Metadata["hand_size"] = fmt.Sprint(len(drawn))
	e.publish(evt)

	if e.logger != nil {
		e.logger.Info("player mulliganed",
			zap.String("player", p.String()),
			zap.Int("mulligan_count", ps.mulligans),
			zap.Int("hand_size", len(drawn)),
		)
	}
	return drawn, nil
}

// Mulligans returns how many times p has mulliganed this game.
func (e *Engine) Mulligans(p zone.Player) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, err := e.state(p); err == nil {
		return ps.mulligans
	}
	return 0
}

// SeedDeck replaces p's deck with list, top first.
func (e *Engine) SeedDeck(p zone.Player, list deck.List) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seedDeckLocked(p, list)
}

func (e *Engine) seedDeckLocked(p zone.Player, list deck.List) error {
	ps, err := e.state(p)
	if err != nil {
		return err
	}
	if err := list.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDeck, err)
	}
	refs := make([]zone.Ref, len(list.Cards))
	for i, id := range list.Cards {
		refs[i] = zone.NewRef(id)
	}
	ps.board.Pile(zone.Deck).Replace(refs)
	ps.foresee = nil

	if e.logger != nil {
		e.logger.Debug("deck seeded",
			zap.String("player", p.String()),
			zap.String("format", list.Format),
			zap.Int("cards", len(refs)),
		)
	}
	return nil
}

// Contents returns a copy of an ordered zone, top first.
func (e *Engine) Contents(p zone.Player, z zone.Zone) ([]zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	pile, err := e.pile(ps, z)
	if err != nil {
		return nil, err
	}
	return pile.Cards(), nil
}

// Counts tallies every card id p owns across zones and slots.
func (e *Engine) Counts(p zone.Player) map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ps, err := e.state(p); err == nil {
		return ps.board.Counts()
	}
	return nil
}

func checkIndices(indices []int, n int) error {
	seen := make(map[int]bool, len(indices))
	for _, i := range indices {
		if i < 0 || i >= n || seen[i] {
			return ErrBadIndices
		}
		seen[i] = true
	}
	return nil
}

// removeIndices removes the given distinct indices, highest first so earlier
// indices stay valid.
func removeIndices(p *zone.Pile, indices []int) {
	sorted := append([]int(nil), indices...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for _, i := range sorted {
		p.RemoveAt(i)
	}
}
