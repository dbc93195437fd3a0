package zone

import (
	"fmt"
	"sort"
)

// Board is one player's positional state: the ordered zones plus the slots.
// Board performs no rule checks; the engine owns that.
type Board struct {
	piles map[Zone]*Pile
	slots map[SlotKey]Ref
}

// NewBoard returns an empty board.
func NewBoard() *Board {
	b := &Board{
		piles: make(map[Zone]*Pile, len(OrderedZones)),
		slots: make(map[SlotKey]Ref),
	}
	for _, z := range OrderedZones {
		b.piles[z] = NewPile()
	}
	return b
}

// Pile returns the ordered zone z, or nil for Slots.
func (b *Board) Pile(z Zone) *Pile {
	return b.piles[z]
}

// Slot returns the occupant of key.
func (b *Board) Slot(key SlotKey) (Ref, bool) {
	r, ok := b.slots[key]
	return r, ok
}

// Occupied reports whether key holds a card.
func (b *Board) Occupied(key SlotKey) bool {
	_, ok := b.slots[key]
	return ok
}

// Put places r at key, returning the previous occupant if any.
func (b *Board) Put(key SlotKey, r Ref) (Ref, bool) {
	prev, had := b.slots[key]
	b.slots[key] = r
	return prev, had
}

// Take empties key and returns what it held.
func (b *Board) Take(key SlotKey) (Ref, bool) {
	r, ok := b.slots[key]
	if ok {
		delete(b.slots, key)
	}
	return r, ok
}

// OccupiedKeys returns the occupied keys sorted for stable iteration.
func (b *Board) OccupiedKeys() []SlotKey {
	keys := make([]SlotKey, 0, len(b.slots))
	for k := range b.slots {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// SlotContents returns a copy of the slot map.
func (b *Board) SlotContents() map[SlotKey]Ref {
	out := make(map[SlotKey]Ref, len(b.slots))
	for k, v := range b.slots {
		out[k] = v
	}
	return out
}

// At returns the card at loc, ignoring loc.Player.
func (b *Board) At(loc Location) (Ref, bool) {
	if loc.IsSlot() {
		return b.Slot(loc.Slot)
	}
	p := b.Pile(loc.Zone)
	if p == nil {
		return Ref{}, false
	}
	return p.At(loc.Index)
}

// Remove takes the card at loc out of the board.
func (b *Board) Remove(loc Location) (Ref, error) {
	if loc.IsSlot() {
		r, ok := b.Take(loc.Slot)
		if !ok {
			return Ref{}, fmt.Errorf("slot %s is empty", loc.Slot)
		}
		return r, nil
	}
	p := b.Pile(loc.Zone)
	if p == nil {
		return Ref{}, fmt.Errorf("unknown zone %s", loc.Zone)
	}
	r, ok := p.RemoveAt(loc.Index)
	if !ok {
		return Ref{}, fmt.Errorf("no card at %s[%d]", loc.Zone, loc.Index)
	}
	return r, nil
}

// Counts tallies every card ID across piles and slots.
func (b *Board) Counts() map[string]int {
	out := make(map[string]int)
	for _, z := range OrderedZones {
		for _, r := range b.piles[z].cards {
			out[r.ID]++
		}
	}
	for _, r := range b.slots {
		out[r.ID]++
	}
	return out
}

// Total returns the number of cards on the board.
func (b *Board) Total() int {
	n := len(b.slots)
	for _, z := range OrderedZones {
		n += b.piles[z].Len()
	}
	return n
}

// Reset empties every zone and slot.
func (b *Board) Reset() {
	for _, z := range OrderedZones {
		b.piles[z].Clear()
	}
	b.slots = make(map[SlotKey]Ref)
}
