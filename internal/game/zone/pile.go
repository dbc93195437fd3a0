package zone

import "math/rand/v2"

// Pile is an ordered sequence of card references. Index 0 is the top
// (accessible end). Duplicates are allowed; removal is always by index.
type Pile struct {
	cards []Ref
}

// NewPile creates a pile holding refs in order, top first.
func NewPile(refs ...Ref) *Pile {
	p := &Pile{cards: make([]Ref, 0, len(refs))}
	p.cards = append(p.cards, refs...)
	return p
}

// Len returns the number of cards.
func (p *Pile) Len() int {
	return len(p.cards)
}

// Empty reports whether the pile has no cards.
func (p *Pile) Empty() bool {
	return len(p.cards) == 0
}

// At returns the card at index i.
func (p *Pile) At(i int) (Ref, bool) {
	if i < 0 || i >= len(p.cards) {
		return Ref{}, false
	}
	return p.cards[i], true
}

// Top returns the top card without removing it.
func (p *Pile) Top() (Ref, bool) {
	return p.At(0)
}

// Cards returns a copy of the contents, top first.
func (p *Pile) Cards() []Ref {
	out := make([]Ref, len(p.cards))
	copy(out, p.cards)
	return out
}

// PushTop places r at index 0.
func (p *Pile) PushTop(r Ref) {
	p.Insert(0, r)
}

// PushBottom places r at the end.
func (p *Pile) PushBottom(r Ref) {
	p.cards = append(p.cards, r)
}

// Insert places r at index i, clamped to [0, Len()].
func (p *Pile) Insert(i int, r Ref) {
	if i < 0 {
		i = 0
	}
	if i >= len(p.cards) {
		p.cards = append(p.cards, r)
		return
	}
	p.cards = append(p.cards, Ref{})
	copy(p.cards[i+1:], p.cards[i:])
	p.cards[i] = r
}

// RemoveAt removes and returns the card at index i.
func (p *Pile) RemoveAt(i int) (Ref, bool) {
	if i < 0 || i >= len(p.cards) {
		return Ref{}, false
	}
	r := p.cards[i]
	p.cards = append(p.cards[:i], p.cards[i+1:]...)
	return r, true
}

// PopTop removes and returns the top card.
func (p *Pile) PopTop() (Ref, bool) {
	return p.RemoveAt(0)
}

// Move relocates the card at from so that it ends up at index to.
func (p *Pile) Move(from, to int) bool {
	if from < 0 || from >= len(p.cards) || to < 0 || to >= len(p.cards) {
		return false
	}
	if from == to {
		return true
	}
	r, _ := p.RemoveAt(from)
	p.Insert(to, r)
	return true
}

// Shuffle applies a Fisher–Yates permutation using rng.
func (p *Pile) Shuffle(rng *rand.Rand) {
	for i := len(p.cards) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		p.cards[i], p.cards[j] = p.cards[j], p.cards[i]
	}
}

// Replace swaps the whole contents for refs.
func (p *Pile) Replace(refs []Ref) {
	p.cards = append(p.cards[:0:0], refs...)
}

// Clear empties the pile and returns what it held.
func (p *Pile) Clear() []Ref {
	out := p.cards
	p.cards = make([]Ref, 0)
	return out
}

// Count returns how many copies of id the pile holds.
func (p *Pile) Count(id string) int {
	n := 0
	for _, r := range p.cards {
		if r.ID == id {
			n++
		}
	}
	return n
}
