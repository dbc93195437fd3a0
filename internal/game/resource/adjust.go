package resource

import "sync"

// Adjustment lowers (or raises, with negative values) the cost of matching
// cards. Results never drop below zero per element.
type Adjustment struct {
	ID        string
	Wildcard  int
	Fixed     Amounts
	AppliesTo func(cardID string, cost Cost) bool // nil matches every card
}

// Adjuster holds the active cost adjustments for one player.
type Adjuster struct {
	mu          sync.RWMutex
	adjustments []*Adjustment
}

// NewAdjuster creates an empty adjuster.
func NewAdjuster() *Adjuster {
	return &Adjuster{adjustments: make([]*Adjustment, 0)}
}

// Add registers an adjustment. An existing adjustment with the same ID is replaced.
func (a *Adjuster) Add(adj *Adjustment) {
	if adj == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.adjustments {
		if existing.ID == adj.ID {
			a.adjustments[i] = adj
			return
		}
	}
	a.adjustments = append(a.adjustments, adj)
}

// Remove drops an adjustment by ID.
func (a *Adjuster) Remove(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, adj := range a.adjustments {
		if adj.ID == id {
			a.adjustments = append(a.adjustments[:i], a.adjustments[i+1:]...)
			return true
		}
	}
	return false
}

// Clear drops every adjustment.
func (a *Adjuster) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adjustments = a.adjustments[:0]
}

// Len returns the number of active adjustments.
func (a *Adjuster) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.adjustments)
}

// Apply returns cost with every matching adjustment subtracted.
func (a *Adjuster) Apply(cardID string, cost Cost) Cost {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := cost.Clone()
	for _, adj := range a.adjustments {
		if adj.AppliesTo != nil && !adj.AppliesTo(cardID, cost) {
			continue
		}
		out.Wildcard -= adj.Wildcard
		if out.Wildcard < 0 {
			out.Wildcard = 0
		}
		for el, n := range adj.Fixed {
			v := out.Fixed[el] - n
			if v <= 0 {
				delete(out.Fixed, el)
			} else {
				out.Fixed[el] = v
			}
		}
	}
	return out
}
