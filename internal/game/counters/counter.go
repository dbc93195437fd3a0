package counters

import "sort"

// Counters maps counter kinds to positive counts. Kinds whose count reaches
// zero are removed, never stored.
type Counters struct {
	counts map[Kind]int
}

// NewCounters creates a new empty collection.
func NewCounters() *Counters {
	return &Counters{counts: make(map[Kind]int)}
}

// FromMap builds a collection from m, dropping non-positive entries.
func FromMap(m map[Kind]int) *Counters {
	cs := NewCounters()
	for k, n := range m {
		if n > 0 {
			cs.counts[k] = n
		}
	}
	return cs
}

// Add adds amount counters of kind. Non-positive amounts are ignored.
func (cs *Counters) Add(kind Kind, amount int) {
	if amount <= 0 || kind == "" {
		return
	}
	cs.counts[kind] += amount
}

// Remove removes up to amount counters of kind and returns how many were
// removed. The kind disappears when its count hits zero.
func (cs *Counters) Remove(kind Kind, amount int) int {
	if amount <= 0 {
		return 0
	}
	have, ok := cs.counts[kind]
	if !ok {
		return 0
	}
	if amount > have {
		amount = have
	}
	if have == amount {
		delete(cs.counts, kind)
	} else {
		cs.counts[kind] = have - amount
	}
	return amount
}

// Count returns the count of kind.
func (cs *Counters) Count(kind Kind) int {
	return cs.counts[kind]
}

// Has returns true if there is at least one counter of kind.
func (cs *Counters) Has(kind Kind) bool {
	return cs.counts[kind] > 0
}

// Total returns the number of counters of every kind.
func (cs *Counters) Total() int {
	total := 0
	for _, n := range cs.counts {
		total += n
	}
	return total
}

// Empty reports whether there are no counters.
func (cs *Counters) Empty() bool {
	return len(cs.counts) == 0
}

// Kinds returns the present kinds in sorted order.
func (cs *Counters) Kinds() []Kind {
	kinds := make([]Kind, 0, len(cs.counts))
	for k := range cs.counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Map returns a copy of the counts.
func (cs *Counters) Map() map[Kind]int {
	out := make(map[Kind]int, len(cs.counts))
	for k, n := range cs.counts {
		out[k] = n
	}
	return out
}

// Effect sums the stat effects of every stat-bearing counter.
func (cs *Counters) Effect() Delta {
	var total Delta
	for k, n := range cs.counts {
		if d, ok := effects[k]; ok {
			total = total.Add(d.Scale(n))
		}
	}
	return total
}

// Copy creates a deep copy of the collection.
func (cs *Counters) Copy() *Counters {
	return FromMap(cs.counts)
}

// Clear removes every counter.
func (cs *Counters) Clear() {
	cs.counts = make(map[Kind]int)
}

// ToView converts counters to the view format, sorted by kind.
func (cs *Counters) ToView() []CounterView {
	views := make([]CounterView, 0, len(cs.counts))
	for _, k := range cs.Kinds() {
		views = append(views, CounterView{Kind: k, Count: cs.counts[k]})
	}
	return views
}

// CounterView represents a counter in the view format.
type CounterView struct {
	Kind  Kind `json:"kind"`
	Count int  `json:"count"`
}
