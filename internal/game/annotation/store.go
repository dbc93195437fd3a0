// Package annotation keeps per-slot metadata: counters, stat modifiers,
// labels and resource hoards. Everything is keyed by slot key, one store per
// player.
package annotation

import (
	"sort"

	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Stats are the three displayed stats of a card.
type Stats struct {
	Atk int `json:"atk"`
	Def int `json:"def"`
	HP  int `json:"hp"`
}

// Apply returns s shifted by d.
func (s Stats) Apply(d counters.Delta) Stats {
	return Stats{Atk: s.Atk + d.Atk, Def: s.Def + d.Def, HP: s.HP + d.HP}
}

// Set is everything attached to one slot.
type Set struct {
	Counters *counters.Counters
	Mods     counters.Delta
	Labels   []string
	Hoard    resource.Amounts
}

func newSet() *Set {
	return &Set{
		Counters: counters.NewCounters(),
		Labels:   make([]string, 0),
		Hoard:    make(resource.Amounts),
	}
}

// Empty reports whether the set carries nothing.
func (s *Set) Empty() bool {
	return s.Counters.Empty() && s.Mods.IsZero() && len(s.Labels) == 0 && len(s.Hoard) == 0
}

// Copy returns a deep copy.
func (s *Set) Copy() *Set {
	return &Set{
		Counters: s.Counters.Copy(),
		Mods:     s.Mods,
		Labels:   append([]string(nil), s.Labels...),
		Hoard:    s.Hoard.Copy(),
	}
}

// Store holds the annotation sets of one player's slots.
type Store struct {
	sets map[zone.SlotKey]*Set
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{sets: make(map[zone.SlotKey]*Set)}
}

// Get returns the set at key, if any.
func (st *Store) Get(key zone.SlotKey) (*Set, bool) {
	s, ok := st.sets[key]
	return s, ok
}

// Ensure returns the set at key, creating an empty one.
func (st *Store) Ensure(key zone.SlotKey) *Set {
	s, ok := st.sets[key]
	if !ok {
		s = newSet()
		st.sets[key] = s
	}
	return s
}

// Snapshot returns a deep copy of the set at key, or an empty set.
func (st *Store) Snapshot(key zone.SlotKey) *Set {
	if s, ok := st.sets[key]; ok {
		return s.Copy()
	}
	return newSet()
}

// tidy drops an empty set so that Keys reflects only meaningful entries.
func (st *Store) tidy(key zone.SlotKey) {
	if s, ok := st.sets[key]; ok && s.Empty() {
		delete(st.sets, key)
	}
}

// ClearAll removes every counter, modifier, label and hoard at key.
func (st *Store) ClearAll(key zone.SlotKey) bool {
	_, ok := st.sets[key]
	delete(st.sets, key)
	return ok
}

// Migrate moves the whole set from one key to another, replacing whatever
// was at the destination. Nothing remains at from.
func (st *Store) Migrate(from, to zone.SlotKey) {
	if from == to {
		return
	}
	s, ok := st.sets[from]
	delete(st.sets, to)
	if !ok {
		return
	}
	delete(st.sets, from)
	st.sets[to] = s
}

// Keys returns the annotated keys in sorted order.
func (st *Store) Keys() []zone.SlotKey {
	keys := make([]zone.SlotKey, 0, len(st.sets))
	for k := range st.sets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Prune drops every set whose key is not occupied and returns the dropped keys.
func (st *Store) Prune(occupied func(zone.SlotKey) bool) []zone.SlotKey {
	var dropped []zone.SlotKey
	for _, k := range st.Keys() {
		if !occupied(k) {
			delete(st.sets, k)
			dropped = append(dropped, k)
		}
	}
	return dropped
}

// Reset empties the store.
func (st *Store) Reset() {
	st.sets = make(map[zone.SlotKey]*Set)
}

// Counters returns the live counter collection at key.
func (st *Store) Counters(key zone.SlotKey) *counters.Counters {
	return st.Ensure(key).Counters
}

// ReplaceCounters swaps the counter collection at key.
func (st *Store) ReplaceCounters(key zone.SlotKey, cs *counters.Counters) {
	st.Ensure(key).Counters = cs
	st.tidy(key)
}

// Tidy drops the set at key if it became empty after a direct mutation.
func (st *Store) Tidy(key zone.SlotKey) {
	st.tidy(key)
}

// ModifyStat adds delta to one stat modifier.
func (st *Store) ModifyStat(key zone.SlotKey, stat counters.Stat, delta int) counters.Delta {
	s := st.Ensure(key)
	s.Mods = s.Mods.With(stat, delta)
	mods := s.Mods
	st.tidy(key)
	return mods
}

// ClearMods zeroes the stat modifiers at key.
func (st *Store) ClearMods(key zone.SlotKey) {
	if s, ok := st.sets[key]; ok {
		s.Mods = counters.Delta{}
		st.tidy(key)
	}
}

// AddLabel appends label at key.
func (st *Store) AddLabel(key zone.SlotKey, label string) {
	if label == "" {
		return
	}
	s := st.Ensure(key)
	s.Labels = append(s.Labels, label)
}

// RemoveLabel removes the first occurrence of label at key.
func (st *Store) RemoveLabel(key zone.SlotKey, label string) bool {
	s, ok := st.sets[key]
	if !ok {
		return false
	}
	for i, l := range s.Labels {
		if l == label {
			s.Labels = append(s.Labels[:i], s.Labels[i+1:]...)
			st.tidy(key)
			return true
		}
	}
	return false
}

// ClearLabels removes every label at key.
func (st *Store) ClearLabels(key zone.SlotKey) {
	if s, ok := st.sets[key]; ok {
		s.Labels = s.Labels[:0]
		st.tidy(key)
	}
}

// AddHoard stores n resources of el on the card at key.
func (st *Store) AddHoard(key zone.SlotKey, el resource.Element, n int) int {
	if n <= 0 {
		return st.HoardOf(key)[el]
	}
	s := st.Ensure(key)
	s.Hoard[el] += n
	return s.Hoard[el]
}

// RemoveHoard takes up to n resources of el from key and returns how many.
func (st *Store) RemoveHoard(key zone.SlotKey, el resource.Element, n int) int {
	s, ok := st.sets[key]
	if !ok || n <= 0 {
		return 0
	}
	have := s.Hoard[el]
	if n > have {
		n = have
	}
	if n == have {
		delete(s.Hoard, el)
	} else {
		s.Hoard[el] = have - n
	}
	st.tidy(key)
	return n
}

// HoardOf returns a copy of the hoard at key.
func (st *Store) HoardOf(key zone.SlotKey) resource.Amounts {
	if s, ok := st.sets[key]; ok {
		return s.Hoard.Copy()
	}
	return resource.Amounts{}
}

// Display computes base + stat modifiers + counter effects for key.
func (st *Store) Display(key zone.SlotKey, base Stats) Stats {
	s, ok := st.sets[key]
	if !ok {
		return base
	}
	return base.Apply(s.Mods).Apply(s.Counters.Effect())
}
