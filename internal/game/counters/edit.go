package counters

import "sort"

// Edit is an open editing session over a copy of a counter collection.
// Zero is a valid transient value inside the session; Commit prunes it.
type Edit struct {
	original map[Kind]int
	working  map[Kind]int
}

// BeginEdit opens a session seeded from cs. cs is not modified until the
// caller writes the committed result back.
func BeginEdit(cs *Counters) *Edit {
	e := &Edit{
		original: cs.Map(),
		working:  cs.Map(),
	}
	return e
}

// Set assigns kind directly. Negative values are clamped to zero.
func (e *Edit) Set(kind Kind, n int) {
	if kind == "" {
		return
	}
	if n < 0 {
		n = 0
	}
	e.working[kind] = n
}

// Increment adds one counter of kind.
func (e *Edit) Increment(kind Kind) {
	e.Set(kind, e.working[kind]+1)
}

// Decrement removes one counter of kind, stopping at zero. The kind stays in
// the session at zero until Commit.
func (e *Edit) Decrement(kind Kind) {
	if _, ok := e.working[kind]; ok {
		e.Set(kind, e.working[kind]-1)
	}
}

// Value returns the working count of kind and whether the session holds it.
func (e *Edit) Value(kind Kind) (int, bool) {
	n, ok := e.working[kind]
	return n, ok
}

// Kinds returns every kind in the session, including zeros, sorted.
func (e *Edit) Kinds() []Kind {
	kinds := make([]Kind, 0, len(e.working))
	for k := range e.working {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Changes returns the per-kind difference from the session's starting point.
func (e *Edit) Changes() map[Kind]int {
	out := make(map[Kind]int)
	for k, n := range e.working {
		if d := n - e.original[k]; d != 0 {
			out[k] = d
		}
	}
	for k, n := range e.original {
		if _, ok := e.working[k]; !ok {
			out[k] = -n
		}
	}
	return out
}

// Commit returns the pruned result of the session.
func (e *Edit) Commit() *Counters {
	return FromMap(e.working)
}
