package resource

import (
	"sort"
	"sync"
)

// Element names a resource type, e.g. "Water".
type Element string

// Amounts maps elements to counts.
type Amounts map[Element]int

// DefaultCap is the per-element ceiling a pool starts with.
const DefaultCap = 10

// Total sums every value in a.
func (a Amounts) Total() int {
	total := 0
	for _, v := range a {
		total += v
	}
	return total
}

// Copy returns an independent copy of a with zero entries dropped.
func (a Amounts) Copy() Amounts {
	out := make(Amounts, len(a))
	for k, v := range a {
		if v != 0 {
			out[k] = v
		}
	}
	return out
}

// Elements returns the keys of a in sorted order.
func (a Amounts) Elements() []Element {
	keys := make([]Element, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Pool is one player's resource pool. Values never go negative and stay at
// or below the cap unless the element's override flag is set.
type Pool struct {
	mu sync.RWMutex

	values    Amounts
	overrides map[Element]bool
	cap       int
}

// NewPool creates an empty pool. A non-positive cap selects DefaultCap.
func NewPool(cap int) *Pool {
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Pool{
		values:    make(Amounts),
		overrides: make(map[Element]bool),
		cap:       cap,
	}
}

// Cap returns the per-element ceiling.
func (p *Pool) Cap() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.cap
}

// Value returns the current value of el.
func (p *Pool) Value(el Element) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values[el]
}

// Override reports whether el may exceed the cap.
func (p *Pool) Override(el Element) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.overrides[el]
}

// SetOverride toggles the override flag for el.
func (p *Pool) SetOverride(el Element, on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if on {
		p.overrides[el] = true
	} else {
		delete(p.overrides, el)
	}
}

// limitLocked returns the highest value el may reach.
func (p *Pool) limitLocked(el Element, strict bool) int {
	if !strict && p.overrides[el] {
		return int(^uint(0) >> 1)
	}
	return p.cap
}

// Produce adds one unit of el. Strict production always respects the cap,
// even when the override flag is set. Returns false when nothing changed.
func (p *Pool) Produce(el Element, strict bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.values[el] >= p.limitLocked(el, strict) {
		return false
	}
	p.values[el]++
	return true
}

// Set assigns el directly, clamped to [0, cap] unless override is set.
func (p *Pool) Set(el Element, value int) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if value < 0 {
		value = 0
	}
	if limit := p.limitLocked(el, false); value > limit {
		value = limit
	}
	if value == 0 {
		delete(p.values, el)
	} else {
		p.values[el] = value
	}
	return value
}

// Spend debits amounts, clamping each element at zero. It never fails and
// returns what was actually taken.
func (p *Pool) Spend(amounts Amounts) Amounts {
	p.mu.Lock()
	defer p.mu.Unlock()

	taken := make(Amounts)
	for el, n := range amounts {
		if n <= 0 {
			continue
		}
		have := p.values[el]
		if n > have {
			n = have
		}
		if n == 0 {
			continue
		}
		p.values[el] = have - n
		if p.values[el] == 0 {
			delete(p.values, el)
		}
		taken[el] = n
	}
	return taken
}

// Refund returns amounts to the pool, capped like non-strict production.
func (p *Pool) Refund(amounts Amounts) Amounts {
	p.mu.Lock()
	defer p.mu.Unlock()

	returned := make(Amounts)
	for el, n := range amounts {
		if n <= 0 {
			continue
		}
		room := p.limitLocked(el, false) - p.values[el]
		if room <= 0 {
			continue
		}
		if n > room {
			n = room
		}
		p.values[el] += n
		returned[el] = n
	}
	return returned
}

// Covers reports whether the pool holds at least amounts of every element.
func (p *Pool) Covers(amounts Amounts) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for el, n := range amounts {
		if n > p.values[el] {
			return false
		}
	}
	return true
}

// Values returns a copy of the current values.
func (p *Pool) Values() Amounts {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values.Copy()
}

// Overrides returns the elements whose override flag is set.
func (p *Pool) Overrides() []Element {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Element, 0, len(p.overrides))
	for el := range p.overrides {
		out = append(out, el)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Total returns the sum across all elements.
func (p *Pool) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.values.Total()
}

// Reset empties the pool and clears every override flag.
func (p *Pool) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = make(Amounts)
	p.overrides = make(map[Element]bool)
}

// Copy creates a deep copy of the pool.
func (p *Pool) Copy() *Pool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := &Pool{
		values:    p.values.Copy(),
		overrides: make(map[Element]bool, len(p.overrides)),
		cap:       p.cap,
	}
	for el, on := range p.overrides {
		cp.overrides[el] = on
	}
	return cp
}
