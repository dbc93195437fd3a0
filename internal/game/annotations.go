package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cardtable/cardtable-go/internal/game/annotation"
	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// occupied returns the player state and occupant of key. Annotations may
// only be written to occupied slots.
func (e *Engine) occupied(p zone.Player, key zone.SlotKey) (*playerState, zone.Ref, error) {
	ps, err := e.state(p)
	if err != nil {
		return nil, zone.Ref{}, err
	}
	if !key.Valid() {
		return nil, zone.Ref{}, fmt.Errorf("%q: %w", key, ErrInvalidSlot)
	}
	r, ok := ps.board.Slot(key)
	if !ok {
		return nil, zone.Ref{}, fmt.Errorf("%s %s: %w", p, key, ErrSlotEmpty)
	}
	return ps, r, nil
}

// AddCounter puts n counters of kind on the card in key.
func (e *Engine) AddCounter(p zone.Player, key zone.SlotKey, kind counters.Kind, n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return 0, err
	}
	kind = counters.Normalize(string(kind))
	added := e.counterOps.Add(ps.notes.Counters(key), p.String(), string(key), r.ID, kind, n)
	ps.notes.Tidy(key)
	return added, nil
}

// RemoveCounter takes up to n counters of kind off the card in key.
func (e *Engine) RemoveCounter(p zone.Player, key zone.SlotKey, kind counters.Kind, n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return 0, err
	}
	set, ok := ps.notes.Get(key)
	if !ok {
		return 0, nil
	}
	kind = counters.Normalize(string(kind))
	removed := e.counterOps.Remove(set.Counters, p.String(), string(key), r.ID, kind, n)
	ps.notes.Tidy(key)
	return removed, nil
}

// Inflict adds n damage counters.
func (e *Engine) Inflict(p zone.Player, key zone.SlotKey, n int) (int, error) {
	return e.AddCounter(p, key, counters.Damage, n)
}

// Heal removes up to n damage counters.
func (e *Engine) Heal(p zone.Player, key zone.SlotKey, n int) (int, error) {
	return e.RemoveCounter(p, key, counters.Damage, n)
}

// Counters returns a copy of the counters on key.
func (e *Engine) Counters(p zone.Player, key zone.SlotKey) map[counters.Kind]int {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return nil
	}
	if set, ok := ps.notes.Get(key); ok {
		return set.Counters.Map()
	}
	return map[counters.Kind]int{}
}

// CounterEdit is an open counter editing session on one slot. Zero counts
// are allowed until Commit, which prunes them.
type CounterEdit struct {
	*counters.Edit

	engine *Engine
	player zone.Player
	key    zone.SlotKey
	card   zone.Ref
	closed bool
}

// BeginCounterEdit opens an edit session on the counters of key.
func (e *Engine) BeginCounterEdit(p zone.Player, key zone.SlotKey) (*CounterEdit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return nil, err
	}
	cs := counters.NewCounters()
	if set, ok := ps.notes.Get(key); ok {
		cs = set.Counters
	}
	return &CounterEdit{
		Edit:   counters.BeginEdit(cs),
		engine: e,
		player: p,
		key:    key,
		card:   r,
	}, nil
}

// Commit writes the session back. It fails with ErrStaleSource when the slot
// no longer holds the card the session was opened on.
func (ce *CounterEdit) Commit() error {
	if ce.closed {
		return ErrEditClosed
	}
	e := ce.engine
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(ce.player, ce.key)
	if errors.Is(err, ErrSlotEmpty) {
		ce.closed = true
		return fmt.Errorf("%w: %w", ErrStaleSource, err)
	}
	if err != nil {
		ce.closed = true
		return err
	}
	if r != ce.card {
		ce.closed = true
		return fmt.Errorf("%s: %w", ce.key, ErrStaleSource)
	}
	result := e.counterOps.Apply(ce.Edit, ce.player.String(), string(ce.key), r.ID)
	ps.notes.ReplaceCounters(ce.key, result)
	ce.closed = true
	return nil
}

// Discard closes the session without touching the table.
func (ce *CounterEdit) Discard() {
	ce.closed = true
}

// SetCounters replaces the counters on key with values in one edit.
func (e *Engine) SetCounters(p zone.Player, key zone.SlotKey, values map[counters.Kind]int) error {
	edit, err := e.BeginCounterEdit(p, key)
	if err != nil {
		return err
	}
	want := make(map[counters.Kind]int, len(values))
	for k, n := range values {
		want[counters.Normalize(string(k))] = n
	}
	for _, k := range edit.Kinds() {
		if _, keep := want[k]; !keep {
			edit.Set(k, 0)
		}
	}
	for k, n := range want {
		edit.Set(k, n)
	}
	return edit.Commit()
}

// ModifyStat adds delta to one stat modifier of key and returns the new
// modifiers.
func (e *Engine) ModifyStat(p zone.Player, key zone.SlotKey, stat counters.Stat, delta int) (counters.Delta, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return counters.Delta{}, err
	}
	parsed, ok := counters.ParseStat(string(stat))
	if !ok {
		return counters.Delta{}, fmt.Errorf("unknown stat %q", stat)
	}
	stat = parsed
	mods := ps.notes.ModifyStat(key, stat, delta)

	evt := rules.NewSlotEvent(rules.EventStatModified, p.String(), string(key), r.ID)
	evt.Data = string(stat)
	evt.Amount = delta
	evt.Payload = mods
	e.publish(evt)
	return mods, nil
}

// ClearStatMods removes every stat modifier from key.
func (e *Engine) ClearStatMods(p zone.Player, key zone.SlotKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	ps.notes.ClearMods(key)
	e.publish(rules.NewSlotEvent(rules.EventStatsCleared, p.String(), string(key), r.ID))
	return nil
}

// AddLabel appends a label to key.
func (e *Engine) AddLabel(p zone.Player, key zone.SlotKey, label string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	if label == "" {
		return nil
	}
	ps.notes.AddLabel(key, label)
	evt := rules.NewSlotEvent(rules.EventLabelAdded, p.String(), string(key), r.ID)
	evt.Data = label
	e.publish(evt)
	return nil
}

// RemoveLabel removes the first occurrence of label from key.
func (e *Engine) RemoveLabel(p zone.Player, key zone.SlotKey, label string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return false, err
	}
	if !ps.notes.RemoveLabel(key, label) {
		return false, nil
	}
	evt := rules.NewSlotEvent(rules.EventLabelRemoved, p.String(), string(key), r.ID)
	evt.Data = label
	e.publish(evt)
	return true, nil
}

// ClearLabels removes every label from key.
func (e *Engine) ClearLabels(p zone.Player, key zone.SlotKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	ps.notes.ClearLabels(key)
	evt := rules.NewSlotEvent(rules.EventLabelRemoved, p.String(), string(key), r.ID)
	evt.Metadata["all"] = "true"
	e.publish(evt)
	return nil
}

// AddHoard stores n resources of el on the card in key.
func (e *Engine) AddHoard(p zone.Player, key zone.SlotKey, el resource.Element, n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, _, err := e.occupied(p, key)
	if err != nil {
		return 0, err
	}
	total := ps.notes.AddHoard(key, el, n)
	if n > 0 {
		e.publishHoard(ps, key)
	}
	return total, nil
}

// RemoveHoard takes up to n resources of el from the card in key.
func (e *Engine) RemoveHoard(p zone.Player, key zone.SlotKey, el resource.Element, n int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, _, err := e.occupied(p, key)
	if err != nil {
		return 0, err
	}
	removed := ps.notes.RemoveHoard(key, el, n)
	if removed > 0 {
		e.publishHoard(ps, key)
	}
	return removed, nil
}

func (e *Engine) publishHoard(ps *playerState, key zone.SlotKey) {
	r, _ := ps.board.Slot(key)
	hoard := ps.notes.HoardOf(key)
	evt := rules.NewSlotEvent(rules.EventHoardChanged, ps.player.String(), string(key), r.ID)
	evt.Amount = hoard.Total()
	evt.Payload = hoard
	for el, n := range hoard {
		evt.Metadata[string(el)] = strconv.Itoa(n)
	}
	e.publish(evt)
}

// ClearAnnotations removes every counter, modifier, label and hoard on key.
func (e *Engine) ClearAnnotations(p zone.Player, key zone.SlotKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, _, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	ps.notes.ClearAll(key)
	return nil
}

// Annotations returns a copy of everything attached to key.
func (e *Engine) Annotations(p zone.Player, key zone.SlotKey) *annotation.Set {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return nil
	}
	return ps.notes.Snapshot(key)
}

// Exhaust marks the card in key exhausted.
func (e *Engine) Exhaust(p zone.Player, key zone.SlotKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	if ps.exhausted[key] {
		return nil
	}
	ps.exhausted[key] = true
	e.publish(rules.NewSlotEvent(rules.EventExhausted, p.String(), string(key), r.ID))
	return nil
}

// Ready clears exhaustion from the card in key.
func (e *Engine) Ready(p zone.Player, key zone.SlotKey) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, r, err := e.occupied(p, key)
	if err != nil {
		return err
	}
	if !ps.exhausted[key] {
		return nil
	}
	delete(ps.exhausted, key)
	e.publish(rules.NewSlotEvent(rules.EventReadied, p.String(), string(key), r.ID))
	return nil
}

// Exhausted reports whether key is exhausted.
func (e *Engine) Exhausted(p zone.Player, key zone.SlotKey) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return false
	}
	return ps.exhausted[key]
}

// DisplayStats returns the catalog base stats of the card in key plus its
// stat modifiers and counter effects.
func (e *Engine) DisplayStats(ctx context.Context, p zone.Player, key zone.SlotKey) (annotation.Stats, error) {
	e.mu.Lock()
	_, r, err := e.occupied(p, key)
	e.mu.Unlock()
	if err != nil {
		return annotation.Stats{}, err
	}
	entry := e.lookup(ctx, r)
	base := annotation.Stats{Atk: entry.Atk, Def: entry.Def, HP: entry.HP}

	e.mu.Lock()
	defer e.mu.Unlock()
	ps, _ := e.state(p)
	return ps.notes.Display(key, base), nil
}
