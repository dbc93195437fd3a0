package game

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// DeclareBattle moves the card in a unit or support slot to the battle slot
// of the same column. The card keeps its annotations, becomes exhausted and
// is tagged with role. An attacker loses one attack-decay counter.
func (e *Engine) DeclareBattle(p zone.Player, from zone.SlotKey, role Role) (zone.SlotKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return "", err
	}
	if !role.Valid() {
		return "", fmt.Errorf("%q: %w", role, ErrUnknownRole)
	}
	kind, ok := from.Kind()
	if !ok {
		return "", fmt.Errorf("%q: %w", from, ErrInvalidSlot)
	}
	if kind != zone.KindUnit && kind != zone.KindSupport {
		return "", fmt.Errorf("%s: %w", from, ErrNotBattleSource)
	}
	card, ok := ps.board.Slot(from)
	if !ok {
		return "", fmt.Errorf("%s %s: %w", p, from, ErrSlotEmpty)
	}
	to := zone.BattleKey(from.Column())
	if ps.board.Occupied(to) {
		return "", fmt.Errorf("%s %s: %w", p, to, ErrSlotOccupied)
	}

	ps.board.Take(from)
	ps.board.Put(to, card)
	ps.notes.Migrate(from, to)
	delete(ps.exhausted, from)
	delete(ps.roles, from)
	delete(ps.origins, from)
	ps.origins[to] = from
	ps.exhausted[to] = true
	ps.roles[to] = role

	if role == RoleAttacker {
		if cs, ok := ps.notes.Get(to); ok && cs.Counters.Has(e.opts.AttackDecay) {
			e.counterOps.Remove(cs.Counters, p.String(), string(to), card.ID, e.opts.AttackDecay, 1)
			ps.notes.Tidy(to)
		}
	}
	e.pruneOrphans(ps)

	evt := rules.NewSlotEvent(rules.EventBattleDeclared, p.String(), string(to), card.ID)
	evt.Data = string(role)
	evt.Metadata["origin"] = string(from)
	evt.Description = fmt.Sprintf("%s declared %s as %s", p, card, role)
	e.publish(evt)

	if e.logger != nil {
		e.logger.Debug("battle declared",
			zap.String("player", p.String()),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
			zap.String("role", string(role)),
		)
	}
	return to, nil
}

// WithdrawFromBattle returns the card in a battle slot to its origin, or to
// the unit slot of the same column when no origin is recorded. An occupant
// of the destination is evicted to the hand. The card comes back ready.
func (e *Engine) WithdrawFromBattle(p zone.Player, key zone.SlotKey) (zone.SlotKey, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return "", err
	}
	kind, ok := key.Kind()
	if !ok {
		return "", fmt.Errorf("%q: %w", key, ErrInvalidSlot)
	}
	if kind != zone.KindBattle {
		return "", fmt.Errorf("%s: %w", key, ErrNotInBattle)
	}
	card, ok := ps.board.Slot(key)
	if !ok {
		return "", fmt.Errorf("%s %s: %w", p, key, ErrSlotEmpty)
	}
	dest, ok := ps.origins[key]
	if !ok {
		dest = zone.UnitKey(key.Column())
	}

	e.evict(ps, dest)
	ps.board.Take(key)
	ps.board.Put(dest, card)
	ps.notes.Migrate(key, dest)
	delete(ps.exhausted, key)
	delete(ps.exhausted, dest)
	delete(ps.roles, key)
	delete(ps.origins, key)
	e.pruneOrphans(ps)

	evt := rules.NewSlotEvent(rules.EventBattleWithdrawn, p.String(), string(key), card.ID)
	evt.Data = string(dest)
	evt.Description = fmt.Sprintf("%s withdrew %s to %s", p, card, dest)
	e.publish(evt)
	return dest, nil
}

// BattleOrigin returns the slot the card in a battle slot came from.
func (e *Engine) BattleOrigin(p zone.Player, key zone.SlotKey) (zone.SlotKey, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return "", false
	}
	origin, ok := ps.origins[key]
	return origin, ok
}

// BattleRole returns the role of the card in a battle slot.
func (e *Engine) BattleRole(p zone.Player, key zone.SlotKey) (Role, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return "", false
	}
	role, ok := ps.roles[key]
	return role, ok
}
