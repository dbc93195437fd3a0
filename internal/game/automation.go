package game

import (
	"strings"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// registerAutomation installs the turn reactions on the clock in their fixed
// order. The clock fires each at most once per turn, active player and
// position, and always while the engine lock is held.
func (e *Engine) registerAutomation() {
	r := e.opts.Reactions
	e.clock.AddObserver(e.reaction(r.Ready, e.readyStep))
	e.clock.AddObserver(e.reaction(r.Draw, e.drawStep))
	e.clock.AddObserver(e.reaction(r.Produce, e.produceStep))
	e.clock.AddObserver(e.reaction(r.Poison, e.poisonStep))
}

// reaction wraps fn so it runs only when the entered step, or the phase when
// it has no steps, is called name.
func (e *Engine) reaction(name string, fn func(rules.TurnEntered)) rules.Observer {
	return rules.ObserverFunc(func(te rules.TurnEntered) {
		if name == "" {
			return
		}
		at := te.Step
		if at == "" {
			at = te.Phase
		}
		if strings.EqualFold(at, name) {
			fn(te)
		}
	})
}

// openingTurn reports whether the active side went first and is on turn
// one, when Draw and Produce are skipped. Without an opponent board the
// local player is always active, so going second means drawing on turn one.
func (e *Engine) openingTurn(te rules.TurnEntered) bool {
	return te.State.TurnNumber == 1 && te.State.ActivePlayer == e.clock.FirstPlayer()
}

// readyStep clears exhaustion on the active side's unit and support slots.
// A stunned card stays exhausted and loses one stun counter instead.
func (e *Engine) readyStep(te rules.TurnEntered) {
	ps, err := e.state(te.State.ActivePlayer)
	if err != nil {
		return
	}
	for _, key := range ps.board.OccupiedKeys() {
		if !key.Is(zone.KindUnit) && !key.Is(zone.KindSupport) {
			continue
		}
		if !ps.exhausted[key] {
			continue
		}
		r, _ := ps.board.Slot(key)
		if set, ok := ps.notes.Get(key); ok && set.Counters.Has(e.opts.Stun) {
			e.counterOps.Remove(set.Counters, ps.player.String(), string(key), r.ID, e.opts.Stun, 1)
			ps.notes.Tidy(key)
			continue
		}
		delete(ps.exhausted, key)
		e.publish(rules.NewSlotEvent(rules.EventReadied, ps.player.String(), string(key), r.ID))
	}
}

func (e *Engine) drawStep(te rules.TurnEntered) {
	if e.openingTurn(te) {
		return
	}
	if _, err := e.drawLocked(te.State.ActivePlayer, 1); err != nil && e.logger != nil {
		e.logger.Warn("draw step failed", zap.String("player", te.State.ActivePlayer.String()), zap.Error(err))
	}
}

// produceStep offers the active side one production from its partner's
// affinities. An older unanswered offer is withdrawn first.
func (e *Engine) produceStep(te rules.TurnEntered) {
	if e.openingTurn(te) {
		return
	}
	ps, err := e.state(te.State.ActivePlayer)
	if err != nil {
		return
	}
	e.withdrawChoices(ps.player, rules.ChoiceTypeProduce)
	if _, err := e.offerProduce(ps); err != nil {
		e.logOffer(ps.player, err)
	}
}

// poisonStep puts one damage counter on every active-side slot holding
// poison.
func (e *Engine) poisonStep(te rules.TurnEntered) {
	ps, err := e.state(te.State.ActivePlayer)
	if err != nil {
		return
	}
	for _, key := range ps.board.OccupiedKeys() {
		set, ok := ps.notes.Get(key)
		if !ok || !set.Counters.Has(e.opts.Poison) {
			continue
		}
		r, _ := ps.board.Slot(key)
		e.counterOps.Add(set.Counters, ps.player.String(), string(key), r.ID, counters.Damage, 1)
	}
}
