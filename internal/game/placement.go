package game

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// PlaceRequest asks for a card to be put into a slot.
type PlaceRequest struct {
	Source zone.Location
	// Player owns the destination slot.
	Player zone.Player
	Slot   zone.SlotKey
	// Intent is the slot kind the caller means to fill.
	Intent zone.SlotKind
	// PayCost suspends a unit or support placement from the hand behind a
	// payment request when the card has a nonzero cost.
	PayCost bool
}

// PlaceResult describes a completed or suspended placement.
type PlaceResult struct {
	Card    zone.Ref
	Placed  bool
	Evicted *zone.Ref
	// PendingPaymentID is set when the move waits on ResolvePayment.
	PendingPaymentID string
	Cost             resource.Cost
}

// MoveToSlot places the card at req.Source into req.Slot. The occupant of the
// destination, if any, is evicted to the end of its owner's hand.
func (e *Engine) MoveToSlot(ctx context.Context, req PlaceRequest) (PlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, card, err := e.checkPlacement(req)
	if err != nil {
		return PlaceResult{}, err
	}

	if req.PayCost && !req.Source.IsSlot() && req.Source.Zone == zone.Hand &&
		(req.Intent == zone.KindUnit || req.Intent == zone.KindSupport) {
		entry := e.lookup(ctx, card)
		cost, err := e.parser.ParseCost(entry.Cost)
		if err != nil {
			return PlaceResult{}, fmt.Errorf("%s: %w: %w", card, ErrInvalidCost, err)
		}
		cost = ps.adjuster.Apply(card.ID, cost)
		if !cost.IsZero() || cost.HasX {
			return e.suspend(ps, req, card, entry, cost)
		}
	}

	return e.place(ctx, ps, req.Source, card, req.Slot), nil
}

// checkPlacement validates req without mutating anything.
func (e *Engine) checkPlacement(req PlaceRequest) (*playerState, zone.Ref, error) {
	if !req.Source.Player.Valid() || !req.Player.Valid() {
		return nil, zone.Ref{}, ErrInvalidPlayer
	}
	if req.Source.Player != req.Player {
		return nil, zone.Ref{}, fmt.Errorf("%s to %s: %w", req.Source, req.Player, ErrCrossPlayer)
	}
	kind, ok := req.Slot.Kind()
	if !ok {
		return nil, zone.Ref{}, fmt.Errorf("%q: %w", req.Slot, ErrInvalidSlot)
	}
	if kind != req.Intent {
		return nil, zone.Ref{}, fmt.Errorf("%s is not a %s slot: %w", req.Slot, req.Intent, ErrIntentMismatch)
	}
	if req.Source.IsSlot() && req.Source.Slot == req.Slot {
		return nil, zone.Ref{}, ErrSameSlot
	}
	if !req.Source.IsSlot() && !req.Source.Zone.Ordered() {
		return nil, zone.Ref{}, fmt.Errorf("%s: %w", req.Source.Zone, ErrInvalidZone)
	}
	ps, err := e.state(req.Player)
	if err != nil {
		return nil, zone.Ref{}, err
	}
	card, ok := ps.board.At(req.Source)
	if !ok {
		if req.Source.IsSlot() {
			return nil, zone.Ref{}, fmt.Errorf("%s: %w", req.Source, ErrSlotEmpty)
		}
		return nil, zone.Ref{}, fmt.Errorf("%s: %w", req.Source, ErrNoCard)
	}
	return ps, card, nil
}

// place performs a validated move. Tracked-to-tracked moves carry the
// annotation set and exhaustion with the card; anything else leaving a slot
// drops them.
func (e *Engine) place(ctx context.Context, ps *playerState, src zone.Location, card zone.Ref, dst zone.SlotKey) PlaceResult {
	result := PlaceResult{Card: card}

	if _, err := ps.board.Remove(src); err != nil {
		// checkPlacement saw the card, so this only happens on misuse.
		if e.logger != nil {
			e.logger.Error("placement source vanished", zap.String("source", src.String()), zap.Error(err))
		}
		return result
	}

	if evicted, ok := e.evict(ps, dst); ok {
		result.Evicted = &evicted
	}

	if src.IsSlot() {
		if src.Slot.Tracked() && dst.Tracked() {
			ps.notes.Migrate(src.Slot, dst)
			if ps.exhausted[src.Slot] {
				ps.exhausted[dst] = true
			}
			delete(ps.exhausted, src.Slot)
			delete(ps.origins, src.Slot)
			delete(ps.roles, src.Slot)
		} else {
			ps.clearSlotState(src.Slot)
		}
	}
	if src.Zone == zone.Deck {
		ps.foresee = nil
	}

	ps.board.Put(dst, card)
	if dst == zone.PartnerKey {
		e.refreshPartner(ctx, ps)
	}
	e.pruneOrphans(ps)
	result.Placed = true

	from := src.Zone.String()
	if src.IsSlot() {
		from = string(src.Slot)
	}
	evt := e.zoneEvent(rules.EventZoneChange, ps.player, card, from, string(dst))
	evt.Slot = string(dst)
	e.publish(evt)
	return result
}

func (e *Engine) refreshPartner(ctx context.Context, ps *playerState) {
	r, ok := ps.board.Slot(zone.PartnerKey)
	if !ok {
		ps.partnerElements = nil
		return
	}
	entry := e.lookup(ctx, r)
	ps.partnerElements = make([]resource.Element, 0, len(entry.Elements))
	for _, el := range entry.Elements {
		ps.partnerElements = append(ps.partnerElements, resource.Element(el))
	}
}

// MoveSlotTo sends the card in key to an ordered zone at pos. Its
// annotations, exhaustion and battle state are dropped.
func (e *Engine) MoveSlotTo(p zone.Player, key zone.SlotKey, dst zone.Zone, pos Position) (zone.Ref, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ps, err := e.state(p)
	if err != nil {
		return zone.Ref{}, err
	}
	if !key.Valid() {
		return zone.Ref{}, fmt.Errorf("%q: %w", key, ErrInvalidSlot)
	}
	to, err := e.pile(ps, dst)
	if err != nil {
		return zone.Ref{}, err
	}
	r, ok := ps.board.Take(key)
	if !ok {
		return zone.Ref{}, fmt.Errorf("%s %s: %w", p, key, ErrSlotEmpty)
	}
	ps.clearSlotState(key)
	insertAt(to, pos, r)
	if dst == zone.Deck {
		ps.foresee = nil
	}
	e.pruneOrphans(ps)

	evt := e.zoneEvent(rules.EventZoneChange, p, r, string(key), dst.String())
	evt.Slot = string(key)
	e.publish(evt)
	return r, nil
}

// Slot returns the occupant of key.
func (e *Engine) Slot(p zone.Player, key zone.SlotKey) (zone.Ref, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return zone.Ref{}, false
	}
	return ps.board.Slot(key)
}

// CardEntry returns the catalog entry of the card in key, or the zero entry.
func (e *Engine) CardEntry(ctx context.Context, p zone.Player, key zone.SlotKey) (catalog.Entry, bool) {
	e.mu.Lock()
	r, ok := e.slotRef(p, key)
	e.mu.Unlock()
	if !ok {
		return catalog.Entry{}, false
	}
	return e.lookup(ctx, r), true
}

func (e *Engine) slotRef(p zone.Player, key zone.SlotKey) (zone.Ref, bool) {
	ps, err := e.state(p)
	if err != nil {
		return zone.Ref{}, false
	}
	return ps.board.Slot(key)
}
