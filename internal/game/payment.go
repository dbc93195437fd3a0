package game

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// pendingPlacement is a MoveToSlot waiting on a payment decision.
type pendingPlacement struct {
	id      string
	request PlaceRequest
	card    zone.Ref
	entry   catalog.Entry
	cost    resource.Cost
}

// PaymentRequest is the payload of EventPaymentRequired.
type PaymentRequest struct {
	ID       string        `json:"id"`
	Player   zone.Player   `json:"player"`
	Card     zone.Ref      `json:"card"`
	Name     string        `json:"name"`
	Source   string        `json:"source"`
	Slot     zone.SlotKey  `json:"slot"`
	Cost     resource.Cost `json:"cost"`
	CostText string        `json:"cost_text"`
	Attempts int           `json:"attempts"`
	Reason   string        `json:"reason,omitempty"`
}

// Decision resolves a pending payment.
type Decision struct {
	Confirm bool
	// Spend is taken from the resource pool.
	Spend resource.Amounts
	// Hoard is taken from the hoards of the named slots.
	Hoard map[zone.SlotKey]resource.Amounts
	// AnyType lets any element pay for any part of the cost.
	AnyType bool
	// Override replaces the card's cost when set.
	Override *resource.Cost
}

// Cancel is the decision that abandons a payment.
var Cancel = Decision{}

func (e *Engine) suspend(ps *playerState, req PlaceRequest, card zone.Ref, entry catalog.Entry, cost resource.Cost) (PlaceResult, error) {
	pp := &pendingPlacement{request: req, card: card, entry: entry, cost: cost}
	state := rules.NewPaymentState(ps.player.String(), card.ID, cost.Total(), pp)
	state.SetDescription(fmt.Sprintf("play %s to %s", card, req.Slot))

	id, err := e.payments.BeginPayment(state)
	if err != nil {
		return PlaceResult{}, fmt.Errorf("%s: %w", ps.player, err)
	}
	pp.id = id
	e.pending[id] = pp

	pr := e.paymentRequest(pp, state)
	evt := rules.NewSlotEvent(rules.EventPaymentRequired, ps.player.String(), string(req.Slot), card.ID)
	evt.Data = pr.CostText
	evt.Amount = cost.Total()
	evt.Payload = pr
	evt.Metadata["payment_id"] = id
	evt.Description = fmt.Sprintf("Pay %s for %s", pr.CostText, card)
	e.publish(evt)

	if e.logger != nil {
		e.logger.Debug("placement waiting on payment",
			zap.String("payment_id", id),
			zap.String("player", ps.player.String()),
			zap.String("card_id", card.ID),
			zap.String("cost", pr.CostText),
		)
	}
	return PlaceResult{Card: card, PendingPaymentID: id, Cost: cost.Clone()}, nil
}

func (e *Engine) paymentRequest(pp *pendingPlacement, state *rules.PaymentState) PaymentRequest {
	src := pp.request.Source.Zone.String()
	if pp.request.Source.IsSlot() {
		src = string(pp.request.Source.Slot)
	}
	pr := PaymentRequest{
		ID:       pp.id,
		Player:   pp.request.Player,
		Card:     pp.card,
		Name:     pp.entry.Name,
		Source:   src,
		Slot:     pp.request.Slot,
		Cost:     pp.cost.Clone(),
		CostText: e.parser.Format(pp.cost),
	}
	if state != nil {
		pr.Attempts = state.Attempts()
		pr.Reason = state.LastRejection()
	}
	return pr
}

// PendingPayments lists open payment requests in the order they were opened.
func (e *Engine) PendingPayments() []PaymentRequest {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingLocked()
}

func (e *Engine) pendingLocked() []PaymentRequest {
	states := e.payments.Pending()
	out := make([]PaymentRequest, 0, len(states))
	for _, st := range states {
		if pp, ok := e.pending[st.ID()]; ok {
			out = append(out, e.paymentRequest(pp, st))
		}
	}
	return out
}

// ResolvePayment confirms or cancels a suspended placement. Cancelling never
// changes the table. A decision that cannot be confirmed returns
// ErrCannotConfirm and leaves the request open. If the card left its source
// while the request was open, the request is dropped with ErrStaleSource.
func (e *Engine) ResolvePayment(ctx context.Context, id string, d Decision) (PlaceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pp, ok := e.pending[id]
	if !ok {
		return PlaceResult{}, fmt.Errorf("%s: %w", id, ErrUnknownPayment)
	}
	state, err := e.payments.Get(id)
	if err != nil {
		delete(e.pending, id)
		return PlaceResult{}, fmt.Errorf("%s: %w", id, ErrUnknownPayment)
	}

	if !d.Confirm {
		e.closePayment(pp, rules.EventPaymentCancelled, "cancelled")
		return PlaceResult{Card: pp.card}, nil
	}

	ps, err := e.state(pp.request.Player)
	if err != nil {
		return PlaceResult{}, err
	}
	if current, ok := ps.board.At(pp.request.Source); !ok || current != pp.card {
		e.closePayment(pp, rules.EventPaymentCancelled, "source changed")
		return PlaceResult{}, fmt.Errorf("%s: %w", pp.card, ErrStaleSource)
	}

	hoardTotal, reason := e.checkDecision(ps, d)
	if reason == "" {
		res := resource.Validate(pp.cost, d.Spend, hoardTotal, resource.Options{AnyType: d.AnyType, Override: d.Override})
		if !res.Valid {
			reason = res.Reason
		}
	}
	if reason != "" {
		state.RecordRejection(reason)
		evt := rules.NewEvent(rules.EventPaymentRejected, pp.card.ID, ps.player.String())
		evt.Data = reason
		evt.Metadata["payment_id"] = id
		evt.Payload = e.paymentRequest(pp, state)
		e.publish(evt)
		return PlaceResult{PendingPaymentID: id, Card: pp.card, Cost: pp.cost.Clone()}, fmt.Errorf("%s: %w", reason, ErrCannotConfirm)
	}

	spent := ps.pool.Spend(d.Spend)
	if spent.Total() > 0 {
		evt := rules.NewEventWithAmount(rules.EventSpent, pp.card.ID, ps.player.String(), spent.Total())
		evt.Payload = spent
		e.publish(evt)
	}
	for _, key := range sortedKeys(d.Hoard) {
		for el, n := range d.Hoard[key] {
			if n > 0 {
				ps.notes.RemoveHoard(key, el, n)
			}
		}
		e.publishHoard(ps, key)
	}

	result := e.place(ctx, ps, pp.request.Source, pp.card, pp.request.Slot)
	result.Cost = pp.cost.Clone()
	e.closePayment(pp, rules.EventPaymentResolved, "paid")
	return result, nil
}

// checkDecision verifies the spend is covered by the pool and every hoard
// contribution by its slot, and returns the combined hoard amounts.
func (e *Engine) checkDecision(ps *playerState, d Decision) (resource.Amounts, string) {
	for _, el := range d.Spend.Elements() {
		n := d.Spend[el]
		if n < 0 {
			return nil, fmt.Sprintf("negative spend for %s", el)
		}
		if n > ps.pool.Value(el) {
			return nil, fmt.Sprintf("pool has %d %s, %d requested", ps.pool.Value(el), el, n)
		}
	}
	total := make(resource.Amounts)
	for _, key := range sortedKeys(d.Hoard) {
		if !ps.board.Occupied(key) {
			return nil, fmt.Sprintf("no card in %s", key)
		}
		have := ps.notes.HoardOf(key)
		for _, el := range d.Hoard[key].Elements() {
			n := d.Hoard[key][el]
			if n < 0 {
				return nil, fmt.Sprintf("negative hoard for %s", el)
			}
			if n > have[el] {
				return nil, fmt.Sprintf("%s hoards %d %s, %d requested", key, have[el], el, n)
			}
			total[el] += n
		}
	}
	return total, ""
}

func (e *Engine) closePayment(pp *pendingPlacement, t rules.EventType, reason string) {
	delete(e.pending, pp.id)
	if err := e.payments.EndPayment(pp.id); err != nil && e.logger != nil {
		e.logger.Warn("payment window already closed", zap.String("payment_id", pp.id), zap.Error(err))
	}
	evt := rules.NewSlotEvent(t, pp.request.Player.String(), string(pp.request.Slot), pp.card.ID)
	evt.Data = reason
	evt.Metadata["payment_id"] = pp.id
	e.publish(evt)
}

// AddCostAdjustment registers a cost change applied to p's future placements.
func (e *Engine) AddCostAdjustment(p zone.Player, adj *resource.Adjustment) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return err
	}
	ps.adjuster.Add(adj)
	return nil
}

// RemoveCostAdjustment drops the adjustment with id.
func (e *Engine) RemoveCostAdjustment(p zone.Player, id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return false
	}
	return ps.adjuster.Remove(id)
}

// SuggestPayment proposes a pool spend for an open request, if one exists.
func (e *Engine) SuggestPayment(id string) (resource.Amounts, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pp, ok := e.pending[id]
	if !ok {
		return nil, false
	}
	ps, err := e.state(pp.request.Player)
	if err != nil {
		return nil, false
	}
	return resource.SuggestSpend(pp.cost, ps.pool)
}

func sortedKeys(m map[zone.SlotKey]resource.Amounts) []zone.SlotKey {
	keys := make([]zone.SlotKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
