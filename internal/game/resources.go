package game

import (
	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// PoolView is a copy of one player's resource pool.
type PoolView struct {
	Values    resource.Amounts   `json:"values"`
	Cap       int                `json:"cap"`
	Overrides []resource.Element `json:"overrides"`
}

// Pool returns a copy of p's resource pool.
func (e *Engine) Pool(p zone.Player) PoolView {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return PoolView{}
	}
	return poolView(ps.pool)
}

func poolView(pool *resource.Pool) PoolView {
	return PoolView{
		Values:    pool.Values(),
		Cap:       pool.Cap(),
		Overrides: pool.Overrides(),
	}
}

// Produce adds one unit of el to p's pool. strict always respects the cap.
func (e *Engine) Produce(p zone.Player, el resource.Element, strict bool) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.produceLocked(p, el, strict)
}

func (e *Engine) produceLocked(p zone.Player, el resource.Element, strict bool) (bool, error) {
	ps, err := e.state(p)
	if err != nil {
		return false, err
	}
	if el == "" {
		return false, ErrUnknownElement
	}
	if !ps.pool.Produce(el, strict) {
		return false, nil
	}
	evt := rules.NewEventWithAmount(rules.EventProduced, "", p.String(), ps.pool.Value(el))
	evt.Data = string(el)
	e.publish(evt)
	return true, nil
}

// SetResource sets el in p's pool, clamped to zero and the cap (unless
// overridden). It returns the stored value.
func (e *Engine) SetResource(p zone.Player, el resource.Element, value int) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return 0, err
	}
	return ps.pool.Set(el, value), nil
}

// SetOverride toggles whether el may exceed the cap.
func (e *Engine) SetOverride(p zone.Player, el resource.Element, on bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return err
	}
	ps.pool.SetOverride(el, on)
	return nil
}

// Spend debits p's pool directly, flooring each element at zero, and
// returns what was actually taken. Placement payments go through
// ResolvePayment instead, which rejects a spend the pool cannot cover.
func (e *Engine) Spend(p zone.Player, amounts resource.Amounts) (resource.Amounts, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	spent := ps.pool.Spend(amounts)
	if spent.Total() > 0 {
		evt := rules.NewEventWithAmount(rules.EventSpent, "", p.String(), spent.Total())
		evt.Payload = spent
		e.publish(evt)
	}
	return spent, nil
}

// Refund returns resources to p's pool, capped like a normal production.
func (e *Engine) Refund(p zone.Player, amounts resource.Amounts) (resource.Amounts, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return nil, err
	}
	refunded := ps.pool.Refund(amounts)
	if refunded.Total() > 0 {
		evt := rules.NewEventWithAmount(rules.EventRefunded, "", p.String(), refunded.Total())
		evt.Payload = refunded
		e.publish(evt)
	}
	return refunded, nil
}

// offerProduce queues a produce choice over the partner's affinities.
func (e *Engine) offerProduce(ps *playerState) (string, error) {
	if len(ps.partnerElements) == 0 {
		return "", ErrNoPartner
	}
	options := make([]string, len(ps.partnerElements))
	for i, el := range ps.partnerElements {
		options[i] = string(el)
	}
	id := e.choices.AddChoice(rules.Choice{
		Type:       rules.ChoiceTypeProduce,
		PlayerID:   ps.player.String(),
		Prompt:     "Produce one resource",
		Options:    options,
		MinChoices: 1,
		MaxChoices: 1,
	})

	evt := rules.NewEvent(rules.EventProduceOffered, "", ps.player.String())
	evt.Metadata["choice_id"] = id
	evt.Payload = options
	e.publish(evt)
	return id, nil
}

// OfferProduce queues a produce choice for p outside the automated step.
func (e *Engine) OfferProduce(p zone.Player) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := e.state(p)
	if err != nil {
		return "", err
	}
	return e.offerProduce(ps)
}

// ResolveProduce takes an offered production. An element outside the offer
// leaves the choice open.
func (e *Engine) ResolveProduce(choiceID string, el resource.Element) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	choice, err := e.choices.MakeChoice(choiceID, []string{string(el)})
	if err != nil {
		return false, err
	}
	p, err := zone.ParsePlayer(choice.PlayerID)
	if err != nil {
		return false, err
	}
	return e.produceLocked(p, el, false)
}

// DeclineProduce withdraws an offered production.
func (e *Engine) DeclineProduce(choiceID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	choice, err := e.choices.Withdraw(choiceID)
	if err != nil {
		return err
	}
	evt := rules.NewEvent(rules.EventProduceDeclined, "", choice.PlayerID)
	evt.Metadata["choice_id"] = choiceID
	e.publish(evt)
	if e.logger != nil {
		e.logger.Debug("production declined", zap.String("player", choice.PlayerID))
	}
	return nil
}

// PendingChoices lists open choices for p.
func (e *Engine) PendingChoices(p zone.Player) []rules.Choice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.choices.Pending(p.String())
}

// withdrawChoices drops every open choice of p, used when a new offer
// supersedes stale ones.
func (e *Engine) withdrawChoices(p zone.Player, t rules.ChoiceType) int {
	n := 0
	for _, c := range e.choices.Pending(p.String()) {
		if c.Type != t {
			continue
		}
		if _, err := e.choices.Withdraw(c.ID); err == nil {
			n++
		}
	}
	return n
}

func (e *Engine) logOffer(p zone.Player, err error) {
	if e.logger == nil {
		return
	}
	e.logger.Debug("no production offered",
		zap.String("player", p.String()),
		zap.Error(err),
	)
}
