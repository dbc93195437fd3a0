package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cardtable/cardtable-go/internal/deck"
	"github.com/cardtable/cardtable-go/internal/game"
	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/zone"
	"github.com/cardtable/cardtable-go/internal/table"
)

// handle runs one client message and replies with its outcome. Commands that
// change the table are recorded and followed by fresh views for everyone.
func (h *Hub) handle(ctx context.Context, c *Client, msg Message) {
	logger := h.logger.With(zap.String("type", msg.Type), zap.String("user", c.User()))

	data, changed, err := h.dispatch(ctx, c, msg)
	tableID := c.TableID()
	if err != nil {
		logger.Debug("command rejected", zap.Error(err))
		c.reply(Reply{Type: MsgError, TableID: tableID, Seq: msg.Seq, Error: err.Error()})
		return
	}
	c.reply(Reply{Type: MsgOK, TableID: tableID, Seq: msg.Seq, Data: data})

	if !changed {
		return
	}
	if rm, ok := h.room(tableID); ok {
		h.record(rm)
		h.broadcastViews(ctx, rm)
	}
}

func (h *Hub) dispatch(ctx context.Context, c *Client, msg Message) (any, bool, error) {
	switch msg.Type {
	case MsgJoin:
		return h.join(ctx, c, msg)
	case MsgLeave:
		if id := c.detach(); id != "" {
			h.leave(c, id)
		}
		return nil, false, nil
	case MsgListTables:
		return h.listTables(), false, nil
	}

	rm, ok := h.room(c.TableID())
	if !ok {
		return nil, false, ErrNotJoined
	}
	e := rm.table.Engine()

	switch msg.Type {
	case MsgView:
		tv, err := viewFor(ctx, e, c.Seat())
		return tv, false, err
	case MsgChecksum:
		sum, err := e.Snapshot().ComputeChecksum()
		return sum, false, err
	}

	seat := c.Seat()
	if seat == nil {
		return nil, false, ErrNotSeated
	}
	p := *seat

	switch msg.Type {
	case MsgNewGame:
		return h.newGame(ctx, rm, msg)

	case MsgAdvance:
		return e.Advance(), true, nil
	case MsgEndTurn:
		return e.EndTurn(), true, nil
	case MsgRedisplay:
		return e.Redisplay(), false, nil
	case MsgJump:
		var a jumpArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		te, err := e.JumpTo(a.Phase, a.Step)
		return te, err == nil, err

	case MsgMoveTop, MsgMoveMany:
		var a moveArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		src, dst, err := parseZones(a.From, a.To)
		if err != nil {
			return nil, false, err
		}
		if msg.Type == MsgMoveTop {
			ref, ok := e.MoveTop(p, src, dst)
			if !ok {
				return nil, false, fmt.Errorf("%s: %w", src, game.ErrEmptySource)
			}
			return ref, true, nil
		}
		refs, err := e.MoveMany(p, src, dst, a.Count)
		return refs, err == nil, err

	case MsgDraw:
		var a countArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		if a.Count == 0 {
			a.Count = 1
		}
		refs, err := e.Draw(p, a.Count)
		return refs, err == nil, err

	case MsgShuffle:
		var a pileArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		z, err := parseZone(a.Zone, zone.Deck)
		if err != nil {
			return nil, false, err
		}
		err = e.Shuffle(p, z)
		return nil, err == nil, err

	case MsgReorder:
		var a reorderArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		z, err := parseZone(a.Zone, zone.Hand)
		if err != nil {
			return nil, false, err
		}
		view := zone.ViewStacked
		if a.Open {
			view = zone.ViewOpen
		}
		err = e.Reorder(p, z, a.From, a.To, view)
		return nil, err == nil, err

	case MsgFetch:
		var a fetchArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		src, dst, err := parseZones(a.From, a.To)
		if err != nil {
			return nil, false, err
		}
		ref, err := e.Fetch(p, src, a.Index, dst, a.Shuffle)
		return ref, err == nil, err

	case MsgForesee:
		var a countArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		refs, err := e.Foresee(p, a.Count)
		return refs, err == nil, err

	case MsgCommitForesee:
		var a arrangeArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		err := e.CommitForesee(p, a.Top, a.Bottom)
		return nil, err == nil, err

	case MsgRoil:
		var a indicesArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		refs, err := e.Roil(p, a.Indices)
		return refs, err == nil, err

	case MsgMulligan:
		refs, err := e.Mulligan(p)
		return refs, err == nil, err

	case MsgPlace:
		var a placeArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		req, err := placeRequest(p, a)
		if err != nil {
			return nil, false, err
		}
		res, err := e.MoveToSlot(ctx, req)
		return res, err == nil, err

	case MsgMoveSlot:
		var a slotMoveArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		dst, err := parseZone(a.To, zone.Grave)
		if err != nil {
			return nil, false, err
		}
		pos := game.Top
		if a.Bottom {
			pos = game.Bottom
		}
		ref, err := e.MoveSlotTo(p, a.Slot, dst, pos)
		return ref, err == nil, err

	case MsgResolvePayment:
		return h.resolvePayment(ctx, e, p, msg)

	case MsgCounter:
		var a counterArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		kind := counters.Normalize(a.Kind)
		var (
			n   int
			err error
		)
		if a.Delta >= 0 {
			n, err = e.AddCounter(p, a.Slot, kind, a.Delta)
		} else {
			n, err = e.RemoveCounter(p, a.Slot, kind, -a.Delta)
		}
		return n, err == nil, err

	case MsgStat:
		var a statArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		stat, ok := counters.ParseStat(a.Stat)
		if !ok {
			return nil, false, fmt.Errorf("unknown stat %q", a.Stat)
		}
		d, err := e.ModifyStat(p, a.Slot, stat, a.Delta)
		return d, err == nil, err

	case MsgLabel:
		var a labelArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		if a.Remove {
			removed, err := e.RemoveLabel(p, a.Slot, a.Label)
			return removed, err == nil && removed, err
		}
		err := e.AddLabel(p, a.Slot, a.Label)
		return nil, err == nil, err

	case MsgHoard:
		var a hoardArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		var (
			n   int
			err error
		)
		if a.Delta >= 0 {
			n, err = e.AddHoard(p, a.Slot, a.Element, a.Delta)
		} else {
			n, err = e.RemoveHoard(p, a.Slot, a.Element, -a.Delta)
		}
		return n, err == nil, err

	case MsgClear, MsgExhaust, MsgReady:
		var a slotArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		var err error
		switch msg.Type {
		case MsgClear:
			err = e.ClearAnnotations(p, a.Slot)
		case MsgExhaust:
			err = e.Exhaust(p, a.Slot)
		default:
			err = e.Ready(p, a.Slot)
		}
		return nil, err == nil, err

	case MsgBattle:
		var a battleArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		to, err := e.DeclareBattle(p, a.Slot, game.Role(a.Role))
		return to, err == nil, err

	case MsgWithdraw:
		var a slotArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		to, err := e.WithdrawFromBattle(p, a.Slot)
		return to, err == nil, err

	case MsgProduce:
		var a produceArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		ok, err := e.Produce(p, a.Element, a.Strict)
		return ok, err == nil && ok, err

	case MsgResolveProduce, MsgDeclineProduce:
		var a choiceArgs
		if err := decodeArgs(msg.Data, &a); err != nil {
			return nil, false, err
		}
		if !ownsChoice(e, p, a.ID) {
			return nil, false, ErrNotYours
		}
		if msg.Type == MsgDeclineProduce {
			err := e.DeclineProduce(a.ID)
			return nil, err == nil, err
		}
		ok, err := e.ResolveProduce(a.ID, a.Element)
		return ok, err == nil, err
	}

	return nil, false, fmt.Errorf("%q: %w", msg.Type, ErrUnknownCommand)
}

func (h *Hub) join(ctx context.Context, c *Client, msg Message) (any, bool, error) {
	var a joinArgs
	if err := decodeArgs(msg.Data, &a); err != nil {
		return nil, false, err
	}
	if a.User == "" {
		return nil, false, fmt.Errorf("user is required")
	}
	var seat *zone.Player
	if a.Seat != "" {
		p, err := zone.ParsePlayer(a.Seat)
		if err != nil {
			return nil, false, err
		}
		seat = &p
	}

	if old := c.detach(); old != "" {
		h.leave(c, old)
	}
	rm, err := h.enter(c, msg.TableID, a.Name)
	if err != nil {
		return nil, false, err
	}
	if seat != nil {
		if err := rm.table.Sit(*seat, a.User); err != nil {
			h.leave(c, rm.table.ID)
			return nil, false, err
		}
	} else {
		rm.table.AddWatcher(a.User)
	}
	c.attach(a.User, rm.table.ID, seat)

	h.logger.Info("client joined table",
		zap.String("table_id", rm.table.ID),
		zap.String("user", a.User),
		zap.Bool("watcher", seat == nil),
	)

	tv, err := viewFor(ctx, rm.table.Engine(), seat)
	if err != nil {
		return nil, false, err
	}
	c.reply(Reply{Type: MsgState, TableID: rm.table.ID, Data: tv})
	return rm.table.Snapshot(), false, nil
}

func (h *Hub) newGame(ctx context.Context, rm *room, msg Message) (any, bool, error) {
	var a newGameArgs
	if err := decodeArgs(msg.Data, &a); err != nil {
		return nil, false, err
	}
	opts := game.NewGameOptions{
		Decks:   make(map[zone.Player]deck.List, len(a.Decks)),
		Shuffle: a.Shuffle,
	}
	for name, cards := range a.Decks {
		p, err := zone.ParsePlayer(name)
		if err != nil {
			return nil, false, err
		}
		opts.Decks[p] = deck.List{Format: a.Format, Cards: cards}
	}
	if a.FirstPlayer != "" {
		first, err := zone.ParsePlayer(a.FirstPlayer)
		if err != nil {
			return nil, false, err
		}
		opts.FirstPlayer = &first
	}

	te, err := rm.table.Engine().NewGame(ctx, opts)
	if err != nil {
		return nil, false, err
	}
	rm.table.SetState(table.StatePlaying)
	if h.recorder != nil {
		h.recorder.ClearReplay(rm.table.ID)
		h.recorder.StartRecording(rm.table.ID)
	}
	return te, true, nil
}

func (h *Hub) resolvePayment(ctx context.Context, e *game.Engine, p zone.Player, msg Message) (any, bool, error) {
	var a paymentArgs
	if err := decodeArgs(msg.Data, &a); err != nil {
		return nil, false, err
	}
	owned := false
	for _, req := range e.PendingPayments() {
		if req.ID == a.ID {
			owned = req.Player == p
			if !owned {
				return nil, false, ErrNotYours
			}
		}
	}
	if !owned {
		return nil, false, fmt.Errorf("%s: %w", a.ID, game.ErrUnknownPayment)
	}

	d := game.Decision{
		Confirm: a.Confirm,
		Spend:   a.Spend,
		Hoard:   a.Hoard,
		AnyType: a.AnyType,
	}
	if a.Cost != "" {
		cost, err := e.Parser().ParseCost(a.Cost)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %w", game.ErrInvalidCost, err)
		}
		d.Override = &cost
	}
	res, err := e.ResolvePayment(ctx, a.ID, d)
	return res, err == nil, err
}

func ownsChoice(e *game.Engine, p zone.Player, id string) bool {
	for _, ch := range e.PendingChoices(p) {
		if ch.ID == id {
			return true
		}
	}
	return false
}

func placeRequest(p zone.Player, a placeArgs) (game.PlaceRequest, error) {
	kind, ok := a.Slot.Kind()
	if !ok {
		return game.PlaceRequest{}, fmt.Errorf("%q: %w", a.Slot, game.ErrInvalidSlot)
	}
	req := game.PlaceRequest{Player: p, Slot: a.Slot, Intent: kind, PayCost: a.Pay}
	if a.FromSlot != "" {
		req.Source = zone.InSlot(p, a.FromSlot)
		return req, nil
	}
	src, err := parseZone(a.From, zone.Hand)
	if err != nil {
		return game.PlaceRequest{}, err
	}
	req.Source = zone.InPile(p, src, a.Index)
	return req, nil
}

func parseZone(name string, def zone.Zone) (zone.Zone, error) {
	if name == "" {
		return def, nil
	}
	return zone.ParseZone(name)
}

func parseZones(from, to string) (zone.Zone, zone.Zone, error) {
	src, err := zone.ParseZone(from)
	if err != nil {
		return 0, 0, err
	}
	dst, err := zone.ParseZone(to)
	if err != nil {
		return 0, 0, err
	}
	return src, dst, nil
}
