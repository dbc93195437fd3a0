package game

import (
	"context"
	"sort"

	"github.com/cardtable/cardtable-go/internal/catalog"
	"github.com/cardtable/cardtable-go/internal/game/annotation"
	"github.com/cardtable/cardtable-go/internal/game/counters"
	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// SlotView is an occupied slot as the presentation layer shows it.
type SlotView struct {
	Key       zone.SlotKey           `json:"key"`
	Card      zone.Ref               `json:"card"`
	Name      string                 `json:"name"`
	Type      string                 `json:"type"`
	Cost      string                 `json:"cost"`
	Base      annotation.Stats       `json:"base"`
	Stats     annotation.Stats       `json:"stats"`
	Counters  []counters.CounterView `json:"counters"`
	Mods      counters.Delta         `json:"mods"`
	Labels    []string               `json:"labels"`
	Hoard     resource.Amounts       `json:"hoard"`
	Exhausted bool                   `json:"exhausted"`
	Role      Role                   `json:"role,omitempty"`
	Origin    zone.SlotKey           `json:"origin,omitempty"`
}

// PileView is an ordered zone. Cards is nil when the viewer may not see the
// contents.
type PileView struct {
	Zone  string     `json:"zone"`
	Count int        `json:"count"`
	Cards []zone.Ref `json:"cards,omitempty"`
}

// PlayerView is one side of the table from a viewer's seat.
type PlayerView struct {
	Player    zone.Player  `json:"player"`
	Piles     []PileView   `json:"piles"`
	Slots     []SlotView   `json:"slots"`
	Pool      PoolView     `json:"pool"`
	Mulligans int          `json:"mulligans"`
	Foresee   []zone.Ref   `json:"foresee,omitempty"`
	Payments  []string     `json:"payments,omitempty"`
	Choices   []ChoiceView `json:"choices,omitempty"`
}

// ChoiceView is an open choice offered to a player.
type ChoiceView struct {
	ID      string   `json:"id"`
	Type    string   `json:"type"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

// TableView is the whole table from one seat.
type TableView struct {
	Viewer   zone.Player     `json:"viewer"`
	Turn     rules.TurnState `json:"turn"`
	Phase    string          `json:"phase"`
	Step     string          `json:"step,omitempty"`
	Players  []PlayerView    `json:"players"`
	Checksum string          `json:"checksum"`
}

// hidden reports whether viewer may not see the contents of owner's z.
// Decks and shields are face down for everyone, hands only for the owner.
func hidden(viewer, owner zone.Player, z zone.Zone) bool {
	switch z {
	case zone.Deck, zone.Shield:
		return true
	case zone.Hand:
		return viewer != owner
	default:
		return false
	}
}

// View renders the table from viewer's seat. Catalog lookups happen after
// the engine lock is released.
func (e *Engine) View(ctx context.Context, viewer zone.Player) (TableView, error) {
	if !viewer.Valid() {
		return TableView{}, ErrInvalidPlayer
	}

	e.mu.Lock()
	snap := e.snapshotLocked()
	phase, step := e.clock.Current()
	caps := make(map[zone.Player]int, len(e.players))
	for p, ps := range e.players {
		caps[p] = ps.pool.Cap()
	}
	choices := make(map[zone.Player][]rules.Choice, len(e.players))
	payments := make(map[zone.Player][]string, len(e.players))
	for _, p := range zone.Players {
		choices[p] = e.choices.Pending(p.String())
	}
	for _, pr := range e.pendingLocked() {
		payments[pr.Player] = append(payments[pr.Player], pr.ID)
	}
	e.mu.Unlock()

	sum, err := snap.ComputeChecksum()
	if err != nil {
		return TableView{}, err
	}
	tv := TableView{
		Viewer:   viewer,
		Turn:     snap.Turn,
		Phase:    phase,
		Step:     step,
		Checksum: sum.Hash,
	}
	for _, p := range zone.Players {
		ps, ok := snap.Players[p]
		if !ok {
			continue
		}
		pv := e.playerView(ctx, viewer, p, ps)
		pv.Pool.Cap = caps[p]
		pv.Payments = payments[p]
		if viewer == p {
			for _, c := range choices[p] {
				pv.Choices = append(pv.Choices, ChoiceView{
					ID:      c.ID,
					Type:    string(c.Type),
					Prompt:  c.Prompt,
					Options: c.Options,
				})
			}
		}
		tv.Players = append(tv.Players, pv)
	}
	return tv, nil
}

// PlayerView renders one side from its owner's seat.
func (e *Engine) PlayerView(ctx context.Context, p zone.Player) (PlayerView, error) {
	tv, err := e.View(ctx, p)
	if err != nil {
		return PlayerView{}, err
	}
	for _, pv := range tv.Players {
		if pv.Player == p {
			return pv, nil
		}
	}
	return PlayerView{}, ErrInvalidPlayer
}

func (e *Engine) playerView(ctx context.Context, viewer, owner zone.Player, ps PlayerSnapshot) PlayerView {
	pv := PlayerView{
		Player:    owner,
		Pool:      PoolView{Values: ps.Pool, Overrides: ps.Overrides},
		Mulligans: ps.Mulligans,
		Slots:     make([]SlotView, 0, len(ps.Slots)),
	}
	if viewer == owner {
		pv.Foresee = ps.Foresee
	}
	for _, z := range zone.OrderedZones {
		refs := ps.Piles[z]
		view := PileView{Zone: z.String(), Count: len(refs)}
		if !hidden(viewer, owner, z) {
			view.Cards = refs
		}
		pv.Piles = append(pv.Piles, view)
	}

	keys := make([]zone.SlotKey, 0, len(ps.Slots))
	for key := range ps.Slots {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return slotOrder(keys[i]) < slotOrder(keys[j]) })
	for _, key := range keys {
		pv.Slots = append(pv.Slots, e.slotView(ctx, key, ps.Slots[key]))
	}
	return pv
}

func (e *Engine) slotView(ctx context.Context, key zone.SlotKey, s SlotSnapshot) SlotView {
	entry := e.lookup(ctx, s.Card)
	base := annotation.Stats{Atk: entry.Atk, Def: entry.Def, HP: entry.HP}
	cs := counters.FromMap(s.Counters)
	return SlotView{
		Key:       key,
		Card:      s.Card,
		Name:      displayName(entry),
		Type:      entry.Type,
		Cost:      entry.Cost,
		Base:      base,
		Stats:     base.Apply(s.Mods).Apply(cs.Effect()),
		Counters:  cs.ToView(),
		Mods:      s.Mods,
		Labels:    s.Labels,
		Hoard:     s.Hoard,
		Exhausted: s.Exhausted,
		Role:      s.Role,
		Origin:    s.Origin,
	}
}

func displayName(entry catalog.Entry) string {
	if entry.Name != "" {
		return entry.Name
	}
	return entry.ID
}

// slotOrder sorts keys in board order: units, supports, battles, partner.
func slotOrder(key zone.SlotKey) int {
	kind, col, err := key.Parse()
	if err != nil {
		return 1 << 30
	}
	return int(kind)*(zone.MaxColumns+1) + col
}
