package server

import (
	"errors"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/cardtable/cardtable-go/internal/game/resource"
	"github.com/cardtable/cardtable-go/internal/game/rules"
	"github.com/cardtable/cardtable-go/internal/game/zone"
)

// Inbound message types.
const (
	MsgJoin           = "join"
	MsgLeave          = "leave"
	MsgListTables     = "list_tables"
	MsgView           = "view"
	MsgNewGame        = "new_game"
	MsgAdvance        = "advance"
	MsgEndTurn        = "end_turn"
	MsgJump           = "jump"
	MsgRedisplay      = "redisplay"
	MsgMoveTop        = "move_top"
	MsgMoveMany       = "move_many"
	MsgDraw           = "draw"
	MsgShuffle        = "shuffle"
	MsgReorder        = "reorder"
	MsgFetch          = "fetch"
	MsgForesee        = "foresee"
	MsgCommitForesee  = "commit_foresee"
	MsgRoil           = "roil"
	MsgMulligan       = "mulligan"
	MsgPlace          = "place"
	MsgMoveSlot       = "move_slot"
	MsgResolvePayment = "resolve_payment"
	MsgCounter        = "counter"
	MsgStat           = "stat"
	MsgLabel          = "label"
	MsgHoard          = "hoard"
	MsgClear          = "clear_annotations"
	MsgExhaust        = "exhaust"
	MsgReady          = "ready"
	MsgBattle         = "battle"
	MsgWithdraw       = "withdraw"
	MsgProduce        = "produce"
	MsgResolveProduce = "resolve_produce"
	MsgDeclineProduce = "decline_produce"
	MsgChecksum       = "checksum"
)

// Outbound message types.
const (
	MsgOK     = "ok"
	MsgError  = "error"
	MsgEvent  = "event"
	MsgState  = "view"
	MsgTables = "tables"
)

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrNotJoined      = errors.New("join a table first")
	ErrNotSeated      = errors.New("watchers cannot act")
	ErrNotYours       = errors.New("request belongs to the other seat")
)

// Message is what clients send.
type Message struct {
	Type    string         `json:"type"`
	TableID string         `json:"table_id,omitempty"`
	Seq     int            `json:"seq,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// Reply is what the server sends.
type Reply struct {
	Type    string `json:"type"`
	TableID string `json:"table_id,omitempty"`
	Seq     int    `json:"seq,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// EventMessage is the client-facing form of an engine event.
type EventMessage struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	Player      string            `json:"player,omitempty"`
	Card        string            `json:"card,omitempty"`
	Slot        string            `json:"slot,omitempty"`
	Zone        string            `json:"zone,omitempty"`
	Amount      int               `json:"amount,omitempty"`
	Data        string            `json:"data,omitempty"`
	Description string            `json:"description,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

func newEventMessage(evt rules.Event) EventMessage {
	return EventMessage{
		ID:          evt.ID,
		Type:        string(evt.Type),
		Player:      evt.PlayerID,
		Card:        evt.TargetID,
		Slot:        evt.Slot,
		Zone:        evt.Zone,
		Amount:      evt.Amount,
		Data:        evt.Data,
		Description: evt.Description,
		Metadata:    evt.Metadata,
	}
}

// redactFor blanks card identities the viewer may not see. Watchers pass nil.
func (m EventMessage) redactFor(viewer *zone.Player) EventMessage {
	owner, err := zone.ParsePlayer(m.Player)
	if err != nil || m.Card == "" {
		return m
	}
	secret := func(name string) bool {
		z, err := zone.ParseZone(name)
		if err != nil {
			return false
		}
		switch z {
		case zone.Deck, zone.Shield:
			return true
		case zone.Hand:
			return viewer == nil || *viewer != owner
		}
		return false
	}

	hide := false
	switch {
	case m.Type == string(rules.EventForeseen):
		hide = viewer == nil || *viewer != owner
	case m.Metadata["from"] != "" || m.Metadata["to"] != "":
		hide = true
		for _, name := range []string{m.Metadata["from"], m.Metadata["to"]} {
			if name != "" && !secret(name) {
				hide = false
			}
		}
	}
	if hide {
		m.Card = ""
		m.Description = ""
	}
	return m
}

// decodeArgs decodes a message payload into out, matching json tags.
func decodeArgs(data map[string]any, out any) error {
	cfg := &mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.TextUnmarshallerHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	if err := decoder.Decode(data); err != nil {
		return fmt.Errorf("bad arguments: %w", err)
	}
	return nil
}

type joinArgs struct {
	User string `json:"user"`
	// Seat is "self" or "opponent"; empty joins as a watcher.
	Seat string `json:"seat"`
	Name string `json:"name"`
}

type newGameArgs struct {
	Format      string              `json:"format"`
	Decks       map[string][]string `json:"decks"`
	FirstPlayer string              `json:"first_player"`
	Shuffle     bool                `json:"shuffle"`
}

type jumpArgs struct {
	Phase int `json:"phase"`
	Step  int `json:"step"`
}

type moveArgs struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

type pileArgs struct {
	Zone string `json:"zone"`
}

type countArgs struct {
	Count int `json:"count"`
}

type reorderArgs struct {
	Zone string `json:"zone"`
	From int    `json:"from"`
	To   int    `json:"to"`
	Open bool   `json:"open"`
}

type fetchArgs struct {
	From    string `json:"from"`
	Index   int    `json:"index"`
	To      string `json:"to"`
	Shuffle bool   `json:"shuffle"`
}

type arrangeArgs struct {
	Top    []int `json:"top"`
	Bottom []int `json:"bottom"`
}

type indicesArgs struct {
	Indices []int `json:"indices"`
}

type placeArgs struct {
	// From is a zone name, or "slots" with FromSlot set.
	From     string       `json:"from"`
	Index    int          `json:"index"`
	FromSlot zone.SlotKey `json:"from_slot"`
	Slot     zone.SlotKey `json:"slot"`
	Pay      bool         `json:"pay"`
}

type slotMoveArgs struct {
	Slot   zone.SlotKey `json:"slot"`
	To     string       `json:"to"`
	Bottom bool         `json:"bottom"`
}

type paymentArgs struct {
	ID      string                            `json:"id"`
	Confirm bool                              `json:"confirm"`
	Spend   resource.Amounts                  `json:"spend"`
	Hoard   map[zone.SlotKey]resource.Amounts `json:"hoard"`
	AnyType bool                              `json:"any_type"`
	Cost    string                            `json:"cost"`
}

type counterArgs struct {
	Slot  zone.SlotKey `json:"slot"`
	Kind  string       `json:"kind"`
	Delta int          `json:"delta"`
}

type statArgs struct {
	Slot  zone.SlotKey `json:"slot"`
	Stat  string       `json:"stat"`
	Delta int          `json:"delta"`
}

type labelArgs struct {
	Slot   zone.SlotKey `json:"slot"`
	Label  string       `json:"label"`
	Remove bool         `json:"remove"`
}

type hoardArgs struct {
	Slot    zone.SlotKey     `json:"slot"`
	Element resource.Element `json:"element"`
	Delta   int              `json:"delta"`
}

type slotArgs struct {
	Slot zone.SlotKey `json:"slot"`
}

type battleArgs struct {
	Slot zone.SlotKey `json:"slot"`
	Role string       `json:"role"`
}

type produceArgs struct {
	Element resource.Element `json:"element"`
	Strict  bool             `json:"strict"`
}

type choiceArgs struct {
	ID      string           `json:"id"`
	Element resource.Element `json:"element"`
}
