package game

import (
	"errors"

	"github.com/cardtable/cardtable-go/internal/game/rules"
)

// Illegal transitions. Every rejected operation leaves the table unchanged.
var (
	ErrInvalidPlayer   = errors.New("invalid player")
	ErrInvalidZone     = errors.New("zone is not an ordered zone")
	ErrInvalidSlot     = errors.New("invalid slot key")
	ErrEmptySource     = errors.New("source is empty")
	ErrNoCard          = errors.New("no card at location")
	ErrCrossPlayer     = errors.New("cross-player placement")
	ErrIntentMismatch  = errors.New("slot kind does not match intent")
	ErrSameSlot        = errors.New("source and destination are the same slot")
	ErrClosedView      = errors.New("reordering requires the open view")
	ErrSlotEmpty       = errors.New("slot is empty")
	ErrSlotOccupied    = errors.New("slot is occupied")
	ErrNotBattleSource = errors.New("only unit and support slots can enter battle")
	ErrNotInBattle     = errors.New("slot is not a battle slot")
	ErrUnknownRole     = errors.New("unknown battle role")
	ErrNoForesee       = errors.New("no foresee window is open")
	ErrBadArrangement  = errors.New("arrangement must use every card exactly once")
	ErrBadIndices      = errors.New("indices must be distinct and in range")
	ErrInvalidCost     = errors.New("invalid cost")
	ErrEditClosed      = errors.New("counter edit already closed")
	ErrInvalidDeck     = errors.New("invalid deck list")
	ErrUnknownElement  = errors.New("unknown element")
	ErrNoPartner       = errors.New("no partner in play")
)

// Payment failures.
var (
	ErrUnknownPayment = errors.New("no such pending payment")
	ErrCannotConfirm  = errors.New("payment cannot be confirmed")
	ErrStaleSource    = errors.New("payment source changed")
	ErrPaymentPending = rules.ErrPaymentInProgress
)
