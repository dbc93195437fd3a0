package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrPaymentInProgress is returned when a player already has an open window.
	ErrPaymentInProgress = errors.New("payment already in progress")
	// ErrNoPayment is returned for an unknown or closed payment ID.
	ErrNoPayment = errors.New("no such payment")
)

// PaymentState is one open request to pay for a suspended move. Data carries
// the engine's own description of the move and is opaque to this package.
type PaymentState struct {
	mu sync.RWMutex

	id          string
	playerID    string
	cardID      string
	description string
	required    int
	attempts    int
	lastReason  string
	openedAt    time.Time
	seq         uint64
	data        interface{}
}

// NewPaymentState creates a payment request for playerID paying required
// resources for cardID.
func NewPaymentState(playerID, cardID string, required int, data interface{}) *PaymentState {
	return &PaymentState{
		playerID: playerID,
		cardID:   cardID,
		required: required,
		data:     data,
		openedAt: time.Now(),
	}
}

// ID returns the identifier assigned by BeginPayment.
func (ps *PaymentState) ID() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.id
}

// PlayerID returns the paying player.
func (ps *PaymentState) PlayerID() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.playerID
}

// CardID returns the card being paid for.
func (ps *PaymentState) CardID() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.cardID
}

// Required returns the total number of resources due.
func (ps *PaymentState) Required() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.required
}

// Data returns the engine payload.
func (ps *PaymentState) Data() interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.data
}

// OpenedAt returns when the request was created.
func (ps *PaymentState) OpenedAt() time.Time {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.openedAt
}

// SetDescription sets a human-readable summary.
func (ps *PaymentState) SetDescription(desc string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.description = desc
}

// Description returns the human-readable summary.
func (ps *PaymentState) Description() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.description
}

// RecordRejection counts a failed confirmation attempt.
func (ps *PaymentState) RecordRejection(reason string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.attempts++
	ps.lastReason = reason
}

// Attempts returns how many confirmations were rejected.
func (ps *PaymentState) Attempts() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.attempts
}

// LastRejection returns the reason of the most recent rejected attempt.
func (ps *PaymentState) LastRejection() string {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.lastReason
}

// PaymentWindowManager tracks open payment requests, at most one per player.
// Requests never time out.
type PaymentWindowManager struct {
	mu             sync.RWMutex
	active         map[string]*PaymentState
	paymentHistory []string
	nextSeq        uint64
}

// NewPaymentWindowManager creates a new payment window manager.
func NewPaymentWindowManager() *PaymentWindowManager {
	return &PaymentWindowManager{
		active:         make(map[string]*PaymentState),
		paymentHistory: make([]string, 0, 16),
	}
}

// BeginPayment opens a window for state and returns its new ID.
func (pwm *PaymentWindowManager) BeginPayment(state *PaymentState) (string, error) {
	if state == nil {
		return "", fmt.Errorf("nil payment state")
	}
	pwm.mu.Lock()
	defer pwm.mu.Unlock()

	for _, open := range pwm.active {
		if open.PlayerID() == state.PlayerID() {
			return "", fmt.Errorf("%w for %s (%s)", ErrPaymentInProgress, open.PlayerID(), open.ID())
		}
	}

	state.mu.Lock()
	state.id = uuid.NewString()
	state.seq = pwm.nextSeq
	id := state.id
	state.mu.Unlock()

	pwm.nextSeq++
	pwm.active[id] = state
	return id, nil
}

// Get returns the open request with the given ID.
func (pwm *PaymentWindowManager) Get(id string) (*PaymentState, error) {
	pwm.mu.RLock()
	defer pwm.mu.RUnlock()
	state, ok := pwm.active[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPayment, id)
	}
	return state, nil
}

// EndPayment closes the window with the given ID.
func (pwm *PaymentWindowManager) EndPayment(id string) error {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()
	if _, ok := pwm.active[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNoPayment, id)
	}
	delete(pwm.active, id)
	pwm.paymentHistory = append(pwm.paymentHistory, id)
	return nil
}

// ActiveFor returns the open request of playerID, if any.
func (pwm *PaymentWindowManager) ActiveFor(playerID string) *PaymentState {
	pwm.mu.RLock()
	defer pwm.mu.RUnlock()
	for _, state := range pwm.active {
		if state.PlayerID() == playerID {
			return state
		}
	}
	return nil
}

// Pending returns all open requests in the order they were opened.
func (pwm *PaymentWindowManager) Pending() []*PaymentState {
	pwm.mu.RLock()
	defer pwm.mu.RUnlock()
	out := make([]*PaymentState, 0, len(pwm.active))
	for _, state := range pwm.active {
		out = append(out, state)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// IsPaymentInProgress returns true if any window is open.
func (pwm *PaymentWindowManager) IsPaymentInProgress() bool {
	pwm.mu.RLock()
	defer pwm.mu.RUnlock()
	return len(pwm.active) > 0
}

// History returns the IDs of closed windows, oldest first.
func (pwm *PaymentWindowManager) History() []string {
	pwm.mu.RLock()
	defer pwm.mu.RUnlock()
	return append([]string(nil), pwm.paymentHistory...)
}

// Reset clears all payment state.
func (pwm *PaymentWindowManager) Reset() {
	pwm.mu.Lock()
	defer pwm.mu.Unlock()
	pwm.active = make(map[string]*PaymentState)
	pwm.paymentHistory = pwm.paymentHistory[:0]
}
