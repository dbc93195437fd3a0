package rules

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ChoiceType represents the kind of decision a player is offered.
type ChoiceType string

const (
	// ChoiceTypeProduce offers one resource production from a set of elements.
	ChoiceTypeProduce ChoiceType = "PRODUCE"
	// ChoiceTypeOther other choice type
	ChoiceTypeOther ChoiceType = "OTHER"
)

// ErrNoChoice is returned for an unknown or already resolved choice.
var ErrNoChoice = errors.New("no such choice")

// Choice is a decision offered to a player.
type Choice struct {
	ID         string
	Type       ChoiceType
	PlayerID   string
	Prompt     string
	Options    []string
	MinChoices int
	MaxChoices int
	Result     []string // Chosen options
	Made       bool
}

// ChoiceManager keeps offered choices until they are made or withdrawn.
type ChoiceManager struct {
	mu             sync.RWMutex
	pendingChoices []Choice
	madeChoices    []Choice
}

// NewChoiceManager creates a new choice manager.
func NewChoiceManager() *ChoiceManager {
	return &ChoiceManager{
		pendingChoices: make([]Choice, 0, 8),
		madeChoices:    make([]Choice, 0, 16),
	}
}

// AddChoice queues a choice and returns its ID.
func (cm *ChoiceManager) AddChoice(choice Choice) string {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if choice.ID == "" {
		choice.ID = uuid.NewString()
	}
	choice.Options = append([]string(nil), choice.Options...)
	cm.pendingChoices = append(cm.pendingChoices, choice)
	return choice.ID
}

// Pending returns the queued choices for playerID, oldest first. An empty
// playerID returns every pending choice.
func (cm *ChoiceManager) Pending(playerID string) []Choice {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	out := make([]Choice, 0, len(cm.pendingChoices))
	for _, c := range cm.pendingChoices {
		if playerID == "" || c.PlayerID == playerID {
			out = append(out, c)
		}
	}
	return out
}

// Get returns the pending choice with the given ID.
func (cm *ChoiceManager) Get(id string) (Choice, bool) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	for _, c := range cm.pendingChoices {
		if c.ID == id {
			return c, true
		}
	}
	return Choice{}, false
}

// MakeChoice validates result against the choice's options and bounds and
// records it. An invalid result leaves the choice pending.
func (cm *ChoiceManager) MakeChoice(id string, result []string) (Choice, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	idx := cm.indexLocked(id)
	if idx < 0 {
		return Choice{}, fmt.Errorf("%w: %s", ErrNoChoice, id)
	}
	choice := cm.pendingChoices[idx]

	if len(result) < choice.MinChoices {
		return Choice{}, fmt.Errorf("too few choices (need at least %d)", choice.MinChoices)
	}
	if choice.MaxChoices > 0 && len(result) > choice.MaxChoices {
		return Choice{}, fmt.Errorf("too many choices (max %d)", choice.MaxChoices)
	}
	for _, r := range result {
		if !contains(choice.Options, r) {
			return Choice{}, fmt.Errorf("%q is not one of the offered options", r)
		}
	}

	choice.Result = append([]string(nil), result...)
	choice.Made = true
	cm.pendingChoices = append(cm.pendingChoices[:idx], cm.pendingChoices[idx+1:]...)
	cm.madeChoices = append(cm.madeChoices, choice)
	return choice, nil
}

// Withdraw drops a pending choice without making it.
func (cm *ChoiceManager) Withdraw(id string) (Choice, error) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	idx := cm.indexLocked(id)
	if idx < 0 {
		return Choice{}, fmt.Errorf("%w: %s", ErrNoChoice, id)
	}
	choice := cm.pendingChoices[idx]
	cm.pendingChoices = append(cm.pendingChoices[:idx], cm.pendingChoices[idx+1:]...)
	return choice, nil
}

// HasPendingChoices returns true if there are pending choices.
func (cm *ChoiceManager) HasPendingChoices() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.pendingChoices) > 0
}

// Made returns the choices made so far, oldest first.
func (cm *ChoiceManager) Made() []Choice {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]Choice(nil), cm.madeChoices...)
}

// Reset clears all choice state.
func (cm *ChoiceManager) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.pendingChoices = cm.pendingChoices[:0]
	cm.madeChoices = cm.madeChoices[:0]
}

func (cm *ChoiceManager) indexLocked(id string) int {
	for i, c := range cm.pendingChoices {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
