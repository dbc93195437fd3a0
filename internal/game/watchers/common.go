package watchers

import (
	"github.com/cardtable/cardtable-go/internal/game/rules"
)

// CardsDrawnWatcher counts cards drawn per player this turn.
type CardsDrawnWatcher struct {
	*rules.BaseWatcher
	drawn map[string]int // playerID -> cards drawn
}

// NewCardsDrawnWatcher creates a new cards drawn watcher.
func NewCardsDrawnWatcher() *CardsDrawnWatcher {
	w := &CardsDrawnWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		drawn:       make(map[string]int),
	}
	w.SetKey("CardsDrawnWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *CardsDrawnWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventCardDrawn || event.PlayerID == "" {
		return
	}
	n := event.Amount
	if n <= 0 {
		n = 1
	}
	w.drawn[event.PlayerID] += n
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *CardsDrawnWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.drawn = make(map[string]int)
}

// GetCount returns the number of cards a player drew this turn.
func (w *CardsDrawnWatcher) GetCount(playerID string) int {
	return w.drawn[playerID]
}

// BattlesWatcher records which cards entered battle this turn and in what role.
type BattlesWatcher struct {
	*rules.BaseWatcher
	attackers map[string][]string // playerID -> card IDs
	blockers  map[string][]string
}

// NewBattlesWatcher creates a new battles watcher.
func NewBattlesWatcher() *BattlesWatcher {
	w := &BattlesWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopeGame),
		attackers:   make(map[string][]string),
		blockers:    make(map[string][]string),
	}
	w.SetKey("BattlesWatcher")
	return w
}

// Watch implements the Watcher interface. The event's Data carries the role.
func (w *BattlesWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventBattleDeclared || event.PlayerID == "" {
		return
	}
	switch event.Data {
	case "attacker":
		w.attackers[event.PlayerID] = append(w.attackers[event.PlayerID], event.TargetID)
	case "blocker":
		w.blockers[event.PlayerID] = append(w.blockers[event.PlayerID], event.TargetID)
	default:
		return
	}
	w.SetCondition(true)
}

// Reset clears the watcher's state.
func (w *BattlesWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.attackers = make(map[string][]string)
	w.blockers = make(map[string][]string)
}

// Attackers returns the card IDs a player declared as attackers this turn.
func (w *BattlesWatcher) Attackers(playerID string) []string {
	return append([]string(nil), w.attackers[playerID]...)
}

// Blockers returns the card IDs a player declared as blockers this turn.
func (w *BattlesWatcher) Blockers(playerID string) []string {
	return append([]string(nil), w.blockers[playerID]...)
}

// ResourcesSpentWatcher totals resources a single player spent this turn.
type ResourcesSpentWatcher struct {
	*rules.BaseWatcher
	spent int
}

// NewResourcesSpentWatcher creates a player-scoped spend watcher.
func NewResourcesSpentWatcher(playerID string) *ResourcesSpentWatcher {
	w := &ResourcesSpentWatcher{
		BaseWatcher: rules.NewBaseWatcher(rules.WatcherScopePlayer),
	}
	w.SetPlayerID(playerID)
	w.SetKey(playerID + "_ResourcesSpentWatcher")
	return w
}

// Watch implements the Watcher interface.
func (w *ResourcesSpentWatcher) Watch(event rules.Event) {
	if event.Type != rules.EventSpent || event.PlayerID != w.GetPlayerID() {
		return
	}
	if event.Amount > 0 {
		w.spent += event.Amount
		w.SetCondition(true)
	}
}

// Reset clears the watcher's state.
func (w *ResourcesSpentWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.spent = 0
}

// Spent returns the total spent this turn.
func (w *ResourcesSpentWatcher) Spent() int {
	return w.spent
}
