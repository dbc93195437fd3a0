package rules

import (
	"fmt"
	"strings"
	"sync"
)

// WatcherScope defines what a watcher's tally is keyed by.
type WatcherScope int

const (
	// WatcherScopeGame tracks events for the whole table.
	WatcherScopeGame WatcherScope = iota
	// WatcherScopePlayer tracks events for one side.
	WatcherScopePlayer
)

// String returns the string representation of the watcher scope.
func (ws WatcherScope) String() string {
	switch ws {
	case WatcherScopeGame:
		return "GAME"
	case WatcherScopePlayer:
		return "PLAYER"
	default:
		return "UNKNOWN"
	}
}

// Watcher observes events and keeps a per-turn tally.
type Watcher interface {
	// Watch is called for every event published while registered.
	Watch(event Event)
	// Reset clears the tally, typically when the turn wraps.
	Reset()
	// ConditionMet returns true once the watched thing has happened this turn.
	ConditionMet() bool
	GetScope() WatcherScope
	// GetKey returns a unique key for this watcher instance.
	GetKey() string
}

// BaseWatcher carries the bookkeeping shared by every watcher.
type BaseWatcher struct {
	scope     WatcherScope
	playerID  string
	condition bool
	key       string
}

// NewBaseWatcher creates a new base watcher with the specified scope.
func NewBaseWatcher(scope WatcherScope) *BaseWatcher {
	return &BaseWatcher{scope: scope}
}

// GetScope returns the watcher's scope.
func (bw *BaseWatcher) GetScope() WatcherScope {
	return bw.scope
}

// SetPlayerID restricts a player-scoped watcher to one side.
func (bw *BaseWatcher) SetPlayerID(id string) {
	bw.playerID = id
}

// GetPlayerID returns the side a player-scoped watcher follows.
func (bw *BaseWatcher) GetPlayerID() string {
	return bw.playerID
}

// ConditionMet returns whether the condition has been met.
func (bw *BaseWatcher) ConditionMet() bool {
	return bw.condition
}

// SetCondition sets the condition flag.
func (bw *BaseWatcher) SetCondition(condition bool) {
	bw.condition = condition
}

// Reset clears the condition.
func (bw *BaseWatcher) Reset() {
	bw.condition = false
}

// GetKey returns the unique key for this watcher.
func (bw *BaseWatcher) GetKey() string {
	return bw.key
}

// SetKey sets the unique key for this watcher.
func (bw *BaseWatcher) SetKey(key string) {
	bw.key = key
}

// WatcherRegistry fans events out to registered watchers.
type WatcherRegistry struct {
	mu       sync.RWMutex
	watchers map[string]Watcher
	order    []string
}

// NewWatcherRegistry creates a new watcher registry.
func NewWatcherRegistry() *WatcherRegistry {
	return &WatcherRegistry{
		watchers: make(map[string]Watcher),
	}
}

// AddWatcher registers watcher, generating a key from its type and player
// when it has none. A watcher with an existing key replaces the old one.
func (wr *WatcherRegistry) AddWatcher(watcher Watcher) {
	if watcher == nil {
		return
	}

	wr.mu.Lock()
	defer wr.mu.Unlock()

	key := watcher.GetKey()
	if key == "" {
		key = generateKey(watcher)
		if setter, ok := watcher.(interface{ SetKey(string) }); ok {
			setter.SetKey(key)
		}
	}

	if _, exists := wr.watchers[key]; !exists {
		wr.order = append(wr.order, key)
	}
	wr.watchers[key] = watcher
}

// RemoveWatcher removes a watcher from the registry.
func (wr *WatcherRegistry) RemoveWatcher(key string) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	if _, ok := wr.watchers[key]; !ok {
		return
	}
	delete(wr.watchers, key)
	for i, k := range wr.order {
		if k == key {
			wr.order = append(wr.order[:i], wr.order[i+1:]...)
			break
		}
	}
}

// GetWatcher retrieves a watcher by key.
func (wr *WatcherRegistry) GetWatcher(key string) Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	return wr.watchers[key]
}

// GetWatchersByScope returns the watchers of one scope in registration order.
func (wr *WatcherRegistry) GetWatchersByScope(scope WatcherScope) []Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	result := make([]Watcher, 0)
	for _, key := range wr.order {
		if w := wr.watchers[key]; w.GetScope() == scope {
			result = append(result, w)
		}
	}
	return result
}

// GetAllWatchers returns all registered watchers in registration order.
func (wr *WatcherRegistry) GetAllWatchers() []Watcher {
	wr.mu.RLock()
	defer wr.mu.RUnlock()
	result := make([]Watcher, 0, len(wr.order))
	for _, key := range wr.order {
		result = append(result, wr.watchers[key])
	}
	return result
}

// ResetWatchers resets every watcher.
func (wr *WatcherRegistry) ResetWatchers() {
	for _, watcher := range wr.GetAllWatchers() {
		watcher.Reset()
	}
}

// NotifyWatchers delivers event to every watcher; watchers filter internally.
func (wr *WatcherRegistry) NotifyWatchers(event Event) {
	for _, watcher := range wr.GetAllWatchers() {
		watcher.Watch(event)
	}
}

// Attach subscribes the registry to bus, resetting all watchers whenever the
// turn wraps. It returns the subscription handle.
func (wr *WatcherRegistry) Attach(bus *EventBus) int {
	return bus.Subscribe(func(event Event) {
		if event.Type == EventTurnWrapped || event.Type == EventNewGame {
			wr.ResetWatchers()
			return
		}
		wr.NotifyWatchers(event)
	})
}

func generateKey(watcher Watcher) string {
	typeName := fmt.Sprintf("%T", watcher)
	if i := strings.LastIndex(typeName, "."); i >= 0 {
		typeName = typeName[i+1:]
	}
	if watcher.GetScope() == WatcherScopePlayer {
		if getter, ok := watcher.(interface{ GetPlayerID() string }); ok {
			if id := getter.GetPlayerID(); id != "" {
				return id + "_" + typeName
			}
		}
	}
	return typeName
}
