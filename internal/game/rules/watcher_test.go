package rules

import (
	"testing"
)

// shuffleWatcher is a simple test watcher
type shuffleWatcher struct {
	*BaseWatcher
	seen int
}

func newShuffleWatcher() *shuffleWatcher {
	return &shuffleWatcher{BaseWatcher: NewBaseWatcher(WatcherScopeGame)}
}

func (w *shuffleWatcher) Watch(event Event) {
	if event.Type == EventShuffled {
		w.seen++
		w.SetCondition(true)
	}
}

func (w *shuffleWatcher) Reset() {
	w.BaseWatcher.Reset()
	w.seen = 0
}

func TestWatcherRegistry(t *testing.T) {
	registry := NewWatcherRegistry()

	w := newShuffleWatcher()
	w.SetKey("ShuffleWatcher")
	registry.AddWatcher(w)

	if registry.GetWatcher("ShuffleWatcher") == nil {
		t.Fatal("should retrieve ShuffleWatcher")
	}
	if got := registry.GetWatchersByScope(WatcherScopeGame); len(got) != 1 {
		t.Fatalf("expected 1 game watcher, got %d", len(got))
	}
	if got := registry.GetWatchersByScope(WatcherScopePlayer); len(got) != 0 {
		t.Fatalf("expected no player watchers, got %d", len(got))
	}

	registry.NotifyWatchers(NewEvent(EventShuffled, "", "self"))
	if !w.ConditionMet() || w.seen != 1 {
		t.Fatal("watcher should have seen the shuffle")
	}

	registry.ResetWatchers()
	if w.ConditionMet() || w.seen != 0 {
		t.Fatal("watcher should be cleared after reset")
	}

	registry.RemoveWatcher("ShuffleWatcher")
	if registry.GetWatcher("ShuffleWatcher") != nil {
		t.Fatal("watcher should be removed")
	}
	if len(registry.GetAllWatchers()) != 0 {
		t.Fatal("registry should be empty")
	}
}

func TestWatcherRegistryGeneratesKeys(t *testing.T) {
	registry := NewWatcherRegistry()

	game := newShuffleWatcher()
	registry.AddWatcher(game)
	if game.GetKey() != "shuffleWatcher" {
		t.Fatalf("expected generated key shuffleWatcher, got %q", game.GetKey())
	}

	player := &shuffleWatcher{BaseWatcher: NewBaseWatcher(WatcherScopePlayer)}
	player.SetPlayerID("opponent")
	registry.AddWatcher(player)
	if player.GetKey() != "opponent_shuffleWatcher" {
		t.Fatalf("expected generated key opponent_shuffleWatcher, got %q", player.GetKey())
	}
	if len(registry.GetAllWatchers()) != 2 {
		t.Fatalf("expected 2 watchers, got %d", len(registry.GetAllWatchers()))
	}
}

func TestWatcherScope(t *testing.T) {
	if WatcherScopeGame.String() != "GAME" {
		t.Fatalf("expected GAME, got %s", WatcherScopeGame.String())
	}
	if WatcherScopePlayer.String() != "PLAYER" {
		t.Fatalf("expected PLAYER, got %s", WatcherScopePlayer.String())
	}
}

func TestWatcherRegistryAttach(t *testing.T) {
	registry := NewWatcherRegistry()
	bus := NewEventBus()
	registry.Attach(bus)

	w := newShuffleWatcher()
	registry.AddWatcher(w)

	bus.Publish(NewEvent(EventShuffled, "", "self"))
	bus.Publish(NewEvent(EventShuffled, "", "opponent"))
	if w.seen != 2 {
		t.Fatalf("expected 2 shuffles seen, got %d", w.seen)
	}

	bus.Publish(NewEvent(EventTurnWrapped, "", "self"))
	if w.seen != 0 || w.ConditionMet() {
		t.Fatal("turn wrap should reset watchers")
	}
}
