package rules

import (
	"sync"
	"time"
)

// EventType indicates the category of a table event.
type EventType string

const (
	// Clock events
	EventTurnEntered EventType = "turn:entered"
	EventTurnWrapped EventType = "turn:wrapped"
	EventNewGame     EventType = "new-game"

	// Payment events
	EventPaymentRequired  EventType = "payment-required"
	EventPaymentResolved  EventType = "payment-resolved"
	EventPaymentCancelled EventType = "payment-cancelled"
	EventPaymentRejected  EventType = "payment-rejected"

	// Zone events
	EventZoneChange      EventType = "zone:change"
	EventZoneChangeBatch EventType = "zone:change-batch"
	EventShuffled        EventType = "zone:shuffled"
	EventReordered       EventType = "zone:reordered"
	EventCardDrawn       EventType = "zone:drawn"
	EventForeseen        EventType = "zone:foreseen"
	EventMulligan        EventType = "zone:mulligan"
	EventEvicted         EventType = "slot:evicted"

	// Battle events
	EventBattleDeclared  EventType = "battle:declared"
	EventBattleWithdrawn EventType = "battle:withdrawn"

	// Slot state events
	EventExhausted EventType = "slot:exhausted"
	EventReadied   EventType = "slot:readied"

	// Annotation events
	EventCounterAdded   EventType = "counter:added"
	EventCounterRemoved EventType = "counter:removed"
	EventCountersSet    EventType = "counter:set"
	EventStatModified   EventType = "stat:modified"
	EventStatsCleared   EventType = "stat:cleared"
	EventLabelAdded     EventType = "label:added"
	EventLabelRemoved   EventType = "label:removed"
	EventHoardChanged   EventType = "hoard:changed"

	// Resource events
	EventProduced        EventType = "resource:produced"
	EventSpent           EventType = "resource:spent"
	EventRefunded        EventType = "resource:refunded"
	EventProduceOffered  EventType = "resource:produce-offered"
	EventProduceDeclined EventType = "resource:produce-declined"
)

// IsBatch returns true if this event type combines multiple sub-events.
func (et EventType) IsBatch() bool {
	return et == EventZoneChangeBatch
}

// Event represents a state change that other subsystems may react to.
type Event struct {
	Type        EventType
	ID          string            // Unique event ID
	TargetID    string            // Card ID the event concerns, if any
	PlayerID    string            // "self" or "opponent"
	Slot        string            // Slot key involved, if any
	Zone        string            // Zone name involved, if any
	Amount      int               // Numeric value (count, delta, turn number)
	Data        string            // Additional string data
	Payload     interface{}       // Structured data for typed consumers
	Timestamp   time.Time         // When the event occurred
	Metadata    map[string]string // Additional metadata
	Description string            // Human-readable description
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

type handleListener struct {
	handle   int
	listener Listener
}

// EventBus provides a synchronous publish/subscribe implementation with type
// filtering. Listeners run in subscription order, outside the bus lock, so a
// listener may subscribe or publish without deadlocking.
type EventBus struct {
	mu             sync.RWMutex
	listeners      []handleListener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make([]handleListener, 0),
		typedListeners: make(map[EventType][]TypedListener),
	}
}

// Subscribe registers a listener for all events and returns a handle.
func (bus *EventBus) Subscribe(listener Listener) int {
	if listener == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	bus.listeners = append(bus.listeners, handleListener{handle: handle, listener: listener})
	return handle
}

// SubscribeTyped registers a listener for a specific event type.
func (bus *EventBus) SubscribeTyped(eventType EventType, callback func(Event)) int {
	if callback == nil {
		return -1
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	handle := bus.nextHandle
	bus.nextHandle++
	listener := TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	}
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], listener)
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for i, l := range bus.listeners {
		if l.handle == handle {
			bus.listeners = append(bus.listeners[:i:i], bus.listeners[i+1:]...)
			return
		}
	}
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i:i], listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously:
// catch-all listeners first, then typed listeners, each in subscription order.
func (bus *EventBus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.RLock()
	all := make([]Listener, 0, len(bus.listeners))
	for _, l := range bus.listeners {
		all = append(all, l.listener)
	}
	typed := append([]TypedListener(nil), bus.typedListeners[event.Type]...)
	bus.mu.RUnlock()

	for _, listener := range all {
		listener(event)
	}
	for _, listener := range typed {
		listener.Callback(event)
	}
}

// PublishBatch publishes multiple events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, targetID, playerID string) Event {
	return Event{
		Type:      eventType,
		TargetID:  targetID,
		PlayerID:  playerID,
		Timestamp: time.Now(),
		Metadata:  make(map[string]string),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, targetID, playerID string, amount int) Event {
	evt := NewEvent(eventType, targetID, playerID)
	evt.Amount = amount
	return evt
}

// NewSlotEvent creates an event about a single slot.
func NewSlotEvent(eventType EventType, playerID, slot, cardID string) Event {
	evt := NewEvent(eventType, cardID, playerID)
	evt.Slot = slot
	return evt
}
