package counters

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/cardtable/cardtable-go/internal/game/rules"
)

// CounterOperations applies counter changes to a collection and publishes
// the matching events.
type CounterOperations struct {
	eventBus *rules.EventBus
}

// NewCounterOperations creates a new CounterOperations instance. A nil bus
// disables event publishing.
func NewCounterOperations(eventBus *rules.EventBus) *CounterOperations {
	return &CounterOperations{
		eventBus: eventBus,
	}
}

// Add adds amount counters of kind to cs and emits EventCounterAdded.
func (co *CounterOperations) Add(cs *Counters, playerID, slot, cardID string, kind Kind, amount int) int {
	if cs == nil || amount <= 0 || kind == "" {
		return 0
	}
	cs.Add(kind, amount)
	co.publish(rules.EventCounterAdded, playerID, slot, cardID, kind, amount,
		fmt.Sprintf("Added %d %s counter(s) to %s", amount, kind, slot))
	return amount
}

// Remove removes up to amount counters of kind from cs and emits
// EventCounterRemoved when anything was removed.
func (co *CounterOperations) Remove(cs *Counters, playerID, slot, cardID string, kind Kind, amount int) int {
	if cs == nil {
		return 0
	}
	removed := cs.Remove(kind, amount)
	if removed == 0 {
		return 0
	}
	co.publish(rules.EventCounterRemoved, playerID, slot, cardID, kind, removed,
		fmt.Sprintf("Removed %d %s counter(s) from %s", removed, kind, slot))
	return removed
}

// Apply commits an edit session and emits one EventCountersSet carrying the
// per-kind changes.
func (co *CounterOperations) Apply(edit *Edit, playerID, slot, cardID string) *Counters {
	result := edit.Commit()
	changes := edit.Changes()
	if len(changes) == 0 || co.eventBus == nil {
		return result
	}
	evt := rules.NewSlotEvent(rules.EventCountersSet, playerID, slot, cardID)
	evt.ID = uuid.NewString()
	evt.Amount = result.Total()
	for k, d := range changes {
		evt.Metadata[string(k)] = strconv.Itoa(d)
	}
	evt.Payload = result.Map()
	evt.Description = fmt.Sprintf("Set counters on %s", slot)
	co.eventBus.Publish(evt)
	return result
}

func (co *CounterOperations) publish(t rules.EventType, playerID, slot, cardID string, kind Kind, amount int, desc string) {
	if co.eventBus == nil {
		return
	}
	evt := rules.NewSlotEvent(t, playerID, slot, cardID)
	evt.ID = uuid.NewString()
	evt.Amount = amount
	evt.Data = string(kind)
	evt.Timestamp = time.Now()
	evt.Metadata["counter_kind"] = string(kind)
	evt.Metadata["counter_count"] = strconv.Itoa(amount)
	evt.Description = desc
	co.eventBus.Publish(evt)
}
