// Package rules holds the event bus and turn-order primitives shared by the
// game engine and its transports.
package rules

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType indicates the category of a game event.
type EventType string

const (
	// Lobby events
	EventGameCreated  EventType = "GAME_CREATED"
	EventPlayerJoined EventType = "PLAYER_JOINED"
	EventPlayerLeft   EventType = "PLAYER_LEFT"
	EventGameStarted  EventType = "GAME_STARTED"

	// Setup events
	EventResourcePicked EventType = "RESOURCE_PICKED"
	EventPlayStarted    EventType = "PLAY_STARTED"

	// Turn events
	EventTurnEnded     EventType = "TURN_ENDED"
	EventRoundEnded    EventType = "ROUND_ENDED"
	EventGameCompleted EventType = "GAME_COMPLETED"

	// Deck events
	EventOmenDrawn      EventType = "OMEN_DRAWN"
	EventOfferingDrawn  EventType = "OFFERING_DRAWN"
	EventDeckReshuffled EventType = "DECK_RESHUFFLED"

	// Purchase events
	EventGoodBought      EventType = "GOOD_BOUGHT"
	EventTrackSlotBought EventType = "TRACK_SLOT_BOUGHT"
	EventCommandUndone   EventType = "COMMAND_UNDONE"

	// Raid events
	EventRaidStarted     EventType = "RAID_STARTED"
	EventRaidTargeted    EventType = "RAID_TARGETED"
	EventRaidDefended    EventType = "RAID_DEFENDED"
	EventStructureBurned EventType = "STRUCTURE_BURNED"
	EventResourceStolen  EventType = "RESOURCE_STOLEN"
	EventRaidEnded       EventType = "RAID_ENDED"
	EventRaidsReset      EventType = "RAIDS_RESET"
	EventWeregeldPaid    EventType = "WEREGELD_PAID"

	// Offering events
	EventSmiteResolved    EventType = "SMITE_RESOLVED"
	EventBountyCollected  EventType = "BOUNTY_COLLECTED"
	EventScourged         EventType = "SCOURGED"
	EventValkyrieResolved EventType = "VALKYRIE_RESOLVED"
	EventOfferingsReset   EventType = "OFFERINGS_RESET"

	// Economy events
	EventResourceConverted EventType = "RESOURCE_CONVERTED"
	EventResourceTraded    EventType = "RESOURCE_TRADED"
	EventResourceGiven     EventType = "RESOURCE_GIVEN"
	EventStructureUsed     EventType = "STRUCTURE_USED"
	EventSkaldUsed         EventType = "SKALD_USED"
)

// Event represents something that happened in a game.
type Event struct {
	Type      EventType `json:"type"`
	ID        string    `json:"id"`
	GameID    string    `json:"gameId"`
	PlayerID  string    `json:"playerId,omitempty"` // acting user
	TargetID  string    `json:"targetId,omitempty"` // affected user, track or good
	Amount    int       `json:"amount,omitempty"`
	Data      string    `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Listener defines a callback that reacts to incoming events.
type Listener func(Event)

// TypedListener defines a callback that reacts to a specific event type.
type TypedListener struct {
	Handle    int
	EventType EventType
	Callback  func(Event)
}

// EventBus provides a synchronous publish/subscribe implementation with type filtering.
type EventBus struct {
	mu             sync.RWMutex
	listeners      map[int]Listener
	typedListeners map[EventType][]TypedListener
	nextHandle     int
}

// NewEventBus constructs a fresh event bus instance.
func NewEventBus() *EventBus {
	return &EventBus{
		listeners:      make(map[int]Listener),
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
	bus.listeners[handle] = listener
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
	bus.typedListeners[eventType] = append(bus.typedListeners[eventType], TypedListener{
		Handle:    handle,
		EventType: eventType,
		Callback:  callback,
	})
	return handle
}

// Unsubscribe removes the listener identified by the provided handle,
// whether it was registered with Subscribe or SubscribeTyped.
func (bus *EventBus) Unsubscribe(handle int) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.listeners, handle)
	for eventType, listeners := range bus.typedListeners {
		for i := len(listeners) - 1; i >= 0; i-- {
			if listeners[i].Handle == handle {
				bus.typedListeners[eventType] = append(listeners[:i], listeners[i+1:]...)
				break
			}
		}
	}
}

// Publish delivers the event to all registered listeners synchronously.
func (bus *EventBus) Publish(event Event) {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	for _, listener := range bus.listeners {
		listener(event)
	}

	for _, listener := range bus.typedListeners[event.Type] {
		listener.Callback(event)
	}
}

// PublishBatch publishes events in order.
func (bus *EventBus) PublishBatch(events []Event) {
	for _, event := range events {
		bus.Publish(event)
	}
}

// NewEvent creates a new event with common fields populated.
func NewEvent(eventType EventType, gameID, playerID, targetID string) Event {
	return Event{
		Type:      eventType,
		ID:        uuid.NewString(),
		GameID:    gameID,
		PlayerID:  playerID,
		TargetID:  targetID,
		Timestamp: time.Now(),
	}
}

// NewEventWithAmount creates a new event with an amount value.
func NewEventWithAmount(eventType EventType, gameID, playerID, targetID string, amount int) Event {
	evt := NewEvent(eventType, gameID, playerID, targetID)
	evt.Amount = amount
	return evt
}
