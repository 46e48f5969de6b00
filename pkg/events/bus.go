package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// Wildcard subscribes to every event type.
	Wildcard = "*"

	TypeSessionState   = "session.state"
	TypeSessionMessage = "session.message"
	TypeSessionLevel   = "session.level"
	TypeSessionError   = "session.error"
	TypeBargeIn        = "session.barge_in"
)

// Event system event
type Event struct {
	Type      string                 `json:"type"`      // Event type, e.g. "session.state"
	Timestamp time.Time              `json:"timestamp"` // Event timestamp
	Data      map[string]interface{} `json:"data"`      // Event data
	Source    string                 `json:"source"`    // Event source
}

// EventHandler event handler function. Handlers run on the publisher's
// goroutine in subscription order and must not block.
type EventHandler func(event Event) error

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventBus event bus
type EventBus struct {
	handlers       map[string][]subscription
	publishedTypes map[string]time.Time // first publish time per event type
	nextID         uint64
	logger         *zap.Logger
	mu             sync.RWMutex
}

func NewEventBus(logger *zap.Logger) *EventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventBus{
		handlers:       make(map[string][]subscription),
		publishedTypes: make(map[string]time.Time),
		logger:         logger,
	}
}

// Subscribe subscribes to events and returns a function removing the subscription.
func (bus *EventBus) Subscribe(eventType string, handler EventHandler) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.nextID++
	id := bus.nextID
	bus.handlers[eventType] = append(bus.handlers[eventType], subscription{id: id, handler: handler})
	bus.logger.Debug("Event handler subscribed", zap.String("eventType", eventType))

	var once sync.Once
	return func() {
		once.Do(func() { bus.remove(eventType, id) })
	}
}

func (bus *EventBus) remove(eventType string, id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	subs := bus.handlers[eventType]
	for i, s := range subs {
		if s.id == id {
			bus.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(bus.handlers[eventType]) == 0 {
		delete(bus.handlers, eventType)
	}
}

// Unsubscribe removes all handlers for the type
func (bus *EventBus) Unsubscribe(eventType string) {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	delete(bus.handlers, eventType)
}

// Publish publishes an event
func (bus *EventBus) Publish(event Event) {
	if bus == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	bus.mu.Lock()
	if _, exists := bus.publishedTypes[event.Type]; !exists {
		bus.publishedTypes[event.Type] = event.Timestamp
	}
	all := make([]subscription, 0, len(bus.handlers[event.Type])+len(bus.handlers[Wildcard]))
	all = append(all, bus.handlers[event.Type]...)
	all = append(all, bus.handlers[Wildcard]...)
	bus.mu.Unlock()

	for _, s := range all {
		if err := s.handler(event); err != nil {
			bus.logger.Error("Event handler failed",
				zap.String("eventType", event.Type),
				zap.Error(err))
		}
	}
}

// PublishEvent convenience method: publish event
func (bus *EventBus) PublishEvent(eventType string, data map[string]interface{}, source string) {
	bus.Publish(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
		Source:    source,
	})
}

// GetPublishedEventTypes gets all published event types
func (bus *EventBus) GetPublishedEventTypes() map[string]time.Time {
	bus.mu.RLock()
	defer bus.mu.RUnlock()

	result := make(map[string]time.Time, len(bus.publishedTypes))
	for k, v := range bus.publishedTypes {
		result[k] = v
	}
	return result
}
