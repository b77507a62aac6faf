package events

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Event is a published event as seen by subscribers
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      EventData `json:"data"`
	Type      EventType `json:"type"`
	Module    string    `json:"module"`
}

// Handler receives events synchronously on the publishing goroutine.
// Handlers must not block; hand work off to a channel when it is slow.
type Handler func(event *Event)

// SubscriptionID identifies a handler for Unsubscribe
type SubscriptionID uint64

type subscription struct {
	handler Handler
	id      SubscriptionID
}

// Bus fans events out to subscribers
type Bus struct {
	handlers map[EventType][]subscription
	all      []subscription
	log      zerolog.Logger
	mu       sync.RWMutex
	nextID   SubscriptionID
}

// NewBus creates an empty event bus
func NewBus(log zerolog.Logger) *Bus {
	return &Bus{
		handlers: make(map[EventType][]subscription),
		log:      log.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers handler for one event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// SubscribeAll registers handler for every event type
func (b *Bus) SubscribeAll(handler Handler) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.all = append(b.all, subscription{id: b.nextID, handler: handler})
	return b.nextID
}

// Unsubscribe removes a handler; unknown ids are ignored
func (b *Bus) Unsubscribe(id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for t, subs := range b.handlers {
		b.handlers[t] = without(subs, id)
	}
	b.all = without(b.all, id)
}

func without(subs []subscription, id SubscriptionID) []subscription {
	out := subs[:0:0]
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Publish delivers event to type subscribers first, then catch-all subscribers.
// A panicking handler is logged and does not stop delivery.
func (b *Bus) Publish(event *Event) {
	b.mu.RLock()
	targets := make([]subscription, 0, len(b.handlers[event.Type])+len(b.all))
	targets = append(targets, b.handlers[event.Type]...)
	targets = append(targets, b.all...)
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscription, event *Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Interface("panic", r).
				Str("event_type", string(event.Type)).
				Uint64("subscription", uint64(s.id)).
				Msg("Event handler panicked")
		}
	}()
	s.handler(event)
}

// SubscriberCount returns the number of handlers that would receive eventType
func (b *Bus) SubscriberCount(eventType EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[eventType]) + len(b.all)
}
