// Package eventbus is the synchronous publish/subscribe channel through
// which the recorder, the render coordinator and editor instances notify
// the front-end.
package eventbus

import (
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/user/clipdeck/pkg/ports"
)

// Handler handles one event. Handlers run on the publisher's goroutine and
// must not block.
type Handler func(Event)

// Publisher is the publishing side of a Bus.
type Publisher interface {
	Publish(Event)
}

type subscription struct {
	id        string
	eventType string
	handler   Handler
}

// Bus is a synchronous pub-sub event bus.
type Bus struct {
	mu            sync.RWMutex
	subscriptions map[string][]subscription // eventType -> subscriptions
	nextID        atomic.Uint64
	logger        ports.Logger
}

// New creates an event bus. Handler panics are reported to logger.
func New(logger ports.Logger) *Bus {
	return &Bus{
		subscriptions: make(map[string][]subscription),
		logger:        logger.WithComponent("events"),
	}
}

// Subscribe registers a handler for one event type and returns the
// subscription id.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := "sub-" + strconv.FormatUint(b.nextID.Add(1), 10)
	b.subscriptions[eventType] = append(b.subscriptions[eventType], subscription{
		id:        id,
		eventType: eventType,
		handler:   handler,
	})
	return id
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe("*", handler)
}

// Unsubscribe removes a subscription. It reports whether the id was found.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subscriptions {
		for i, sub := range subs {
			if sub.id == id {
				next := make([]subscription, 0, len(subs)-1)
				next = append(next, subs[:i]...)
				b.subscriptions[eventType] = append(next, subs[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Publish calls the handlers of the event's type, then the wildcard
// handlers, each group in registration order. A panicking handler is
// logged and skipped.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	specific := append([]subscription(nil), b.subscriptions[event.EventType()]...)
	wildcard := append([]subscription(nil), b.subscriptions["*"]...)
	b.mu.RUnlock()

	for _, sub := range specific {
		b.safeCall(sub.handler, event)
	}
	for _, sub := range wildcard {
		b.safeCall(sub.handler, event)
	}
}

func (b *Bus) safeCall(handler Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Event handler panicked for %s: %v\n%s", event.EventType(), r, debug.Stack())
		}
	}()
	handler(event)
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, subs := range b.subscriptions {
		count += len(subs)
	}
	return count
}

var _ Publisher = (*Bus)(nil)
