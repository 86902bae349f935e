// Package messaging implements the in-process event bus used to fan out
// lifecycle and issuance events to subscribers (audit log, notification
// hooks). The bus is synchronous: Publish returns after every subscriber
// has run, and a panicking subscriber never takes down the publisher.
package messaging

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/internhub/internship-back-office/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// Handler processes a single domain event.
type Handler func(event shared.Event)

// Metrics tracks event bus activity.
type Metrics struct {
	Published uint64
	Delivered uint64
	Panics    uint64
}

// EventBus is a synchronous in-process publish/subscribe bus.
type EventBus struct {
	mu       sync.RWMutex
	handlers map[shared.EventType][]Handler
	all      []Handler
	logger   *slog.Logger

	published atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// NewEventBus creates a new EventBus.
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[shared.EventType][]Handler),
		logger:   logger,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *EventBus) Subscribe(eventType shared.EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeAll registers a handler invoked for every event.
func (b *EventBus) SubscribeAll(handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, handler)
}

// Publish delivers the event to all matching subscribers, in
// registration order. Implements shared.EventPublisher.
func (b *EventBus) Publish(event shared.Event) error {
	if event == nil {
		return fmt.Errorf("eventbus: cannot publish nil event")
	}

	b.published.Add(1)

	b.mu.RLock()
	typed := make([]Handler, len(b.handlers[event.EventType()]))
	copy(typed, b.handlers[event.EventType()])
	all := make([]Handler, len(b.all))
	copy(all, b.all)
	b.mu.RUnlock()

	for _, h := range typed {
		b.deliver(event, h)
	}
	for _, h := range all {
		b.deliver(event, h)
	}

	return nil
}

// deliver runs one handler with panic isolation.
func (b *EventBus) deliver(event shared.Event, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.panics.Add(1)
			b.logger.Error("event handler panicked",
				slog.String("event_type", string(event.EventType())),
				slog.String("aggregate_id", event.AggregateID()),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()

	handler(event)
	b.delivered.Add(1)
}

// Metrics returns a snapshot of bus counters.
func (b *EventBus) Metrics() Metrics {
	return Metrics{
		Published: b.published.Load(),
		Delivered: b.delivered.Load(),
		Panics:    b.panics.Load(),
	}
}

// NoopPublisher discards all events. Used where event publication is
// optional.
type NoopPublisher struct{}

// Publish implements shared.EventPublisher.
func (NoopPublisher) Publish(shared.Event) error { return nil }
