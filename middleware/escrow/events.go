package escrow

import (
	"sync"

	"bount3-backend/core/escrow"
)

// EventBus fans committed escrow events out to its registered sinks. One bus
// is wired per engine, so consumers never see events from another instance.
type EventBus struct {
	mu    sync.Mutex
	sinks []func(escrow.Event)
}

// NewEventBus returns a bus with no sinks.
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Register adds a callback to receive events. Sinks must not call back into
// the engine.
func (b *EventBus) Register(sink func(escrow.Event)) {
	if sink == nil {
		return
	}
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

// Publish forwards an event to every registered sink.
func (b *EventBus) Publish(evt escrow.Event) {
	b.mu.Lock()
	sinks := append([]func(escrow.Event){}, b.sinks...)
	b.mu.Unlock()
	for _, sink := range sinks {
		sink(evt)
	}
}
