// Package events provides the in-process event bus connecting the fusion
// pipeline to reactive consumers (SSE streams, status endpoints).
package events

import (
	"github.com/kelindar/event"
)

// Bus wraps a kelindar/event dispatcher for event broadcasting.
type Bus struct {
	dispatcher *event.Dispatcher
}

// New creates a new event bus.
func New() *Bus {
	return &Bus{
		dispatcher: event.NewDispatcher(),
	}
}

// Publish publishes an event to all subscribers.
// Usage: bus.Publish(SampleSyncedEvent{...})
func (b *Bus) Publish(ev Event) {
	// kelindar/event dispatches on the concrete type, so the interface
	// value has to be unwrapped before publishing.
	switch e := ev.(type) {
	case SampleSyncedEvent:
		event.Publish(b.dispatcher, e)
	case FrameDroppedEvent:
		event.Publish(b.dispatcher, e)
	case TriggerAnomalyEvent:
		event.Publish(b.dispatcher, e)
	case DeviceStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case RecordingStateChangedEvent:
		event.Publish(b.dispatcher, e)
	case LogEntryEvent:
		event.Publish(b.dispatcher, e)
	}
}

// Subscribe subscribes to events with a handler function. The handler's
// parameter type determines which events it receives. Returns an
// unsubscribe function.
// Usage: unsub := bus.Subscribe(func(e SampleSyncedEvent) { ... })
func (b *Bus) Subscribe(handler any) func() {
	switch h := handler.(type) {
	case func(SampleSyncedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(FrameDroppedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(TriggerAnomalyEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(DeviceStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(RecordingStateChangedEvent):
		return event.Subscribe(b.dispatcher, h)
	case func(LogEntryEvent):
		return event.Subscribe(b.dispatcher, h)
	default:
		return func() {}
	}
}

// SubscribeToChannel bridges callback-based subscriptions to channels for
// SSE select loops. Events are dropped when the channel is full so a slow
// consumer can never back up the publisher.
func SubscribeToChannel[T Event](bus *Bus, ch chan<- any) func() {
	return event.Subscribe(bus.dispatcher, func(e T) {
		select {
		case ch <- e:
		default:
		}
	})
}
