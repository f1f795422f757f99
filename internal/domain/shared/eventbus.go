package shared

import "context"

// EventHandler consumes domain events.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error

	// EventTypes lists the event types this handler wants. An empty
	// slice subscribes the handler to everything.
	EventTypes() []string
}

// EventPublisher is the producing half of the bus.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber is the consuming half of the bus.
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string) error
	Unsubscribe(handler EventHandler) error
}

// EventBus combines both halves with a lifecycle. Start must be called
// before events flow; Stop drains in-flight deliveries.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
