// Package eventbus carries formation lifecycle events between the API and the worker.
package eventbus

import (
	"context"

	"github.com/dukex/formation/pkg/events"
)

// Event is anything the bus can route. Instance creation, step submission, step
// completion and document uploads each carry their own type.
type Event interface {
	GetType() events.EventType
}

// EventPublisher sends formation events. The key is the workflow instance id, so every
// event of one application lands on the same partition and keeps its order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber dispatches incoming events by type. Handlers are registered with
// Handle before Subscribe starts consuming; one handler serves each event type.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives the decoded event, e.g. *events.StepSubmitted. Returning an error
// nacks the message.
type EventHandler func(ctx context.Context, event any) error

// EventBus is the transport shared by the API and worker processes. GenerateID names the
// messages it publishes.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
