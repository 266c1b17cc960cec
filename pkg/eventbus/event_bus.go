// Package eventbus provides the event publishing boundary between the
// routing engine and the notification collaborator.
package eventbus

import (
	"context"

	"github.com/vistolabs/visto/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventHandler func(ctx context.Context, event any) error

type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventBus interface {
	EventPublisher

	// Handle registers a handler for one event type. Registration must
	// happen before Subscribe.
	Handle(eventType events.EventType, handler EventHandler) error

	// Subscribe starts consuming the document topic until ctx is done.
	Subscribe(ctx context.Context) error

	GenerateID() string
	Close() error
}
