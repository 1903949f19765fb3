// Package eventbus carries caseflow events between the task core, the execution engine
// and notification delivery.
package eventbus

import (
	"context"

	"github.com/dukex/caseflow/pkg/events"
)

// Event is any caseflow message; its type selects the subscriber handler.
type Event interface {
	GetType() events.EventType
}

// EventPublisher is the outbound side used by the task core. engine.EventBusClient
// publishes ExecutionStartRequested and ExecutionSignal keyed by execution id, the
// notifier publishes TaskAssigned keyed by task id, and the audit trail publishes
// AuditRecorded keyed by entity id. Publishing happens after the storage write commits.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

// EventSubscriber is the inbound side for the engine adapter and notification
// delivery. Handlers are registered per event type before Subscribe starts consuming.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event struct, e.g. *events.ExecutionSignal.
type EventHandler func(ctx context.Context, event any) error

// EventBus combines both sides. GenerateID yields the run ids handed back by
// engine.EventBusClient.Start.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
