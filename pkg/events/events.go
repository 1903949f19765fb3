// Package events defines the messages exchanged between the task core, the execution
// engine and notification delivery.
package events

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

// ErrInvalidEventData is returned when an event is missing a required field.
var ErrInvalidEventData = errors.New("invalid event data")

type EventType string

// Topic carries every caseflow event; consumers filter on the event type metadata.
const Topic = "caseflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Engine requests.
	ExecutionStartRequestedEvent EventType = "execution.start_requested"
	ExecutionSignalEvent         EventType = "execution.signal"

	// Task notifications.
	TaskAssignedEvent EventType = "task.assigned"

	// Audit fan-out.
	AuditRecordedEvent EventType = "audit.recorded"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	OrgID     string         `json:"org_id"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// ExecutionStartRequested asks the engine to start running a compiled definition.
// ExecutionID is the engine's idempotency key.
type ExecutionStartRequested struct {
	BaseEvent

	ExecutionID    string               `json:"execution_id"`
	DefinitionID   string               `json:"definition_id"`
	DefinitionName string               `json:"definition_name"`
	Args           map[string]any       `json:"args,omitempty"`
	Steps          []models.RuntimeStep `json:"steps"`
}

func (e ExecutionStartRequested) GetType() EventType {
	return ExecutionStartRequestedEvent
}

// Validate performs basic validation on the start request.
func (e *ExecutionStartRequested) Validate() error {
	if e.ExecutionID == "" {
		return fmt.Errorf("%w: execution_id is required", ErrInvalidEventData)
	}

	if e.DefinitionName == "" {
		return fmt.Errorf("%w: definition_name is required", ErrInvalidEventData)
	}

	if len(e.Steps) == 0 {
		return fmt.Errorf("%w: steps are required", ErrInvalidEventData)
	}

	return nil
}

// ExecutionSignal delivers a named signal to a running execution.
type ExecutionSignal struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	Signal      string         `json:"signal"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func (e ExecutionSignal) GetType() EventType {
	return ExecutionSignalEvent
}

// Validate performs basic validation on the signal.
func (e *ExecutionSignal) Validate() error {
	if e.ExecutionID == "" {
		return fmt.Errorf("%w: execution_id is required", ErrInvalidEventData)
	}

	if e.Signal == "" {
		return fmt.Errorf("%w: signal is required", ErrInvalidEventData)
	}

	return nil
}

// GetPayloadString safely extracts a string value from the signal payload.
func (e *ExecutionSignal) GetPayloadString(key string) (string, bool) {
	value, exists := e.Payload[key]
	if !exists {
		return "", false
	}

	strValue, ok := value.(string)

	return strValue, ok
}

// TaskAssigned tells notification delivery that users gained a task.
type TaskAssigned struct {
	BaseEvent

	TaskID  string   `json:"task_id"`
	UserIDs []string `json:"user_ids"`
	Title   string   `json:"title"`
	Reason  string   `json:"reason"`
}

func (e TaskAssigned) GetType() EventType {
	return TaskAssignedEvent
}

type AuditRecorded struct {
	BaseEvent

	Audit models.AuditEvent `json:"audit"`
}

func (e AuditRecorded) GetType() EventType {
	return AuditRecordedEvent
}

func NewBaseEvent(eventType EventType, orgID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		OrgID:     orgID,
		Metadata:  make(map[string]any),
	}
}
