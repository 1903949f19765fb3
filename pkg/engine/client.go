// Package engine is the task core's view of the durable execution engine: it starts
// executions and delivers signals to them.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
)

// Signal names understood by running executions.
const (
	SignalTaskCompleted     = "taskCompleted"
	SignalApprovalSubmitted = "approvalSubmitted"
)

var ErrEngineUnavailable = errors.New("execution engine unavailable")

// StartRequest is everything the engine needs to start one execution.
type StartRequest struct {
	OrgID          string
	ExecutionID    string
	DefinitionID   string
	DefinitionName string
	Args           map[string]any
	Steps          []models.RuntimeStep
}

// Client starts executions and signals them. ExecutionID doubles as the engine's
// idempotency key, so retrying Start with the same id is safe.
type Client interface {
	Start(ctx context.Context, req StartRequest) (runID string, err error)
	Signal(ctx context.Context, orgID, executionID, name string, payload map[string]any) error
}

// TaskCompleted is the payload of the taskCompleted signal.
type TaskCompleted struct {
	TaskID      string
	CompletedBy string
}

func (p TaskCompleted) Payload() map[string]any {
	return map[string]any{
		"taskId":      p.TaskID,
		"completedBy": p.CompletedBy,
	}
}

// ApprovalSubmitted is the payload of the approvalSubmitted signal.
type ApprovalSubmitted struct {
	Outcome    models.TaskOutcome
	Comment    string
	ApprovedBy string
}

func (p ApprovalSubmitted) Payload() map[string]any {
	payload := map[string]any{
		"outcome":    string(p.Outcome),
		"approvedBy": p.ApprovedBy,
	}

	if p.Comment != "" {
		payload["comment"] = p.Comment
	}

	return payload
}

// EventBusClient hands start and signal requests to the engine over the event bus.
type EventBusClient struct {
	publisher eventbus.EventPublisher
	idgen     func() string
	logger    *slog.Logger
}

// NewEventBusClient publishes through bus; run ids come from bus.GenerateID.
func NewEventBusClient(bus eventbus.EventBus, logger *slog.Logger) *EventBusClient {
	return &EventBusClient{
		publisher: bus,
		idgen:     bus.GenerateID,
		logger:    logger.With("module", "engine"),
	}
}

func (c *EventBusClient) Start(ctx context.Context, req StartRequest) (string, error) {
	base := events.NewBaseEvent(events.ExecutionStartRequestedEvent, req.OrgID)
	runID := c.idgen()
	base.Metadata["run_id"] = runID

	event := events.ExecutionStartRequested{
		BaseEvent:      base,
		ExecutionID:    req.ExecutionID,
		DefinitionID:   req.DefinitionID,
		DefinitionName: req.DefinitionName,
		Args:           req.Args,
		Steps:          req.Steps,
	}

	if err := event.Validate(); err != nil {
		return "", err
	}

	if err := c.publisher.Publish(ctx, req.ExecutionID, event); err != nil {
		return "", fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	c.logger.InfoContext(ctx, "execution start requested",
		"execution_id", req.ExecutionID,
		"definition", req.DefinitionName,
		"run_id", runID)

	return runID, nil
}

func (c *EventBusClient) Signal(ctx context.Context, orgID, executionID, name string, payload map[string]any) error {
	event := events.ExecutionSignal{
		BaseEvent:   events.NewBaseEvent(events.ExecutionSignalEvent, orgID),
		ExecutionID: executionID,
		Signal:      name,
		Payload:     payload,
	}

	if err := event.Validate(); err != nil {
		return err
	}

	if err := c.publisher.Publish(ctx, executionID, event); err != nil {
		return fmt.Errorf("%w: %w", ErrEngineUnavailable, err)
	}

	c.logger.DebugContext(ctx, "signal sent", "execution_id", executionID, "signal", name)

	return nil
}
