package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// Audit actions.
const (
	AuditTaskClaimed       = "task.claimed"
	AuditTaskUpdated       = "task.updated"
	AuditTaskStatusChanged = "task.status_changed"
	AuditTaskCompleted     = "task.completed"
	AuditTaskApproved      = "task.approved"
	AuditTaskRejected      = "task.rejected"
	AuditExecutionStarted  = "execution.started"
	AuditContactUpdated    = "contact.updated"
)

// AuditTrail appends audit events and fans them out on the event bus. Both writes
// happen after the audited change committed, so failures are logged and dropped.
type AuditTrail struct {
	repo      persistence.AuditRepository
	publisher eventbus.EventPublisher
	logger    *slog.Logger
}

// NewAuditTrail creates an audit trail. publisher may be nil.
func NewAuditTrail(repo persistence.AuditRepository, publisher eventbus.EventPublisher, logger *slog.Logger) *AuditTrail {
	return &AuditTrail{
		repo:      repo,
		publisher: publisher,
		logger:    logger.With("module", "audit"),
	}
}

func (a *AuditTrail) record(ctx context.Context, actor models.AccessContext, entityType, entityID, action string, metadata map[string]any) {
	if a == nil {
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to generate audit ID", "error", err)

		return
	}

	event := &models.AuditEvent{
		ID:         id.String(),
		OrgID:      actor.OrgID,
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actor.UserID,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	}

	if err := a.repo.Record(ctx, event); err != nil {
		a.logger.ErrorContext(ctx, "failed to record audit event",
			"action", action, "entity_id", entityID, "error", err)

		return
	}

	if a.publisher == nil {
		return
	}

	published := events.AuditRecorded{
		BaseEvent: events.NewBaseEvent(events.AuditRecordedEvent, actor.OrgID),
		Audit:     *event,
	}

	if err := a.publisher.Publish(ctx, entityID, published); err != nil {
		a.logger.WarnContext(ctx, "failed to publish audit event", "action", action, "error", err)
	}
}
