package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/eventbus"
	"github.com/dukex/caseflow/pkg/events"
	"github.com/dukex/caseflow/pkg/models"
)

// Reasons attached to task.assigned notifications.
const (
	ReasonAssigned     = "assigned"
	ReasonRoleAssigned = "role_assigned"
)

// RecipientResolver expands a recipient spec into user ids.
type RecipientResolver interface {
	Resolve(ctx context.Context, orgID string, spec models.RecipientSpec) ([]string, error)
}

// Notifier publishes task.assigned events; delivery happens downstream.
type Notifier struct {
	publisher  eventbus.EventPublisher
	recipients RecipientResolver
	logger     *slog.Logger
}

func NewNotifier(publisher eventbus.EventPublisher, recipients RecipientResolver, logger *slog.Logger) *Notifier {
	return &Notifier{
		publisher:  publisher,
		recipients: recipients,
		logger:     logger.With("module", "notify"),
	}
}

// NotifyAssignee tells userID that the task is now theirs.
func (n *Notifier) NotifyAssignee(ctx context.Context, task *models.Task, userID string) error {
	return n.publish(ctx, task, []string{userID}, ReasonAssigned)
}

// NotifyRole tells every member holding role about an unassigned task. A role with
// no members is not an error.
func (n *Notifier) NotifyRole(ctx context.Context, task *models.Task, role string) error {
	userIDs, err := n.recipients.Resolve(ctx, task.OrgID, models.RecipientSpec{
		Type:  models.RecipientRole,
		Value: role,
	})
	if err != nil {
		return fmt.Errorf("failed to resolve members of role %s: %w", role, err)
	}

	if len(userIDs) == 0 {
		n.logger.DebugContext(ctx, "no members to notify", "task_id", task.ID, "role", role)

		return nil
	}

	return n.publish(ctx, task, userIDs, ReasonRoleAssigned)
}

func (n *Notifier) publish(ctx context.Context, task *models.Task, userIDs []string, reason string) error {
	event := events.TaskAssigned{
		BaseEvent: events.NewBaseEvent(events.TaskAssignedEvent, task.OrgID),
		TaskID:    task.ID,
		UserIDs:   userIDs,
		Title:     task.Title,
		Reason:    reason,
	}

	if err := n.publisher.Publish(ctx, task.ID, event); err != nil {
		return fmt.Errorf("failed to publish task assignment for %s: %w", task.ID, err)
	}

	n.logger.InfoContext(ctx, "task assignment published", "task_id", task.ID, "recipients", len(userIDs), "reason", reason)

	return nil
}
