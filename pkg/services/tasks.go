package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/engine"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/otelhelper"
	"github.com/dukex/caseflow/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// AssignmentNotifier tells users about tasks they gained.
type AssignmentNotifier interface {
	NotifyAssignee(ctx context.Context, task *models.Task, userID string) error
	NotifyRole(ctx context.Context, task *models.Task, role string) error
}

// TaskResult is returned by every task operation. WorkflowSignaled is true when at
// least one signal reached the linked execution.
type TaskResult struct {
	Task             *models.Task `json:"task"`
	WorkflowSignaled bool         `json:"workflowSignaled"`
}

// TaskPatch is a generic task edit. Nil fields are left untouched; an empty AssignedTo
// or AssignedRole clears it.
type TaskPatch struct {
	Title        *string
	Description  *string
	Priority     *models.TaskPriority
	DueAt        *time.Time
	AssignedTo   *string
	AssignedRole *string
	Status       *models.TaskStatus
}

// Tasks is the task access and lifecycle state machine. Transitions across a terminal
// boundary are conditional writes; the loser of a race re-reads to classify.
type Tasks struct {
	persistence persistence.Persistence
	engine      engine.Client
	notifier    AssignmentNotifier
	audit       *AuditTrail
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

func NewTasks(
	p persistence.Persistence,
	engineClient engine.Client,
	notifier AssignmentNotifier,
	audit *AuditTrail,
	tracer trace.Tracer,
	logger *slog.Logger,
) *Tasks {
	return &Tasks{
		persistence: p,
		engine:      engineClient,
		notifier:    notifier,
		audit:       audit,
		tracer:      tracer,
		logger:      logger.With("module", "tasks"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Tasks) startSpan(ctx context.Context, op string, actor models.AccessContext, taskID string) (context.Context, trace.Span) {
	return otelhelper.StartSpan(ctx, s.tracer, "tasks."+op,
		attribute.String(otelhelper.TaskOperationKey, op),
		attribute.String(otelhelper.TaskIDKey, taskID),
		attribute.String(otelhelper.OrgIDKey, actor.OrgID),
		attribute.String(otelhelper.UserIDKey, actor.UserID),
	)
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		otelhelper.SetError(span, *err)
	}

	span.End()
}

func (s *Tasks) load(ctx context.Context, op, orgID, taskID string) (*models.Task, error) {
	task, err := s.persistence.Tasks().GetByID(ctx, orgID, taskID)
	if err != nil {
		if persistence.IsTaskNotFound(err) {
			return nil, &ServiceError{Op: op, Code: "task_not_found", Message: "task " + taskID + " not found", Err: ErrTaskNotFound}
		}

		return nil, fmt.Errorf("failed to load task %s: %w", taskID, err)
	}

	return task, nil
}

// reread classifies a conditional write that did not apply.
func (s *Tasks) reread(ctx context.Context, op, orgID, taskID string, classify func(*models.Task) error) error {
	task, err := s.load(ctx, op, orgID, taskID)
	if err != nil {
		return err
	}

	return classify(task)
}

func canModify(actor models.AccessContext, task *models.Task) bool {
	return actor.HasAdminAccess || task.IsAssignedTo(actor.UserID)
}

func canView(actor models.AccessContext, task *models.Task) bool {
	if canModify(actor, task) {
		return true
	}

	return task.AssignedRole != nil && access.CanAccessAssignedRole(actor, *task.AssignedRole)
}

// Get returns a task the actor may see: admins, the assignee, and holders of the
// assigned role.
func (s *Tasks) Get(ctx context.Context, actor models.AccessContext, taskID string) (result *TaskResult, err error) {
	ctx, span := s.startSpan(ctx, "get", actor, taskID)
	defer endSpan(span, &err)

	task, err := s.load(ctx, "Get", actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	if !canView(actor, task) {
		return nil, NewForbiddenError("Get", "not allowed to view this task")
	}

	return &TaskResult{Task: task}, nil
}

// Claim assigns an unassigned role task to the actor.
func (s *Tasks) Claim(ctx context.Context, actor models.AccessContext, taskID string) (result *TaskResult, err error) {
	const op = "Claim"

	ctx, span := s.startSpan(ctx, "claim", actor, taskID)
	defer endSpan(span, &err)

	task, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	if task.AssignedRole == nil || strings.TrimSpace(*task.AssignedRole) == "" {
		return nil, NewValidationError(op, "not_claimable", "task has no assigned role")
	}

	if !access.CanAccessAssignedRole(actor, *task.AssignedRole) {
		return nil, NewForbiddenError(op, "role "+*task.AssignedRole+" required to claim this task")
	}

	if task.AssignedTo != nil {
		return nil, newConflict(op, ReasonAlreadyClaimed, task)
	}

	applied, err := s.persistence.Tasks().Claim(ctx, actor.OrgID, taskID, actor.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim task %s: %w", taskID, err)
	}

	if !applied {
		return nil, s.reread(ctx, op, actor.OrgID, taskID, func(current *models.Task) error {
			return newConflict(op, ReasonAlreadyClaimed, current)
		})
	}

	claimed, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "task", taskID, AuditTaskClaimed, map[string]any{
		"assignedRole": *task.AssignedRole,
	})

	s.logger.InfoContext(ctx, "task claimed", "task_id", taskID, "user_id", actor.UserID)

	return &TaskResult{Task: claimed}, nil
}

func validateStatusMove(op string, from, to models.TaskStatus) error {
	if !to.Valid() {
		return NewValidationError(op, "invalid_status", fmt.Sprintf("unknown status %q", to))
	}

	if to.Rank() < from.Rank() {
		return NewValidationError(op, "invalid_transition", fmt.Sprintf("cannot move task from %s back to %s", from, to))
	}

	return nil
}

// classifyUpdateMiss explains why a guarded write computed from prior did not apply.
func (s *Tasks) classifyUpdateMiss(op string, prior *models.Task) func(*models.Task) error {
	return func(current *models.Task) error {
		switch {
		case current.IsDone():
			return newConflict(op, ReasonAlreadyCompleted, current)
		case current.Status != prior.Status:
			return newConflict(op, ReasonStatusChanged, current)
		case prior.AssignedTo == nil && current.AssignedTo != nil:
			return newConflict(op, ReasonAlreadyClaimed, current)
		default:
			return newConflict(op, ReasonAssignmentChanged, current)
		}
	}
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	return &value
}

func sameOptional(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}

	return *a == *b
}

// Mutate applies a generic edit. Only admins and the assignee may edit, and the
// terminal status is reserved for SetStatus, Approve and Reject.
func (s *Tasks) Mutate(ctx context.Context, actor models.AccessContext, taskID string, patch TaskPatch) (result *TaskResult, err error) {
	const op = "Mutate"

	ctx, span := s.startSpan(ctx, "mutate", actor, taskID)
	defer endSpan(span, &err)

	task, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, task) {
		return nil, NewForbiddenError(op, "only an admin or the assignee may edit this task")
	}

	if task.IsDone() {
		return nil, newConflict(op, ReasonAlreadyCompleted, task)
	}

	fields := persistence.TaskFields{
		Title:        task.Title,
		Description:  task.Description,
		AssignedTo:   task.AssignedTo,
		AssignedRole: task.AssignedRole,
		Status:       task.Status,
		Priority:     task.Priority,
		DueAt:        task.DueAt,
		UpdatedAt:    s.now(),
	}

	changed := make([]string, 0)

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, NewValidationError(op, "invalid_title", "title cannot be empty")
		}

		fields.Title = title
		changed = append(changed, "title")
	}

	if patch.Description != nil {
		fields.Description = *patch.Description
		changed = append(changed, "description")
	}

	if patch.Priority != nil {
		if !patch.Priority.Valid() {
			return nil, NewValidationError(op, "invalid_priority", fmt.Sprintf("unknown priority %q", *patch.Priority))
		}

		fields.Priority = *patch.Priority
		changed = append(changed, "priority")
	}

	if patch.DueAt != nil {
		dueAt := patch.DueAt.UTC()
		fields.DueAt = &dueAt
		changed = append(changed, "dueAt")
	}

	if patch.AssignedTo != nil {
		fields.AssignedTo = optional(*patch.AssignedTo)
		changed = append(changed, "assignedTo")
	}

	if patch.AssignedRole != nil {
		fields.AssignedRole = optional(*patch.AssignedRole)
		changed = append(changed, "assignedRole")
	}

	if patch.Status != nil {
		if *patch.Status == models.TaskStatusDone {
			return nil, NewValidationError(op, "invalid_transition", "use the status operation to complete a task")
		}

		if err := validateStatusMove(op, task.Status, *patch.Status); err != nil {
			return nil, err
		}

		fields.Status = *patch.Status
		changed = append(changed, "status")
	}

	if len(changed) == 0 {
		return &TaskResult{Task: task}, nil
	}

	applied, err := s.persistence.Tasks().UpdateFields(ctx, actor.OrgID, taskID, persistence.GuardOf(task), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
	}

	if !applied {
		return nil, s.reread(ctx, op, actor.OrgID, taskID, s.classifyUpdateMiss(op, task))
	}

	updated, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "task", taskID, AuditTaskUpdated, map[string]any{"fields": changed})
	s.notifyReassignment(ctx, task, updated)

	return &TaskResult{Task: updated}, nil
}

// notifyReassignment is best-effort: a failed notification never fails the edit.
func (s *Tasks) notifyReassignment(ctx context.Context, before, after *models.Task) {
	if s.notifier == nil {
		return
	}

	switch {
	case after.AssignedTo != nil && !sameOptional(before.AssignedTo, after.AssignedTo):
		if err := s.notifier.NotifyAssignee(ctx, after, *after.AssignedTo); err != nil {
			s.logger.WarnContext(ctx, "failed to notify new assignee",
				"task_id", after.ID, "user_id", *after.AssignedTo, "error", err)
		}

	case after.AssignedTo == nil && after.AssignedRole != nil && !sameOptional(before.AssignedRole, after.AssignedRole):
		if err := s.notifier.NotifyRole(ctx, after, *after.AssignedRole); err != nil {
			s.logger.WarnContext(ctx, "failed to notify role members",
				"task_id", after.ID, "role", *after.AssignedRole, "error", err)
		}
	}
}

// SetStatus moves a task to status. Moving a standard task to done completes it and
// signals the linked execution; completing an already completed task is a no-op.
func (s *Tasks) SetStatus(ctx context.Context, actor models.AccessContext, taskID string, status models.TaskStatus) (result *TaskResult, err error) {
	const op = "SetStatus"

	ctx, span := s.startSpan(ctx, "set_status", actor, taskID)
	defer endSpan(span, &err)

	if !status.Valid() {
		return nil, NewValidationError(op, "invalid_status", fmt.Sprintf("unknown status %q", status))
	}

	task, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, task) {
		return nil, NewForbiddenError(op, "only an admin or the assignee may change the status of this task")
	}

	if status == models.TaskStatusDone {
		return s.complete(ctx, actor, task)
	}

	if task.IsDone() {
		return nil, newConflict(op, ReasonAlreadyCompleted, task)
	}

	if err := validateStatusMove(op, task.Status, status); err != nil {
		return nil, err
	}

	if status == task.Status {
		return &TaskResult{Task: task}, nil
	}

	fields := persistence.TaskFields{
		Title:        task.Title,
		Description:  task.Description,
		AssignedTo:   task.AssignedTo,
		AssignedRole: task.AssignedRole,
		Status:       status,
		Priority:     task.Priority,
		DueAt:        task.DueAt,
		UpdatedAt:    s.now(),
	}

	applied, err := s.persistence.Tasks().UpdateFields(ctx, actor.OrgID, taskID, persistence.GuardOf(task), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to update status of task %s: %w", taskID, err)
	}

	if !applied {
		return nil, s.reread(ctx, op, actor.OrgID, taskID, s.classifyUpdateMiss(op, task))
	}

	updated, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "task", taskID, AuditTaskStatusChanged, map[string]any{
		"from": string(task.Status),
		"to":   string(status),
	})

	return &TaskResult{Task: updated}, nil
}

func (s *Tasks) complete(ctx context.Context, actor models.AccessContext, task *models.Task) (*TaskResult, error) {
	const op = "SetStatus"

	if task.IsDone() {
		return &TaskResult{Task: task}, nil
	}

	if task.IsApproval() {
		return nil, NewValidationError(op, "approval_required", "approval tasks are completed by approving or rejecting them")
	}

	applied, err := s.persistence.Tasks().Complete(ctx, actor.OrgID, task.ID, models.TaskCompletion{
		CompletedBy: actor.UserID,
		CompletedAt: s.now(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete task %s: %w", task.ID, err)
	}

	completed, err := s.load(ctx, op, actor.OrgID, task.ID)
	if err != nil {
		return nil, err
	}

	if !applied {
		// Someone else completed it between our read and the write; that completion
		// already signaled.
		return &TaskResult{Task: completed}, nil
	}

	s.audit.record(ctx, actor, "task", task.ID, AuditTaskCompleted, nil)

	signaled := s.signal(ctx, completed, engine.SignalTaskCompleted, engine.TaskCompleted{
		TaskID:      task.ID,
		CompletedBy: actor.UserID,
	}.Payload())

	return &TaskResult{Task: completed, WorkflowSignaled: signaled}, nil
}

// Approve completes an approval task with the approved outcome.
func (s *Tasks) Approve(ctx context.Context, actor models.AccessContext, taskID, comment string) (*TaskResult, error) {
	return s.decide(ctx, actor, taskID, models.TaskOutcomeApproved, comment)
}

// Reject completes an approval task with the rejected outcome.
func (s *Tasks) Reject(ctx context.Context, actor models.AccessContext, taskID, comment string) (*TaskResult, error) {
	return s.decide(ctx, actor, taskID, models.TaskOutcomeRejected, comment)
}

func (s *Tasks) decide(
	ctx context.Context,
	actor models.AccessContext,
	taskID string,
	outcome models.TaskOutcome,
	comment string,
) (result *TaskResult, err error) {
	op := "Approve"
	action := AuditTaskApproved

	if outcome == models.TaskOutcomeRejected {
		op = "Reject"
		action = AuditTaskRejected
	}

	ctx, span := s.startSpan(ctx, strings.ToLower(op), actor, taskID)
	defer endSpan(span, &err)

	task, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	if !canModify(actor, task) {
		return nil, NewForbiddenError(op, "only an admin or the assignee may decide this task")
	}

	if !task.IsApproval() {
		return nil, NewValidationError(op, "not_approval", "only approval tasks can be approved or rejected")
	}

	if task.IsDone() {
		return nil, newConflict(op, ReasonAlreadyCompleted, task)
	}

	comment = strings.TrimSpace(comment)

	required, err := s.requiresComment(ctx, task)
	if err != nil {
		return nil, err
	}

	if required && comment == "" {
		return nil, NewValidationError(op, "comment_required", "a decision comment is required")
	}

	applied, err := s.persistence.Tasks().Complete(ctx, actor.OrgID, taskID, models.TaskCompletion{
		CompletedBy:    actor.UserID,
		CompletedAt:    s.now(),
		Outcome:        &outcome,
		OutcomeComment: optional(comment),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete task %s: %w", taskID, err)
	}

	if !applied {
		return nil, s.reread(ctx, op, actor.OrgID, taskID, func(current *models.Task) error {
			return newConflict(op, ReasonAlreadyCompleted, current)
		})
	}

	decided, err := s.load(ctx, op, actor.OrgID, taskID)
	if err != nil {
		return nil, err
	}

	s.audit.record(ctx, actor, "task", taskID, action, map[string]any{
		"outcome":    string(outcome),
		"hasComment": comment != "",
	})

	completedSignal := s.signal(ctx, decided, engine.SignalTaskCompleted, engine.TaskCompleted{
		TaskID:      taskID,
		CompletedBy: actor.UserID,
	}.Payload())

	approvalSignal := s.signal(ctx, decided, engine.SignalApprovalSubmitted, engine.ApprovalSubmitted{
		Outcome:    outcome,
		Comment:    comment,
		ApprovedBy: actor.UserID,
	}.Payload())

	return &TaskResult{Task: decided, WorkflowSignaled: completedSignal || approvalSignal}, nil
}

// requiresComment consults the settings of the definition the task came from. Tasks
// whose definition is gone fall back to not requiring one.
func (s *Tasks) requiresComment(ctx context.Context, task *models.Task) (bool, error) {
	if task.WorkflowDefinitionID == nil || *task.WorkflowDefinitionID == "" {
		return false, nil
	}

	definition, err := s.persistence.Definitions().GetByID(ctx, task.OrgID, *task.WorkflowDefinitionID)
	if err != nil {
		if persistence.IsDefinitionNotFound(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to load definition %s: %w", *task.WorkflowDefinitionID, err)
	}

	return definition.Settings.RequireDecisionComment, nil
}

// signal delivers one signal to the execution linked to task. Failures are logged and
// reported as false.
func (s *Tasks) signal(ctx context.Context, task *models.Task, name string, payload map[string]any) bool {
	executionID, linked := task.LinkedExecutionID()
	if !linked || s.engine == nil {
		return false
	}

	err := s.engine.Signal(ctx, task.OrgID, executionID, name, payload)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to signal execution",
			"task_id", task.ID,
			"execution_id", executionID,
			"signal", name,
			"error", err)

		return false
	}

	return true
}
