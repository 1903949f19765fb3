package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// TaskRepository handles task rows. Claim, Complete and UpdateFields are single
// conditional UPDATEs; a zero row count means the precondition no longer held or the
// task does not exist.
type TaskRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewTaskRepository creates a new task repository.
func NewTaskRepository(db *sql.DB, logger *slog.Logger) *TaskRepository {
	return &TaskRepository{db: db, logger: logger}
}

// Save inserts or replaces a task.
func (r *TaskRepository) Save(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate task ID: %w", err)
		}

		task.ID = id.String()
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}

	query := `
		INSERT INTO tasks (
			org_id, id, workflow_execution_id, workflow_definition_id, contact_id,
			title, description, assigned_to, assigned_role, task_type, status, priority,
			due_at, outcome, outcome_comment, completed_by, completed_at, claimed_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (org_id, id) DO UPDATE SET
			workflow_execution_id = EXCLUDED.workflow_execution_id,
			workflow_definition_id = EXCLUDED.workflow_definition_id,
			contact_id = EXCLUDED.contact_id,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			assigned_to = EXCLUDED.assigned_to,
			assigned_role = EXCLUDED.assigned_role,
			task_type = EXCLUDED.task_type,
			status = EXCLUDED.status,
			priority = EXCLUDED.priority,
			due_at = EXCLUDED.due_at,
			outcome = EXCLUDED.outcome,
			outcome_comment = EXCLUDED.outcome_comment,
			completed_by = EXCLUDED.completed_by,
			completed_at = EXCLUDED.completed_at,
			claimed_at = EXCLUDED.claimed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		task.OrgID,
		task.ID,
		task.WorkflowExecutionID,
		task.WorkflowDefinitionID,
		task.ContactID,
		task.Title,
		task.Description,
		task.AssignedTo,
		task.AssignedRole,
		task.TaskType,
		task.Status,
		task.Priority,
		task.DueAt,
		task.Outcome,
		task.OutcomeComment,
		task.CompletedBy,
		task.CompletedAt,
		task.ClaimedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return persistence.NewTaskError("Save", task.ID, err)
	}

	return nil
}

// GetByID loads a task of the organization.
func (r *TaskRepository) GetByID(ctx context.Context, orgID, id string) (*models.Task, error) {
	query := `
		SELECT
			org_id
		  , id
		  , workflow_execution_id
		  , workflow_definition_id
		  , contact_id
		  , title
		  , description
		  , assigned_to
		  , assigned_role
		  , task_type
		  , status
		  , priority
		  , due_at
		  , outcome
		  , outcome_comment
		  , completed_by
		  , completed_at
		  , claimed_at
		  , created_at
		  , updated_at
		FROM tasks
		WHERE org_id = $1 AND id = $2
	`

	var task models.Task

	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&task.OrgID,
		&task.ID,
		&task.WorkflowExecutionID,
		&task.WorkflowDefinitionID,
		&task.ContactID,
		&task.Title,
		&task.Description,
		&task.AssignedTo,
		&task.AssignedRole,
		&task.TaskType,
		&task.Status,
		&task.Priority,
		&task.DueAt,
		&task.Outcome,
		&task.OutcomeComment,
		&task.CompletedBy,
		&task.CompletedAt,
		&task.ClaimedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrTaskNotFound
		}

		return nil, persistence.NewTaskError("GetByID", id, err)
	}

	return &task, nil
}

// Claim sets assigned_to where it is still NULL.
func (r *TaskRepository) Claim(ctx context.Context, orgID, id, userID string, at time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET assigned_to = $3, claimed_at = $4, updated_at = $4
		WHERE org_id = $1 AND id = $2 AND assigned_to IS NULL
	`

	result, err := r.db.ExecContext(ctx, query, orgID, id, userID, at)
	if err != nil {
		return false, persistence.NewTaskError("Claim", id, err)
	}

	return applied(result)
}

// Complete moves the task to done where it is not done yet.
func (r *TaskRepository) Complete(ctx context.Context, orgID, id string, completion models.TaskCompletion) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'done', completed_by = $3, completed_at = $4, outcome = $5, outcome_comment = $6, updated_at = $4
		WHERE org_id = $1 AND id = $2 AND status <> 'done'
	`

	result, err := r.db.ExecContext(ctx, query,
		orgID,
		id,
		completion.CompletedBy,
		completion.CompletedAt,
		completion.Outcome,
		completion.OutcomeComment,
	)
	if err != nil {
		return false, persistence.NewTaskError("Complete", id, err)
	}

	return applied(result)
}

// UpdateFields writes the mutable fields where status, assignee and role still
// match expected.
func (r *TaskRepository) UpdateFields(
	ctx context.Context,
	orgID, id string,
	expected persistence.TaskGuard,
	fields persistence.TaskFields,
) (bool, error) {
	query := `
		UPDATE tasks
		SET title = $6, description = $7, assigned_to = $8, assigned_role = $9,
			status = $10, priority = $11, due_at = $12, updated_at = $13
		WHERE org_id = $1 AND id = $2 AND status = $3
			AND assigned_to IS NOT DISTINCT FROM $4
			AND assigned_role IS NOT DISTINCT FROM $5
	`

	result, err := r.db.ExecContext(ctx, query,
		orgID,
		id,
		expected.Status,
		expected.AssignedTo,
		expected.AssignedRole,
		fields.Title,
		fields.Description,
		fields.AssignedTo,
		fields.AssignedRole,
		fields.Status,
		fields.Priority,
		fields.DueAt,
		fields.UpdatedAt,
	)
	if err != nil {
		return false, persistence.NewTaskError("UpdateFields", id, err)
	}

	return applied(result)
}
