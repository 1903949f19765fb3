package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

const tasksCollection = "tasks"

// TaskRepository stores tasks as JSON files. Its conditional writes hold the store
// lock across read, check and write.
type TaskRepository struct {
	store *store
}

// Save inserts or replaces a task.
func (r *TaskRepository) Save(_ context.Context, task *models.Task) error {
	if task.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate task ID: %w", err)
		}

		task.ID = id.String()
	}

	path, err := r.store.path(task.OrgID, tasksCollection, task.ID)
	if err != nil {
		return persistence.NewTaskError("Save", task.ID, err)
	}

	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}

	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(path, task); err != nil {
		return persistence.NewTaskError("Save", task.ID, err)
	}

	return nil
}

// GetByID loads a task of the organization.
func (r *TaskRepository) GetByID(_ context.Context, orgID, id string) (*models.Task, error) {
	path, err := r.store.path(orgID, tasksCollection, id)
	if err != nil {
		return nil, persistence.NewTaskError("GetByID", id, err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	task, err := readJSON[models.Task](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrTaskNotFound
		}

		return nil, persistence.NewTaskError("GetByID", id, err)
	}

	return task, nil
}

// swap applies mutate to the stored task when it returns true. A missing task is a
// no-op, not an error.
func (r *TaskRepository) swap(op, orgID, id string, mutate func(*models.Task) bool) (bool, error) {
	path, err := r.store.path(orgID, tasksCollection, id)
	if err != nil {
		return false, persistence.NewTaskError(op, id, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	task, err := readJSON[models.Task](path)
	if err != nil {
		if isNotExist(err) {
			return false, nil
		}

		return false, persistence.NewTaskError(op, id, err)
	}

	if !mutate(task) {
		return false, nil
	}

	if err := writeJSON(path, task); err != nil {
		return false, persistence.NewTaskError(op, id, err)
	}

	return true, nil
}

// Claim sets the assignee when the task has none.
func (r *TaskRepository) Claim(_ context.Context, orgID, id, userID string, at time.Time) (bool, error) {
	return r.swap("Claim", orgID, id, func(task *models.Task) bool {
		if task.AssignedTo != nil {
			return false
		}

		claimedAt := at
		task.AssignedTo = &userID
		task.ClaimedAt = &claimedAt
		task.UpdatedAt = at

		return true
	})
}

// Complete moves the task to done unless it already is.
func (r *TaskRepository) Complete(_ context.Context, orgID, id string, completion models.TaskCompletion) (bool, error) {
	return r.swap("Complete", orgID, id, func(task *models.Task) bool {
		if task.IsDone() {
			return false
		}

		completion.Apply(task)

		return true
	})
}

// UpdateFields writes fields while the stored task still matches expected.
func (r *TaskRepository) UpdateFields(
	_ context.Context,
	orgID, id string,
	expected persistence.TaskGuard,
	fields persistence.TaskFields,
) (bool, error) {
	return r.swap("UpdateFields", orgID, id, func(task *models.Task) bool {
		if !expected.Matches(task) {
			return false
		}

		task.Title = fields.Title
		task.Description = fields.Description
		task.AssignedTo = fields.AssignedTo
		task.AssignedRole = fields.AssignedRole
		task.Status = fields.Status
		task.Priority = fields.Priority
		task.DueAt = fields.DueAt
		task.UpdatedAt = fields.UpdatedAt

		return true
	})
}
