package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

const executionsCollection = "executions"

// ExecutionRepository stores execution records as JSON files.
type ExecutionRepository struct {
	store *store
}

func executionError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "execution", ID: id, Err: err}
}

// Save inserts or replaces an execution.
func (r *ExecutionRepository) Save(_ context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	path, err := r.store.path(execution.OrgID, executionsCollection, execution.ID)
	if err != nil {
		return executionError("Save", execution.ID, err)
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(path, execution); err != nil {
		return executionError("Save", execution.ID, err)
	}

	return nil
}

// GetByID loads an execution of the organization.
func (r *ExecutionRepository) GetByID(_ context.Context, orgID, id string) (*models.Execution, error) {
	path, err := r.store.path(orgID, executionsCollection, id)
	if err != nil {
		return nil, executionError("GetByID", id, err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	execution, err := readJSON[models.Execution](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrExecutionNotFound
		}

		return nil, executionError("GetByID", id, err)
	}

	return execution, nil
}

// UpdateStatus records the engine outcome of an execution start.
func (r *ExecutionRepository) UpdateStatus(
	_ context.Context,
	orgID, id string,
	status models.ExecutionStatus,
	runID, errMessage string,
) error {
	path, err := r.store.path(orgID, executionsCollection, id)
	if err != nil {
		return executionError("UpdateStatus", id, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	execution, err := readJSON[models.Execution](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrExecutionNotFound
		}

		return executionError("UpdateStatus", id, err)
	}

	execution.Status = status
	execution.RunID = runID
	execution.Error = errMessage
	execution.UpdatedAt = time.Now().UTC()

	if err := writeJSON(path, execution); err != nil {
		return executionError("UpdateStatus", id, err)
	}

	return nil
}
