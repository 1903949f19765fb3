package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

// ExecutionRepository handles execution rows. The compiled steps snapshot is JSONB.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewExecutionRepository creates a new execution repository.
func NewExecutionRepository(db *sql.DB, logger *slog.Logger) *ExecutionRepository {
	return &ExecutionRepository{db: db, logger: logger}
}

func executionError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "execution", ID: id, Err: err}
}

// Save inserts or replaces an execution.
func (r *ExecutionRepository) Save(ctx context.Context, execution *models.Execution) error {
	if execution.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate execution ID: %w", err)
		}

		execution.ID = id.String()
	}

	now := time.Now().UTC()
	if execution.CreatedAt.IsZero() {
		execution.CreatedAt = now
	}

	execution.UpdatedAt = now

	stepsJSON, err := json.Marshal(execution.Steps)
	if err != nil {
		return executionError("Save", execution.ID, fmt.Errorf("failed to marshal steps: %w", err))
	}

	inputJSON, err := json.Marshal(execution.Input)
	if err != nil {
		return executionError("Save", execution.ID, fmt.Errorf("failed to marshal input: %w", err))
	}

	query := `
		INSERT INTO executions (
			org_id, id, definition_id, definition_version, contact_id, run_id, status,
			steps, input, error, triggered_by, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (org_id, id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			status = EXCLUDED.status,
			steps = EXCLUDED.steps,
			input = EXCLUDED.input,
			error = EXCLUDED.error,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		execution.OrgID,
		execution.ID,
		execution.DefinitionID,
		execution.DefinitionVersion,
		execution.ContactID,
		execution.RunID,
		execution.Status,
		stepsJSON,
		inputJSON,
		execution.Error,
		execution.TriggeredBy,
		execution.CreatedAt,
		execution.UpdatedAt,
	)
	if err != nil {
		return executionError("Save", execution.ID, err)
	}

	return nil
}

// GetByID loads an execution of the organization.
func (r *ExecutionRepository) GetByID(ctx context.Context, orgID, id string) (*models.Execution, error) {
	query := `
		SELECT
			org_id
		  , id
		  , definition_id
		  , definition_version
		  , contact_id
		  , run_id
		  , status
		  , steps
		  , input
		  , error
		  , triggered_by
		  , created_at
		  , updated_at
		FROM executions
		WHERE org_id = $1 AND id = $2
	`

	var (
		execution models.Execution
		stepsJSON []byte
		inputJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&execution.OrgID,
		&execution.ID,
		&execution.DefinitionID,
		&execution.DefinitionVersion,
		&execution.ContactID,
		&execution.RunID,
		&execution.Status,
		&stepsJSON,
		&inputJSON,
		&execution.Error,
		&execution.TriggeredBy,
		&execution.CreatedAt,
		&execution.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrExecutionNotFound
		}

		return nil, executionError("GetByID", id, err)
	}

	if err := json.Unmarshal(stepsJSON, &execution.Steps); err != nil {
		return nil, executionError("GetByID", id, fmt.Errorf("failed to unmarshal steps: %w", err))
	}

	if len(inputJSON) > 0 {
		if err := json.Unmarshal(inputJSON, &execution.Input); err != nil {
			return nil, executionError("GetByID", id, fmt.Errorf("failed to unmarshal input: %w", err))
		}
	}

	return &execution, nil
}

// UpdateStatus records the engine outcome of an execution start.
func (r *ExecutionRepository) UpdateStatus(
	ctx context.Context,
	orgID, id string,
	status models.ExecutionStatus,
	runID, errMessage string,
) error {
	query := `
		UPDATE executions
		SET status = $3, run_id = $4, error = $5, updated_at = $6
		WHERE org_id = $1 AND id = $2
	`

	result, err := r.db.ExecContext(ctx, query, orgID, id, status, runID, errMessage, time.Now().UTC())
	if err != nil {
		return executionError("UpdateStatus", id, err)
	}

	ok, err := applied(result)
	if err != nil {
		return executionError("UpdateStatus", id, err)
	}

	if !ok {
		return executionError("UpdateStatus", id, persistence.ErrExecutionNotFound)
	}

	return nil
}
