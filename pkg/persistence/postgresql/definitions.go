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

// DefinitionRepository stores definitions as JSONB documents. Version, created_at and
// updated_at live in their own columns and win over the document copy.
type DefinitionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDefinitionRepository creates a new definition repository.
func NewDefinitionRepository(db *sql.DB, logger *slog.Logger) *DefinitionRepository {
	return &DefinitionRepository{db: db, logger: logger}
}

// Save upserts the definition and increments its version in the same statement.
func (r *DefinitionRepository) Save(ctx context.Context, definition *models.WorkflowDefinition) error {
	if definition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate definition ID: %w", err)
		}

		definition.ID = id.String()
	}

	document, err := json.Marshal(definition)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, fmt.Errorf("failed to marshal definition: %w", err))
	}

	query := `
		INSERT INTO workflow_definitions (org_id, id, name, version, document, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5, $5)
		ON CONFLICT (org_id, id) DO UPDATE SET
			name = EXCLUDED.name,
			version = workflow_definitions.version + 1,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
		RETURNING version, created_at, updated_at
	`

	err = r.db.QueryRowContext(ctx, query,
		definition.OrgID,
		definition.ID,
		definition.Name,
		document,
		time.Now().UTC(),
	).Scan(&definition.Version, &definition.CreatedAt, &definition.UpdatedAt)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

// GetByID loads a definition of the organization.
func (r *DefinitionRepository) GetByID(ctx context.Context, orgID, id string) (*models.WorkflowDefinition, error) {
	query := `
		SELECT
			document
		  , version
		  , created_at
		  , updated_at
		FROM workflow_definitions
		WHERE org_id = $1 AND id = $2
	`

	var (
		document   []byte
		definition models.WorkflowDefinition
		version    int
		createdAt  time.Time
		updatedAt  time.Time
	)

	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(&document, &version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrDefinitionNotFound
		}

		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	if err := json.Unmarshal(document, &definition); err != nil {
		return nil, persistence.NewDefinitionError("GetByID", id, fmt.Errorf("failed to unmarshal definition: %w", err))
	}

	definition.OrgID = orgID
	definition.ID = id
	definition.Version = version
	definition.CreatedAt = createdAt
	definition.UpdatedAt = updatedAt

	return &definition, nil
}
