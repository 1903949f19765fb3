package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/google/uuid"
)

const definitionsCollection = "definitions"

// DefinitionRepository stores workflow definitions as JSON files.
type DefinitionRepository struct {
	store *store
}

// Save writes definition, bumping its version past the stored one.
func (r *DefinitionRepository) Save(_ context.Context, definition *models.WorkflowDefinition) error {
	if definition.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate definition ID: %w", err)
		}

		definition.ID = id.String()
	}

	path, err := r.store.path(definition.OrgID, definitionsCollection, definition.ID)
	if err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()

	existing, err := readJSON[models.WorkflowDefinition](path)
	switch {
	case err == nil:
		definition.Version = existing.Version + 1
		definition.CreatedAt = existing.CreatedAt
	case isNotExist(err):
		definition.Version = 1
		definition.CreatedAt = now
	default:
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	definition.UpdatedAt = now

	if err := writeJSON(path, definition); err != nil {
		return persistence.NewDefinitionError("Save", definition.ID, err)
	}

	return nil
}

// GetByID loads a definition of the organization.
func (r *DefinitionRepository) GetByID(_ context.Context, orgID, id string) (*models.WorkflowDefinition, error) {
	path, err := r.store.path(orgID, definitionsCollection, id)
	if err != nil {
		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	definition, err := readJSON[models.WorkflowDefinition](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrDefinitionNotFound
		}

		return nil, persistence.NewDefinitionError("GetByID", id, err)
	}

	return definition, nil
}
