package file

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

const auditCollection = "audit"

// AuditRepository keeps one append-only JSON list per audited entity.
type AuditRepository struct {
	store *store
}

func (r *AuditRepository) entityPath(orgID, entityType, entityID string) (string, error) {
	if err := validateID("entity type", entityType); err != nil {
		return "", err
	}

	return r.store.path(orgID, auditCollection, entityType+"_"+entityID)
}

// Record appends event to its entity's log.
func (r *AuditRepository) Record(_ context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate audit event ID: %w", err)
		}

		event.ID = id.String()
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	path, err := r.entityPath(event.OrgID, event.EntityType, event.EntityID)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var events []*models.AuditEvent

	stored, err := readJSON[[]*models.AuditEvent](path)
	switch {
	case err == nil:
		events = *stored
	case !isNotExist(err):
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return writeJSON(path, append(events, event))
}

// ListByEntity returns the events of one entity in recording order.
func (r *AuditRepository) ListByEntity(_ context.Context, orgID, entityType, entityID string) ([]*models.AuditEvent, error) {
	path, err := r.entityPath(orgID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	events, err := readJSON[[]*models.AuditEvent](path)
	if err != nil {
		if isNotExist(err) {
			return []*models.AuditEvent{}, nil
		}

		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	return *events, nil
}
