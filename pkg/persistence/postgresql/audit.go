package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/google/uuid"
)

// AuditRepository appends audit events.
type AuditRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB, logger *slog.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger}
}

// Record appends one event.
func (r *AuditRepository) Record(ctx context.Context, event *models.AuditEvent) error {
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

	metadataJSON, err := json.Marshal(event.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal audit metadata: %w", err)
	}

	query := `
		INSERT INTO audit_events (id, org_id, entity_type, entity_id, action, actor_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.db.ExecContext(ctx, query,
		event.ID,
		event.OrgID,
		event.EntityType,
		event.EntityID,
		event.Action,
		event.ActorID,
		metadataJSON,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record audit event: %w", err)
	}

	return nil
}

// ListByEntity returns the events of one entity in recording order.
func (r *AuditRepository) ListByEntity(ctx context.Context, orgID, entityType, entityID string) ([]*models.AuditEvent, error) {
	query := `
		SELECT id, org_id, entity_type, entity_id, action, actor_id, metadata, created_at
		FROM audit_events
		WHERE org_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY created_at, id
	`

	rows, err := r.db.QueryContext(ctx, query, orgID, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	events := make([]*models.AuditEvent, 0)

	for rows.Next() {
		var (
			event        models.AuditEvent
			metadataJSON []byte
		)

		err := rows.Scan(
			&event.ID,
			&event.OrgID,
			&event.EntityType,
			&event.EntityID,
			&event.Action,
			&event.ActorID,
			&metadataJSON,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &event.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal audit metadata: %w", err)
			}
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}

	return events, nil
}
