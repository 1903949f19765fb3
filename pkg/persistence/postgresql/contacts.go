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
)

// ContactRepository handles contact rows; field values are a JSONB object.
type ContactRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewContactRepository creates a new contact repository.
func NewContactRepository(db *sql.DB, logger *slog.Logger) *ContactRepository {
	return &ContactRepository{db: db, logger: logger}
}

func contactError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "contact", ID: id, Err: err}
}

// GetByID loads a contact of the organization.
func (r *ContactRepository) GetByID(ctx context.Context, orgID, id string) (*models.Contact, error) {
	query := `SELECT org_id, id, fields, created_at, updated_at FROM contacts WHERE org_id = $1 AND id = $2`

	var (
		contact    models.Contact
		fieldsJSON []byte
	)

	err := r.db.QueryRowContext(ctx, query, orgID, id).Scan(
		&contact.OrgID,
		&contact.ID,
		&fieldsJSON,
		&contact.CreatedAt,
		&contact.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrContactNotFound
		}

		return nil, contactError("GetByID", id, err)
	}

	if err := json.Unmarshal(fieldsJSON, &contact.Fields); err != nil {
		return nil, contactError("GetByID", id, fmt.Errorf("failed to unmarshal fields: %w", err))
	}

	return &contact, nil
}

// Save inserts or replaces a contact.
func (r *ContactRepository) Save(ctx context.Context, contact *models.Contact) error {
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	fields := contact.Fields
	if fields == nil {
		fields = map[string]any{}
	}

	fieldsJSON, err := json.Marshal(fields)
	if err != nil {
		return contactError("Save", contact.ID, fmt.Errorf("failed to marshal fields: %w", err))
	}

	query := `
		INSERT INTO contacts (org_id, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, id) DO UPDATE SET
			fields = EXCLUDED.fields,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query, contact.OrgID, contact.ID, fieldsJSON, contact.CreatedAt, contact.UpdatedAt)
	if err != nil {
		return contactError("Save", contact.ID, err)
	}

	return nil
}
