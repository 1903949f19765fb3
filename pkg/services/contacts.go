package services

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/dukex/caseflow/pkg/fields"
	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

// Contacts reads and writes contacts through the field visibility rules of the actor.
type Contacts struct {
	persistence persistence.Persistence
	fields      *fields.Resolver
	audit       *AuditTrail
	logger      *slog.Logger
}

func NewContacts(p persistence.Persistence, resolver *fields.Resolver, audit *AuditTrail, logger *slog.Logger) *Contacts {
	return &Contacts{
		persistence: p,
		fields:      resolver,
		audit:       audit,
		logger:      logger.With("module", "contacts"),
	}
}

// Get returns the contact record with every unreadable field set to null.
func (s *Contacts) Get(ctx context.Context, actor models.AccessContext, contactID string) (map[string]any, error) {
	contact, err := s.load(ctx, "GetContact", actor.OrgID, contactID)
	if err != nil {
		return nil, err
	}

	perms, err := s.fields.ForContext(ctx, actor)
	if err != nil {
		return nil, err
	}

	return fields.RedactForRead(contact.Record(), perms), nil
}

// Update merges payload into the contact. The write is refused as a whole when any
// field in payload is not writable by the actor.
func (s *Contacts) Update(ctx context.Context, actor models.AccessContext, contactID string, payload map[string]any) (map[string]any, error) {
	const op = "UpdateContact"

	if len(payload) == 0 {
		return nil, NewValidationError(op, "empty_patch", "at least one field is required")
	}

	for _, key := range slices.Sorted(maps.Keys(payload)) {
		if !fields.IsField(key) {
			return nil, NewValidationError(op, "unknown_field", fmt.Sprintf("%q is not a contact field", key))
		}
	}

	perms, err := s.fields.ForContext(ctx, actor)
	if err != nil {
		return nil, err
	}

	if forbidden := fields.FindForbiddenWriteFields(payload, perms); len(forbidden) > 0 {
		return nil, &FieldAccessError{Op: op, Fields: forbidden}
	}

	contact, err := s.load(ctx, op, actor.OrgID, contactID)
	if err != nil {
		return nil, err
	}

	if contact.Fields == nil {
		contact.Fields = make(map[string]any, len(payload))
	}

	maps.Copy(contact.Fields, payload)
	contact.UpdatedAt = time.Now().UTC()

	if err := s.persistence.Contacts().Save(ctx, contact); err != nil {
		return nil, fmt.Errorf("failed to save contact %s: %w", contactID, err)
	}

	s.audit.record(ctx, actor, "contact", contact.ID, AuditContactUpdated, map[string]any{
		"fields": slices.Sorted(maps.Keys(payload)),
	})

	return fields.RedactForRead(contact.Record(), perms), nil
}

func (s *Contacts) load(ctx context.Context, op, orgID, contactID string) (*models.Contact, error) {
	contact, err := s.persistence.Contacts().GetByID(ctx, orgID, contactID)
	if err != nil {
		if persistence.IsContactNotFound(err) {
			return nil, &ServiceError{Op: op, Code: "contact_not_found", Message: "contact " + contactID + " not found", Err: ErrNotFound}
		}

		return nil, fmt.Errorf("failed to load contact %s: %w", contactID, err)
	}

	return contact, nil
}
