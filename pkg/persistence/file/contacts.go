package file

import (
	"context"
	"time"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

const contactsCollection = "contacts"

// ContactRepository stores contacts as JSON files.
type ContactRepository struct {
	store *store
}

func contactError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "contact", ID: id, Err: err}
}

// GetByID loads a contact of the organization.
func (r *ContactRepository) GetByID(_ context.Context, orgID, id string) (*models.Contact, error) {
	path, err := r.store.path(orgID, contactsCollection, id)
	if err != nil {
		return nil, contactError("GetByID", id, err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	contact, err := readJSON[models.Contact](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrContactNotFound
		}

		return nil, contactError("GetByID", id, err)
	}

	return contact, nil
}

// Save inserts or replaces a contact.
func (r *ContactRepository) Save(_ context.Context, contact *models.Contact) error {
	path, err := r.store.path(contact.OrgID, contactsCollection, contact.ID)
	if err != nil {
		return contactError("Save", contact.ID, err)
	}

	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}

	contact.UpdatedAt = now

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(path, contact); err != nil {
		return contactError("Save", contact.ID, err)
	}

	return nil
}
