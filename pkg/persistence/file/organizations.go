package file

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

const (
	membersCollection  = "members"
	settingsCollection = "settings"

	fieldOverridesDocument = "field_overrides"
	allowedSendersDocument = "allowed_senders"
)

// OrganizationRepository stores members and organization settings as JSON files.
type OrganizationRepository struct {
	store *store
}

func memberError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "member", ID: id, Err: err}
}

// Members lists the organization's members ordered by user id.
func (r *OrganizationRepository) Members(_ context.Context, orgID string) ([]*models.Member, error) {
	dir, err := r.store.dir(orgID, membersCollection)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	return readAll[models.Member](dir)
}

// Member loads one membership.
func (r *OrganizationRepository) Member(_ context.Context, orgID, userID string) (*models.Member, error) {
	path, err := r.store.path(orgID, membersCollection, userID)
	if err != nil {
		return nil, memberError("Member", userID, err)
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	member, err := readJSON[models.Member](path)
	if err != nil {
		if isNotExist(err) {
			err = persistence.ErrMemberNotFound
		}

		return nil, memberError("Member", userID, err)
	}

	return member, nil
}

// SaveMember inserts or replaces a membership.
func (r *OrganizationRepository) SaveMember(_ context.Context, member *models.Member) error {
	path, err := r.store.path(member.OrgID, membersCollection, member.UserID)
	if err != nil {
		return memberError("SaveMember", member.UserID, err)
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(path, member); err != nil {
		return memberError("SaveMember", member.UserID, err)
	}

	return nil
}

func (r *OrganizationRepository) settingsPath(orgID, document string) (string, error) {
	dir, err := r.store.dir(orgID, settingsCollection)
	if err != nil {
		return "", err
	}

	return filepath.Join(dir, document+".json"), nil
}

// FieldOverrides returns the organization's field permission overrides.
func (r *OrganizationRepository) FieldOverrides(_ context.Context, orgID string) ([]models.FieldPermissionOverride, error) {
	path, err := r.settingsPath(orgID, fieldOverridesDocument)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	overrides, err := readJSON[[]models.FieldPermissionOverride](path)
	if err != nil {
		if isNotExist(err) {
			return []models.FieldPermissionOverride{}, nil
		}

		return nil, err
	}

	return *overrides, nil
}

// SaveFieldOverride inserts or replaces the override for (role, field).
func (r *OrganizationRepository) SaveFieldOverride(_ context.Context, override models.FieldPermissionOverride) error {
	path, err := r.settingsPath(override.OrgID, fieldOverridesDocument)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	var overrides []models.FieldPermissionOverride

	stored, err := readJSON[[]models.FieldPermissionOverride](path)
	switch {
	case err == nil:
		overrides = *stored
	case !isNotExist(err):
		return err
	}

	overrides = slices.DeleteFunc(overrides, func(o models.FieldPermissionOverride) bool {
		return o.Role == override.Role && o.Field == override.Field
	})

	return writeJSON(path, append(overrides, override))
}

// AllowedSenders returns the sender addresses the organization may send from.
func (r *OrganizationRepository) AllowedSenders(_ context.Context, orgID string) ([]string, error) {
	path, err := r.settingsPath(orgID, allowedSendersDocument)
	if err != nil {
		return nil, err
	}

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	senders, err := readJSON[[]string](path)
	if err != nil {
		if isNotExist(err) {
			return []string{}, nil
		}

		return nil, err
	}

	return *senders, nil
}

// SetAllowedSenders replaces the organization's sender allowlist.
func (r *OrganizationRepository) SetAllowedSenders(_ context.Context, orgID string, senders []string) error {
	path, err := r.settingsPath(orgID, allowedSendersDocument)
	if err != nil {
		return err
	}

	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return writeJSON(path, senders)
}
