// Package fields resolves per-role read/write access to contact fields.
package fields

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/models"
)

// Contact field names. The set is closed; keys outside it are never redacted.
const (
	FirstName = "firstName"
	LastName  = "lastName"
	Email     = "email"
	Phone     = "phone"
	Company   = "company"
	JobTitle  = "jobTitle"
	Status    = "status"
	Address   = "address"
	Notes     = "notes"
	Tags      = "tags"
	OwnerID   = "ownerId"
	Source    = "source"
)

// All lists every contact field in display order.
var All = []string{
	FirstName, LastName, Email, Phone, Company, JobTitle,
	Status, Address, Notes, Tags, OwnerID, Source,
}

// IsField reports whether name belongs to the closed field set.
func IsField(name string) bool {
	return slices.Contains(All, name)
}

type fieldGrant struct {
	read  []string
	write []string
}

var (
	identity = []string{FirstName, LastName, Company, JobTitle}
	basic    = []string{FirstName, LastName, Email, Phone, Company, JobTitle, Status, Address, Tags}
)

func without(fields []string, drop ...string) []string {
	return slices.DeleteFunc(slices.Clone(fields), func(f string) bool {
		return slices.Contains(drop, f)
	})
}

// defaults is keyed by base role. Roles missing here get nothing unless overridden.
var defaults = map[access.BaseRole]fieldGrant{
	access.RoleOwner:  {read: All, write: All},
	access.RoleAdmin:  {read: All, write: All},
	access.RoleMember: {read: All, write: without(All, OwnerID)},
	access.RoleUser:   {read: without(All, Notes), write: without(basic, Status)},
	access.RoleGuest:  {read: identity},
}

// Permissions is the resolved field access of a role set.
type Permissions struct {
	Readable map[string]bool
	Writable map[string]bool
}

// CanRead reports whether field is readable.
func (p Permissions) CanRead(field string) bool {
	return p.Readable[field]
}

// CanWrite reports whether field is writable.
func (p Permissions) CanWrite(field string) bool {
	return p.Writable[field]
}

// ReadableFields returns the readable fields in display order.
func (p Permissions) ReadableFields() []string {
	return slices.DeleteFunc(slices.Clone(All), func(f string) bool { return !p.Readable[f] })
}

// WritableFields returns the writable fields in display order.
func (p Permissions) WritableFields() []string {
	return slices.DeleteFunc(slices.Clone(All), func(f string) bool { return !p.Writable[f] })
}

// Resolve merges organization overrides over the default table for every role and
// unions the result across roles.
func Resolve(roles []string, overrides []models.FieldPermissionOverride) Permissions {
	perms := Permissions{
		Readable: make(map[string]bool),
		Writable: make(map[string]bool),
	}

	for _, role := range access.NormalizeRoles(roles...) {
		read := make(map[string]bool)
		write := make(map[string]bool)

		if base, ok := defaults[access.BaseRole(role)]; ok {
			for _, f := range base.read {
				read[f] = true
			}

			for _, f := range base.write {
				write[f] = true
			}
		}

		for _, override := range overrides {
			overrideRole, ok := access.NormalizeRole(override.Role)
			if !ok || overrideRole != role || !IsField(override.Field) {
				continue
			}

			read[override.Field] = override.Readable
			write[override.Field] = override.Writable
		}

		for f, ok := range read {
			if ok {
				perms.Readable[f] = true
			}
		}

		for f, ok := range write {
			if ok {
				perms.Writable[f] = true
			}
		}
	}

	return perms
}

// RedactForRead copies record and nulls every contact field that is not readable.
// Keys are never removed.
func RedactForRead(record map[string]any, perms Permissions) map[string]any {
	redacted := maps.Clone(record)
	if redacted == nil {
		return map[string]any{}
	}

	for key := range redacted {
		if IsField(key) && !perms.CanRead(key) {
			redacted[key] = nil
		}
	}

	return redacted
}

// FindForbiddenWriteFields lists, in display order, the contact fields present in
// payload that perms does not allow writing.
func FindForbiddenWriteFields(payload map[string]any, perms Permissions) []string {
	forbidden := make([]string, 0)

	for _, field := range All {
		if _, present := payload[field]; present && !perms.CanWrite(field) {
			forbidden = append(forbidden, field)
		}
	}

	return forbidden
}

// OverrideSource loads an organization's field overrides.
type OverrideSource interface {
	FieldOverrides(ctx context.Context, orgID string) ([]models.FieldPermissionOverride, error)
}

// Resolver resolves permissions for access contexts.
type Resolver struct {
	overrides OverrideSource
}

// NewResolver creates a resolver backed by overrides.
func NewResolver(overrides OverrideSource) *Resolver {
	return &Resolver{overrides: overrides}
}

// ForContext resolves the permissions of the actor. Admin access counts as the admin
// role even when the declared role is something else.
func (r *Resolver) ForContext(ctx context.Context, actor models.AccessContext) (Permissions, error) {
	overrides, err := r.overrides.FieldOverrides(ctx, actor.OrgID)
	if err != nil {
		return Permissions{}, fmt.Errorf("failed to load field overrides for %s: %w", actor.OrgID, err)
	}

	roles := access.RoleList(actor)
	if actor.HasAdminAccess {
		roles = append(roles, string(access.RoleAdmin))
	}

	return Resolve(roles, overrides), nil
}
