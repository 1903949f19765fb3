package models

// AccessContext is the per-request view of who the actor is inside an organization.
// It is computed, never persisted.
type AccessContext struct {
	UserID         string              `json:"userId"`
	OrgID          string              `json:"orgId"`
	OrgRole        string              `json:"orgRole"`
	Roles          map[string]struct{} `json:"-"`
	HasAdminAccess bool                `json:"hasAdminAccess"`
}

// HasRole reports whether the normalized role is in the actor's role set.
func (a AccessContext) HasRole(role string) bool {
	_, ok := a.Roles[role]

	return ok
}

// Member is a user's membership in an organization.
type Member struct {
	UserID string   `json:"userId"`
	OrgID  string   `json:"orgId"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Roles  []string `json:"roles,omitempty"`
}

// FieldPermissionOverride replaces the default access a role has to one contact field.
type FieldPermissionOverride struct {
	OrgID    string `json:"orgId"`
	Role     string `json:"role"     validate:"required"`
	Field    string `json:"field"    validate:"required"`
	Readable bool   `json:"readable"`
	Writable bool   `json:"writable"`
}

// RecipientType discriminates RecipientSpec.
type RecipientType string

const (
	RecipientOrganization RecipientType = "organization"
	RecipientUser         RecipientType = "user"
	RecipientRole         RecipientType = "role"
	RecipientGroups       RecipientType = "groups"
)

// RecipientSpec is an abstract notification target. Value holds the user id/email
// or the role; Groups holds the group names.
type RecipientSpec struct {
	Type   RecipientType `json:"type"             validate:"required,oneof=organization user role groups"`
	Value  string        `json:"value,omitempty"`
	Groups []string      `json:"groups,omitempty"`
}
