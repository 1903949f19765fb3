// Package access normalizes organization roles and builds per-request access contexts.
package access

import (
	"slices"
	"strings"

	"github.com/dukex/caseflow/pkg/models"
)

// providerPrefix is prepended to role keys by the identity provider ("org:admin").
const providerPrefix = "org:"

// BaseRole is the closed set of roles the platform attaches defaults to.
type BaseRole string

const (
	RoleOwner    BaseRole = "owner"
	RoleAdmin    BaseRole = "admin"
	RoleManager  BaseRole = "manager"
	RoleReviewer BaseRole = "reviewer"
	RoleMember   BaseRole = "member"
	RoleUser     BaseRole = "user"
	RoleGuest    BaseRole = "guest"
)

// impliedRoles lists the roles granted on top of a base role. Not transitive.
var impliedRoles = map[BaseRole][]BaseRole{
	RoleOwner:  {RoleManager, RoleReviewer, RoleMember, RoleUser},
	RoleAdmin:  {RoleManager, RoleReviewer, RoleMember, RoleUser},
	RoleMember: {RoleReviewer, RoleUser},
}

// adminRoles grant admin access on their own.
var adminRoles = map[BaseRole]bool{
	RoleOwner: true,
	RoleAdmin: true,
}

// ImpliedRoles returns the roles implied by role, nil when it implies nothing.
func ImpliedRoles(role BaseRole) []BaseRole {
	return slices.Clone(impliedRoles[role])
}

// IsAdminRole reports whether a normalized role grants admin access.
func IsAdminRole(role string) bool {
	return adminRoles[BaseRole(role)]
}

// NormalizeRole lower-cases role, strips the provider prefix and rejects blank input.
func NormalizeRole(role string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(role))
	normalized = strings.TrimPrefix(normalized, providerPrefix)
	normalized = strings.TrimSpace(normalized)

	if normalized == "" {
		return "", false
	}

	return normalized, true
}

// NormalizeRoles normalizes and de-duplicates roles, keeping first-seen order.
func NormalizeRoles(roles ...string) []string {
	out := make([]string, 0, len(roles))

	for _, role := range roles {
		normalized, ok := NormalizeRole(role)
		if !ok || slices.Contains(out, normalized) {
			continue
		}

		out = append(out, normalized)
	}

	return out
}

// BuildAccessContext unions the declared role with persisted membership roles and
// applies the implied-role table. Admins (by hint or by role) get the admin
// implications whatever their declared role is.
func BuildAccessContext(userID, orgID, declaredRole string, hasAdminAccessHint bool, memberRoles []string) models.AccessContext {
	orgRole, _ := NormalizeRole(declaredRole)

	roles := make(map[string]struct{})
	for _, role := range NormalizeRoles(append([]string{declaredRole}, memberRoles...)...) {
		roles[role] = struct{}{}
	}

	isAdmin := hasAdminAccessHint
	for role := range roles {
		if IsAdminRole(role) {
			isAdmin = true
		}
	}

	grant := func(base BaseRole) {
		for _, implied := range impliedRoles[base] {
			roles[string(implied)] = struct{}{}
		}
	}

	if isAdmin {
		grant(RoleAdmin)
	}

	if _, ok := roles[string(RoleMember)]; ok && orgRole == string(RoleMember) {
		grant(RoleMember)
	}

	return models.AccessContext{
		UserID:         userID,
		OrgID:          orgID,
		OrgRole:        orgRole,
		Roles:          roles,
		HasAdminAccess: isAdmin,
	}
}

// CanAccessAssignedRole reports whether the actor may act on work assigned to role.
func CanAccessAssignedRole(ctx models.AccessContext, role string) bool {
	if ctx.HasAdminAccess {
		return true
	}

	normalized, ok := NormalizeRole(role)
	if !ok {
		return false
	}

	return ctx.HasRole(normalized)
}

// RoleList returns the actor's roles sorted, for responses and logs.
func RoleList(ctx models.AccessContext) []string {
	roles := make([]string, 0, len(ctx.Roles))
	for role := range ctx.Roles {
		roles = append(roles, role)
	}

	slices.Sort(roles)

	return roles
}
