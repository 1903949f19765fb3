package access

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
)

// MembershipLookup loads a user's persisted membership.
type MembershipLookup interface {
	Member(ctx context.Context, orgID, userID string) (*models.Member, error)
}

// Resolver builds access contexts from request identity plus persisted membership.
type Resolver struct {
	members MembershipLookup
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by members.
func NewResolver(members MembershipLookup, logger *slog.Logger) *Resolver {
	return &Resolver{
		members: members,
		logger:  logger.With("module", "access"),
	}
}

// Build computes the access context of userID in orgID. The persisted membership role
// stands in when no role is declared; a user without a membership keeps whatever the
// declared role grants.
func (r *Resolver) Build(ctx context.Context, userID, orgID, declaredRole string, hasAdminAccessHint bool) (models.AccessContext, error) {
	var memberRoles []string

	member, err := r.members.Member(ctx, orgID, userID)

	switch {
	case err == nil && member != nil:
		memberRoles = append([]string{member.Role}, member.Roles...)

		if _, ok := NormalizeRole(declaredRole); !ok {
			declaredRole = member.Role
		}
	case err != nil && !persistence.IsMemberNotFound(err):
		return models.AccessContext{}, fmt.Errorf("failed to load membership of %s in %s: %w", userID, orgID, err)
	default:
		r.logger.DebugContext(ctx, "no persisted membership", "user_id", userID, "org_id", orgID)
	}

	return BuildAccessContext(userID, orgID, declaredRole, hasAdminAccessHint, memberRoles), nil
}
