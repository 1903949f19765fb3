// Package recipients expands abstract notification targets into user ids.
package recipients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dukex/caseflow/pkg/access"
	"github.com/dukex/caseflow/pkg/models"
)

// ErrInvalidSpec is returned for specs with an unknown type.
var ErrInvalidSpec = errors.New("invalid recipient spec")

// MemberLister lists the members of an organization.
type MemberLister interface {
	Members(ctx context.Context, orgID string) ([]*models.Member, error)
}

// Resolver expands recipient specs against organization membership.
type Resolver struct {
	members MemberLister
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by members.
func NewResolver(members MemberLister, logger *slog.Logger) *Resolver {
	return &Resolver{
		members: members,
		logger:  logger.With("module", "recipients"),
	}
}

// Resolve returns the user ids the spec designates, in membership order and without
// duplicates. A spec that matches nobody yields an empty list and no error.
func (r *Resolver) Resolve(ctx context.Context, orgID string, spec models.RecipientSpec) ([]string, error) {
	match, err := matcher(spec)
	if err != nil {
		return nil, err
	}

	members, err := r.members.Members(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members of %s: %w", orgID, err)
	}

	userIDs := make([]string, 0)

	for _, member := range members {
		if member == nil || !match(member) || slices.Contains(userIDs, member.UserID) {
			continue
		}

		userIDs = append(userIDs, member.UserID)
	}

	if len(userIDs) == 0 {
		r.logger.DebugContext(ctx, "recipient spec matched no members", "org_id", orgID, "type", spec.Type)
	}

	return userIDs, nil
}

func matchNone(*models.Member) bool { return false }

// matcher builds the member predicate of spec. Empty targets match nobody.
func matcher(spec models.RecipientSpec) (func(*models.Member) bool, error) {
	switch spec.Type {
	case models.RecipientOrganization:
		return func(*models.Member) bool { return true }, nil

	case models.RecipientUser:
		value := strings.TrimSpace(spec.Value)
		if value == "" {
			return matchNone, nil
		}

		if strings.Contains(value, "@") {
			return func(m *models.Member) bool { return strings.EqualFold(m.Email, value) }, nil
		}

		return func(m *models.Member) bool { return m.UserID == value }, nil

	case models.RecipientRole:
		return rolesMatcher(spec.Value)

	case models.RecipientGroups:
		return rolesMatcher(spec.Groups...)

	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSpec, spec.Type)
	}
}

func rolesMatcher(targets ...string) (func(*models.Member) bool, error) {
	wanted := access.NormalizeRoles(targets...)
	if len(wanted) == 0 {
		return matchNone, nil
	}

	return func(m *models.Member) bool {
		for _, role := range access.NormalizeRoles(append([]string{m.Role}, m.Roles...)...) {
			if slices.Contains(wanted, role) {
				return true
			}
		}

		return false
	}, nil
}
