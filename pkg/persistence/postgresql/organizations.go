package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/caseflow/pkg/models"
	"github.com/dukex/caseflow/pkg/persistence"
	"github.com/lib/pq"
)

// OrganizationRepository handles membership and organization settings rows.
type OrganizationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewOrganizationRepository creates a new organization repository.
func NewOrganizationRepository(db *sql.DB, logger *slog.Logger) *OrganizationRepository {
	return &OrganizationRepository{db: db, logger: logger}
}

func memberError(op, id string, err error) error {
	return &persistence.EntityError{Op: op, Entity: "member", ID: id, Err: err}
}

const memberColumns = `
	org_id
  , user_id
  , email
  , role
  , roles
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*models.Member, error) {
	var (
		member models.Member
		roles  pq.StringArray
	)

	if err := row.Scan(&member.OrgID, &member.UserID, &member.Email, &member.Role, &roles); err != nil {
		return nil, err
	}

	member.Roles = roles

	return &member, nil
}

// Members lists the organization's members ordered by user id.
func (r *OrganizationRepository) Members(ctx context.Context, orgID string) ([]*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM organization_members WHERE org_id = $1 ORDER BY user_id`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	members := make([]*models.Member, 0)

	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}

		members = append(members, member)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating members: %w", err)
	}

	return members, nil
}

// Member loads one membership.
func (r *OrganizationRepository) Member(ctx context.Context, orgID, userID string) (*models.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM organization_members WHERE org_id = $1 AND user_id = $2`

	member, err := scanMember(r.db.QueryRowContext(ctx, query, orgID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = persistence.ErrMemberNotFound
		}

		return nil, memberError("Member", userID, err)
	}

	return member, nil
}

// SaveMember inserts or replaces a membership.
func (r *OrganizationRepository) SaveMember(ctx context.Context, member *models.Member) error {
	query := `
		INSERT INTO organization_members (org_id, user_id, email, role, roles)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, user_id) DO UPDATE SET
			email = EXCLUDED.email,
			role = EXCLUDED.role,
			roles = EXCLUDED.roles
	`

	roles := member.Roles
	if roles == nil {
		roles = []string{}
	}

	_, err := r.db.ExecContext(ctx, query, member.OrgID, member.UserID, member.Email, member.Role, pq.Array(roles))
	if err != nil {
		return memberError("SaveMember", member.UserID, err)
	}

	return nil
}

// FieldOverrides returns the organization's field permission overrides.
func (r *OrganizationRepository) FieldOverrides(ctx context.Context, orgID string) ([]models.FieldPermissionOverride, error) {
	query := `
		SELECT org_id, role, field, readable, writable
		FROM field_permission_overrides
		WHERE org_id = $1
		ORDER BY role, field
	`

	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query field overrides: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	overrides := make([]models.FieldPermissionOverride, 0)

	for rows.Next() {
		var override models.FieldPermissionOverride

		err := rows.Scan(&override.OrgID, &override.Role, &override.Field, &override.Readable, &override.Writable)
		if err != nil {
			return nil, fmt.Errorf("failed to scan field override: %w", err)
		}

		overrides = append(overrides, override)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating field overrides: %w", err)
	}

	return overrides, nil
}

// SaveFieldOverride inserts or replaces the override for (role, field).
func (r *OrganizationRepository) SaveFieldOverride(ctx context.Context, override models.FieldPermissionOverride) error {
	query := `
		INSERT INTO field_permission_overrides (org_id, role, field, readable, writable)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (org_id, role, field) DO UPDATE SET
			readable = EXCLUDED.readable,
			writable = EXCLUDED.writable
	`

	_, err := r.db.ExecContext(ctx, query, override.OrgID, override.Role, override.Field, override.Readable, override.Writable)
	if err != nil {
		return fmt.Errorf("failed to save field override: %w", err)
	}

	return nil
}

// AllowedSenders returns the sender addresses the organization may send from.
func (r *OrganizationRepository) AllowedSenders(ctx context.Context, orgID string) ([]string, error) {
	var senders pq.StringArray

	query := `SELECT COALESCE(array_agg(address ORDER BY address), '{}') FROM organization_senders WHERE org_id = $1`

	if err := r.db.QueryRowContext(ctx, query, orgID).Scan(&senders); err != nil {
		return nil, fmt.Errorf("failed to query allowed senders: %w", err)
	}

	return senders, nil
}

// SetAllowedSenders replaces the organization's sender allowlist.
func (r *OrganizationRepository) SetAllowedSenders(ctx context.Context, orgID string, senders []string) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM organization_senders WHERE org_id = $1`, orgID); err != nil {
		return fmt.Errorf("failed to clear allowed senders: %w", err)
	}

	query := `
		INSERT INTO organization_senders (org_id, address)
		SELECT $1, UNNEST($2::text[])
		ON CONFLICT DO NOTHING
	`
	if _, err = tx.ExecContext(ctx, query, orgID, pq.Array(senders)); err != nil {
		return fmt.Errorf("failed to insert allowed senders: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
