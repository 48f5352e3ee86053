package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
)

// Repository reads the tenant's member directory. It is constructed from a
// tenant-scoped helper, so there is no way to build one that queries across
// tenants: the scope is part of the type, not a per-call argument.
type Repository struct {
	scope *tenancy.Scoped
}

// NewRepository constructs a repository bound to one tenant.
func NewRepository(scope *tenancy.Scoped) *Repository {
	return &Repository{scope: scope}
}

// ListMembers returns the tenant's members with their resolved role.
func (r *Repository) ListMembers(ctx context.Context) ([]Member, error) {
	rows, err := r.scope.Query(ctx,
		`SELECT p.id, p.email, p.name, p.is_active, ra.role, COALESCE(ra.department_ids, '{}'), ra.created_at
		 FROM role_assignments ra
		 JOIN principals p ON p.id = ra.principal_id
		 WHERE ra.tenant_id = $1
		 ORDER BY ra.created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		var m Member
		var role string
		if err := rows.Scan(&m.PrincipalID, &m.Email, &m.Name, &m.IsActive, &role, &m.DepartmentIDs, &m.JoinedAt); err != nil {
			return nil, err
		}
		m.Role = authz.ParseRole(role)
		members = append(members, m)
	}
	return members, rows.Err()
}

// MemberByID returns one member. The row is fetched by principal id and the
// tenant predicate rides along, so a principal from another tenant resolves
// to ErrNotFound without revealing that it exists.
func (r *Repository) MemberByID(ctx context.Context, principalID uuid.UUID) (Member, error) {
	var m Member
	var role string
	err := r.scope.QueryRow(ctx,
		`SELECT p.id, p.email, p.name, p.is_active, ra.role, COALESCE(ra.department_ids, '{}'), ra.created_at
		 FROM role_assignments ra
		 JOIN principals p ON p.id = ra.principal_id
		 WHERE ra.tenant_id = $1 AND ra.principal_id = $2`,
		principalID).
		Scan(&m.PrincipalID, &m.Email, &m.Name, &m.IsActive, &role, &m.DepartmentIDs, &m.JoinedAt)
	if err != nil {
		return Member{}, rowErr(err)
	}
	m.Role = authz.ParseRole(role)
	return m, nil
}

// DepartmentsByIDs resolves department names for ids derived from an
// already-scoped member query. An empty id set short-circuits: no fallback
// query runs, because an unscoped "fetch all to be safe" is exactly the
// cross-tenant leak this layer exists to prevent. The tenant predicate is
// still applied alongside the id set as the second line of defence.
func (r *Repository) DepartmentsByIDs(ctx context.Context, ids []uuid.UUID) ([]Department, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.scope.Query(ctx,
		`SELECT id, name FROM departments WHERE tenant_id = $1 AND id = ANY($2)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var departments []Department
	for rows.Next() {
		var d Department
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, err
		}
		departments = append(departments, d)
	}
	return departments, rows.Err()
}

// rowErr maps an absent row to ErrNotFound. Any other failure surfaces
// unchanged so a transport outage is not mistaken for a missing member.
func rowErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return shared.ErrNotFound
	}
	return err
}
