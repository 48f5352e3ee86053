package authz

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed reads for the lookup path.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Membership returns the principal's tenant link, or ok=false when the
// principal has no tenant yet (pre-onboarding). Absence is a state, not an
// error.
func (r *Repository) Membership(ctx context.Context, principalID uuid.UUID) (Membership, bool, error) {
	var m Membership
	err := r.pool.QueryRow(ctx,
		`SELECT p.id, o.id, o.slug
		 FROM profiles p
		 JOIN organizations o ON o.id = p.organization_id
		 WHERE p.id = $1 AND p.organization_id IS NOT NULL`,
		principalID).Scan(&m.PrincipalID, &m.TenantID, &m.TenantSlug)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, false, nil
		}
		return Membership{}, false, err
	}
	return m, true, nil
}

// RoleAssignments returns every assignment for (principal, tenant). The list
// fetch is deliberate: zero rows mean "no role yet" and several rows are
// resolved by priority upstream, so a single-row query mode has no place here.
func (r *Repository) RoleAssignments(ctx context.Context, principalID, tenantID uuid.UUID) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT principal_id, tenant_id, role, COALESCE(department_ids, '{}')
		 FROM role_assignments
		 WHERE principal_id = $1 AND tenant_id = $2`,
		principalID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var role string
		if err := rows.Scan(&a.PrincipalID, &a.TenantID, &role, &a.DepartmentIDs); err != nil {
			return nil, err
		}
		a.Role = ParseRole(role)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// RoleAssignmentsForPrincipal returns every assignment the principal holds in
// any tenant. Used by the initial-load bundle, which fetches profile and
// assignments concurrently and joins them in memory on the resolved tenant.
func (r *Repository) RoleAssignmentsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT principal_id, COALESCE(tenant_id, '00000000-0000-0000-0000-000000000000'), role, COALESCE(department_ids, '{}')
		 FROM role_assignments
		 WHERE principal_id = $1`,
		principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var assignments []RoleAssignment
	for rows.Next() {
		var a RoleAssignment
		var role string
		if err := rows.Scan(&a.PrincipalID, &a.TenantID, &role, &a.DepartmentIDs); err != nil {
			return nil, err
		}
		a.Role = ParseRole(role)
		assignments = append(assignments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return assignments, nil
}

// SuperAdmin reports whether the principal holds the platform role. Platform
// assignments live outside any tenant (tenant_id IS NULL).
func (r *Repository) SuperAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM role_assignments
		   WHERE principal_id = $1 AND tenant_id IS NULL AND role = $2
		 )`,
		principalID, string(RoleSuperAdmin)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// Organization fetches the organization record for initial-load bundles.
type Organization struct {
	ID     uuid.UUID
	Slug   string
	Name   string
	Status string
}

// OrganizationByID returns the organization row.
func (r *Repository) OrganizationByID(ctx context.Context, tenantID uuid.UUID) (Organization, error) {
	var o Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, name, subscription_status FROM organizations WHERE id = $1`,
		tenantID).Scan(&o.ID, &o.Slug, &o.Name, &o.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, pgx.ErrNoRows
		}
		return Organization{}, err
	}
	return o, nil
}
