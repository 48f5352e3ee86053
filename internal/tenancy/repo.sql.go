package tenancy

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// ErrSlugTaken indicates the organization slug is already in use.
var ErrSlugTaken = errors.New("tenancy: slug taken")

// Repository provides PostgreSQL backed persistence for organizations and the
// elevated role-assignment write path. Role assignment creation deliberately
// bypasses tenant scoping: writing an assignment is what establishes the
// tenant relationship in the first place, and only the narrow privileged
// flows (onboarding, invite acceptance) reach these methods.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateOrganization inserts a new tenant.
func (r *Repository) CreateOrganization(ctx context.Context, org Organization) (Organization, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO organizations (id, slug, name, subscription_status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, slug, name, subscription_status, created_at, updated_at`,
		org.ID, org.Slug, org.Name, org.SubscriptionStatus).
		Scan(&org.ID, &org.Slug, &org.Name, &org.SubscriptionStatus, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Organization{}, ErrSlugTaken
		}
		return Organization{}, err
	}
	return org, nil
}

// OrganizationBySlug fetches a tenant by slug.
func (r *Repository) OrganizationBySlug(ctx context.Context, slug string) (Organization, error) {
	var org Organization
	err := r.pool.QueryRow(ctx,
		`SELECT id, slug, name, subscription_status, created_at, updated_at
		 FROM organizations WHERE slug = $1`, slug).
		Scan(&org.ID, &org.Slug, &org.Name, &org.SubscriptionStatus, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Organization{}, shared.ErrNotFound
		}
		return Organization{}, err
	}
	return org, nil
}

// ListOrganizations returns all tenants. Platform-admin surface only; no
// tenant scope applies by definition.
func (r *Repository) ListOrganizations(ctx context.Context) ([]Organization, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, name, subscription_status, created_at, updated_at
		 FROM organizations ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orgs []Organization
	for rows.Next() {
		var org Organization
		if err := rows.Scan(&org.ID, &org.Slug, &org.Name, &org.SubscriptionStatus, &org.CreatedAt, &org.UpdatedAt); err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

// AttachPrincipal points the principal's profile at the tenant.
func (r *Repository) AttachPrincipal(ctx context.Context, principalID, tenantID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE profiles SET organization_id = $2, updated_at = NOW() WHERE id = $1`,
		principalID, tenantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AssignRole upserts a role assignment keyed on (principal, tenant). Racing
// writers for the same pair converge on the last role instead of erroring,
// which is what makes concurrent invite acceptance safe.
func (r *Repository) AssignRole(ctx context.Context, a authz.RoleAssignment) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO role_assignments (principal_id, tenant_id, role, department_ids)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (principal_id, tenant_id)
		 DO UPDATE SET role = EXCLUDED.role, department_ids = EXCLUDED.department_ids, updated_at = NOW()`,
		a.PrincipalID, a.TenantID, string(a.Role), a.DepartmentIDs)
	return err
}

// RevokeRole removes the assignment for (principal, tenant).
func (r *Repository) RevokeRole(ctx context.Context, principalID, tenantID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM role_assignments WHERE principal_id = $1 AND tenant_id = $2`,
		principalID, tenantID)
	return err
}

// CreateDepartment inserts a department for the tenant.
func (r *Repository) CreateDepartment(ctx context.Context, dept Department) (Department, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO departments (id, tenant_id, name) VALUES ($1, $2, $3)
		 RETURNING id, tenant_id, name`,
		dept.ID, dept.TenantID, dept.Name).
		Scan(&dept.ID, &dept.TenantID, &dept.Name)
	if err != nil {
		return Department{}, err
	}
	return dept, nil
}
