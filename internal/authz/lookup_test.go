package authz

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type stubStore struct {
	membership    Membership
	hasMembership bool
	assignments   []RoleAssignment
	isSuper       bool
	err           error

	block time.Duration

	membershipCalls int
}

func (s *stubStore) Membership(ctx context.Context, principalID uuid.UUID) (Membership, bool, error) {
	s.membershipCalls++
	if s.block > 0 {
		select {
		case <-time.After(s.block):
		case <-ctx.Done():
			return Membership{}, false, ctx.Err()
		}
	}
	return s.membership, s.hasMembership, s.err
}

func (s *stubStore) RoleAssignments(ctx context.Context, principalID, tenantID uuid.UUID) ([]RoleAssignment, error) {
	return s.assignments, s.err
}

func (s *stubStore) RoleAssignmentsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error) {
	return s.assignments, s.err
}

func (s *stubStore) SuperAdmin(ctx context.Context, principalID uuid.UUID) (bool, error) {
	return s.isSuper, s.err
}

func (s *stubStore) OrganizationByID(ctx context.Context, tenantID uuid.UUID) (Organization, error) {
	return Organization{ID: tenantID, Slug: s.membership.TenantSlug}, s.err
}

func TestResolveNoAssignments(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
	}
	lookup := NewLookup(store, nil, nil, time.Second)

	grant := lookup.Resolve(context.Background(), principal)
	if grant.PrimaryRole != RoleNone {
		t.Fatalf("expected no role, got %s", grant.PrimaryRole)
	}
	if grant.TenantID != tenant {
		t.Fatalf("expected tenant to resolve even without roles")
	}
}

func TestResolveMultipleRolesPicksPriority(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments: []RoleAssignment{
			{PrincipalID: principal, TenantID: tenant, Role: RoleHRManager},
			{PrincipalID: principal, TenantID: tenant, Role: RoleOrgAdmin},
		},
	}
	lookup := NewLookup(store, nil, nil, time.Second)

	grant := lookup.Resolve(context.Background(), principal)
	if grant.PrimaryRole != RoleOrgAdmin {
		t.Fatalf("expected org_admin to win, got %s", grant.PrimaryRole)
	}
	if grant.PermittedDepartmentIDs != nil {
		t.Fatalf("tenant-wide role must carry no department scope")
	}
}

func TestResolveDepartmentScopedRole(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	deptA, deptB := uuid.New(), uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments: []RoleAssignment{
			{PrincipalID: principal, TenantID: tenant, Role: RoleHiringManager, DepartmentIDs: []uuid.UUID{deptA, deptB, deptA}},
		},
	}
	lookup := NewLookup(store, nil, nil, time.Second)

	grant := lookup.Resolve(context.Background(), principal)
	if grant.PrimaryRole != RoleHiringManager {
		t.Fatalf("expected hiring_manager, got %s", grant.PrimaryRole)
	}
	if len(grant.PermittedDepartmentIDs) != 2 {
		t.Fatalf("expected 2 distinct departments, got %d", len(grant.PermittedDepartmentIDs))
	}
}

func TestResolveSuperAdminSkipsMembership(t *testing.T) {
	principal := uuid.New()
	store := &stubStore{isSuper: true}
	lookup := NewLookup(store, nil, nil, time.Second)

	grant := lookup.Resolve(context.Background(), principal)
	if grant.PrimaryRole != RoleSuperAdmin {
		t.Fatalf("expected super_admin, got %s", grant.PrimaryRole)
	}
	if store.membershipCalls != 0 {
		t.Fatalf("super admin resolution must not consult membership")
	}
}

func TestResolveTransportFailureFailsClosed(t *testing.T) {
	principal := uuid.New()
	store := &stubStore{err: errors.New("connection refused")}
	lookup := NewLookup(store, nil, nil, time.Second)

	grant := lookup.Resolve(context.Background(), principal)
	if grant.PrincipalID != principal {
		t.Fatalf("failed lookup must keep the principal identity")
	}
	if grant.PrimaryRole != RoleNone || grant.HasTenant() {
		t.Fatalf("failed lookup must degrade to no role, no tenant: %+v", grant)
	}
}

func TestResolveTimeoutFailsClosed(t *testing.T) {
	principal := uuid.New()
	store := &stubStore{block: 500 * time.Millisecond, hasMembership: true}
	lookup := NewLookup(store, nil, nil, 20*time.Millisecond)

	start := time.Now()
	grant := lookup.Resolve(context.Background(), principal)
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("resolve must be bounded by the timeout, took %s", elapsed)
	}
	if grant.PrimaryRole != RoleNone || grant.HasTenant() {
		t.Fatalf("timed out lookup must degrade to no role, no tenant: %+v", grant)
	}
}

func TestEnsureTenantReResolvesCookieGrants(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments:   []RoleAssignment{{PrincipalID: principal, TenantID: tenant, Role: RoleRecruiter}},
	}
	lookup := NewLookup(store, nil, nil, time.Second)

	cookieGrant := Grant{PrincipalID: principal, PrimaryRole: RoleRecruiter, TenantSlug: "acme"}
	full := lookup.EnsureTenant(context.Background(), cookieGrant)
	if full.TenantID != tenant {
		t.Fatalf("expected tenant id to be populated")
	}

	// A grant that already has a tenant passes through untouched.
	calls := store.membershipCalls
	again := lookup.EnsureTenant(context.Background(), full)
	if store.membershipCalls != calls {
		t.Fatalf("grant with tenant must not trigger another lookup")
	}
	if again.TenantID != full.TenantID || again.PrimaryRole != full.PrimaryRole {
		t.Fatalf("expected passthrough, got %+v", again)
	}
}

func TestLoadBundle(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments: []RoleAssignment{
			{PrincipalID: principal, TenantID: tenant, Role: RoleHRManager},
			{PrincipalID: principal, TenantID: uuid.New(), Role: RoleOrgAdmin},
		},
	}
	lookup := NewLookup(store, nil, nil, time.Second)

	bundle, err := lookup.LoadBundle(context.Background(), principal)
	if err != nil {
		t.Fatalf("load bundle: %v", err)
	}
	// The org_admin row belongs to another tenant and must not leak into the
	// resolved role.
	if bundle.Grant.PrimaryRole != RoleHRManager {
		t.Fatalf("expected hr_manager, got %s", bundle.Grant.PrimaryRole)
	}
	if bundle.Organization.Slug != "acme" {
		t.Fatalf("expected organization record, got %+v", bundle.Organization)
	}
}
