package authz

import (
	"context"

	"github.com/google/uuid"
)

// Grant is the request-scoped authorization context attached after a
// successful decision. It is never persisted; handlers read it from the
// request context and must scope every query they issue by TenantID.
type Grant struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	TenantSlug  string
	PrimaryRole RoleCode

	// PermittedDepartmentIDs is nil for roles with tenant-wide visibility and
	// a possibly empty slice for department-scoped roles.
	PermittedDepartmentIDs []uuid.UUID
}

// Authenticated reports whether the grant belongs to a signed-in principal.
func (g Grant) Authenticated() bool {
	return g.PrincipalID != uuid.Nil
}

// HasTenant reports whether the principal finished onboarding into a tenant.
func (g Grant) HasTenant() bool {
	return g.TenantID != uuid.Nil
}

// Membership is the profile row linking a principal to its tenant. A
// principal belongs to at most one tenant.
type Membership struct {
	PrincipalID uuid.UUID
	TenantID    uuid.UUID
	TenantSlug  string
}

// RoleAssignment is a (principal, tenant, role) row. DepartmentIDs scopes
// department-limited roles; empty means the role sees nothing until scoped.
type RoleAssignment struct {
	PrincipalID   uuid.UUID
	TenantID      uuid.UUID
	Role          RoleCode
	DepartmentIDs []uuid.UUID
}

type grantContextKey struct{}

// ContextWithGrant stores the grant in context.
func ContextWithGrant(ctx context.Context, grant Grant) context.Context {
	return context.WithValue(ctx, grantContextKey{}, grant)
}

// GrantFromContext extracts the grant placed by the authorization middleware.
func GrantFromContext(ctx context.Context) (Grant, bool) {
	grant, ok := ctx.Value(grantContextKey{}).(Grant)
	return grant, ok
}
