package authz

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/talentgrid-hq/talentgrid/internal/observability"
)

// LookupStore is the persistence surface the lookup needs. Satisfied by
// *Repository in production and by stubs in tests.
type LookupStore interface {
	Membership(ctx context.Context, principalID uuid.UUID) (Membership, bool, error)
	RoleAssignments(ctx context.Context, principalID, tenantID uuid.UUID) ([]RoleAssignment, error)
	RoleAssignmentsForPrincipal(ctx context.Context, principalID uuid.UUID) ([]RoleAssignment, error)
	SuperAdmin(ctx context.Context, principalID uuid.UUID) (bool, error)
	OrganizationByID(ctx context.Context, tenantID uuid.UUID) (Organization, error)
}

// Lookup resolves a principal's tenant and primary role. Concurrent slow-path
// resolutions for the same principal are collapsed through singleflight; every
// resolution is bounded by the configured timeout so a slow query can never
// stall the request pipeline.
type Lookup struct {
	store   LookupStore
	logger  *slog.Logger
	metrics *observability.Metrics
	timeout time.Duration
	group   singleflight.Group
}

// NewLookup constructs a Lookup. A zero timeout defaults to five seconds.
func NewLookup(store LookupStore, logger *slog.Logger, metrics *observability.Metrics, timeout time.Duration) *Lookup {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Lookup{store: store, logger: logger, metrics: metrics, timeout: timeout}
}

// Resolve runs the slow-path lookup: membership first, then role assignments
// for the resolved tenant, then priority resolution. The returned grant is
// always usable; on transport failure or timeout the error is logged and the
// grant degrades to "authenticated, no role resolved" so permission checks
// fail closed while public routes stay reachable.
func (l *Lookup) Resolve(ctx context.Context, principalID uuid.UUID) Grant {
	start := time.Now()
	result, err, _ := l.group.Do(principalID.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()
		return l.resolveSlow(ctx, principalID)
	})
	if err != nil {
		if l.logger != nil {
			l.logger.Error("role lookup failed",
				slog.String("principal_id", principalID.String()),
				slog.Any("error", err))
		}
		l.metrics.RoleLookup("error", time.Since(start))
		return Grant{PrincipalID: principalID}
	}
	l.metrics.RoleLookup("query", time.Since(start))
	return result.(Grant)
}

func (l *Lookup) resolveSlow(ctx context.Context, principalID uuid.UUID) (Grant, error) {
	// Platform operators are resolved before tenant membership: super_admin is
	// not tenant-scoped and a tenant row is optional for them.
	isSuper, err := l.store.SuperAdmin(ctx, principalID)
	if err != nil {
		return Grant{}, err
	}
	if isSuper {
		return Grant{PrincipalID: principalID, PrimaryRole: RoleSuperAdmin}, nil
	}

	membership, ok, err := l.store.Membership(ctx, principalID)
	if err != nil {
		return Grant{}, err
	}
	if !ok {
		// New-user / pre-onboarding state: authenticated, no tenant, no roles.
		return Grant{PrincipalID: principalID}, nil
	}

	assignments, err := l.store.RoleAssignments(ctx, principalID, membership.TenantID)
	if err != nil {
		return Grant{}, err
	}
	return buildGrant(principalID, membership, assignments), nil
}

// EnsureTenant returns a grant with the tenant id populated, re-resolving
// through the slow path when the middleware attached a cookie-sourced grant.
// Handlers call this before building tenant-scoped queries.
func (l *Lookup) EnsureTenant(ctx context.Context, grant Grant) Grant {
	if grant.HasTenant() || !grant.Authenticated() {
		return grant
	}
	return l.Resolve(ctx, grant.PrincipalID)
}

// LoadBundle fetches membership, role assignments, and the organization record
// with unordered concurrent queries once the principal id is known, joining
// them in memory. Used on initial loads where the whole context is needed at
// once; Resolve remains the sequential route-gating path.
type Bundle struct {
	Grant        Grant
	Organization Organization
}

// LoadBundle resolves the full authorization bundle for a principal.
func (l *Lookup) LoadBundle(ctx context.Context, principalID uuid.UUID) (Bundle, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	var (
		membership    Membership
		hasMembership bool
		assignments   []RoleAssignment
		isSuper       bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		membership, hasMembership, err = l.store.Membership(gctx, principalID)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = l.store.RoleAssignmentsForPrincipal(gctx, principalID)
		return err
	})
	g.Go(func() error {
		var err error
		isSuper, err = l.store.SuperAdmin(gctx, principalID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Bundle{}, err
	}

	if isSuper {
		return Bundle{Grant: Grant{PrincipalID: principalID, PrimaryRole: RoleSuperAdmin}}, nil
	}
	if !hasMembership {
		return Bundle{Grant: Grant{PrincipalID: principalID}}, nil
	}

	scoped := assignments[:0:0]
	for _, a := range assignments {
		if a.TenantID == membership.TenantID {
			scoped = append(scoped, a)
		}
	}
	bundle := Bundle{Grant: buildGrant(principalID, membership, scoped)}

	org, err := l.store.OrganizationByID(ctx, membership.TenantID)
	if err != nil {
		// The grant is still good; the organization record is presentation
		// detail and its absence is logged, not fatal.
		if l.logger != nil {
			l.logger.Warn("load organization",
				slog.String("tenant_id", membership.TenantID.String()),
				slog.Any("error", err))
		}
		return bundle, nil
	}
	bundle.Organization = org
	return bundle, nil
}

// buildGrant joins a membership with its assignments, resolving the primary
// role by priority and collecting department scope for non-tenant-wide roles.
func buildGrant(principalID uuid.UUID, membership Membership, assignments []RoleAssignment) Grant {
	grant := Grant{
		PrincipalID: principalID,
		TenantID:    membership.TenantID,
		TenantSlug:  membership.TenantSlug,
	}
	if len(assignments) == 0 {
		return grant
	}
	roles := make([]RoleCode, 0, len(assignments))
	for _, a := range assignments {
		roles = append(roles, a.Role)
	}
	grant.PrimaryRole = PrimaryRole(roles)
	if grant.PrimaryRole == RoleNone || grant.PrimaryRole.TenantWide() {
		return grant
	}
	departments := make([]uuid.UUID, 0)
	seen := make(map[uuid.UUID]struct{})
	for _, a := range assignments {
		if a.Role != grant.PrimaryRole {
			continue
		}
		for _, id := range a.DepartmentIDs {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			departments = append(departments, id)
		}
	}
	grant.PermittedDepartmentIDs = departments
	return grant
}
