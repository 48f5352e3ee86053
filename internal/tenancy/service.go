package tenancy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// RepositoryPort defines the persistence surface for tenancy operations.
type RepositoryPort interface {
	CreateOrganization(ctx context.Context, org Organization) (Organization, error)
	OrganizationBySlug(ctx context.Context, slug string) (Organization, error)
	ListOrganizations(ctx context.Context) ([]Organization, error)
	AttachPrincipal(ctx context.Context, principalID, tenantID uuid.UUID) error
	AssignRole(ctx context.Context, a authz.RoleAssignment) error
	RevokeRole(ctx context.Context, principalID, tenantID uuid.UUID) error
}

// Service handles tenant onboarding and membership administration.
type Service struct {
	repo  RepositoryPort
	audit *shared.AuditLogger
	log   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, audit *shared.AuditLogger, log *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, log: log}
}

// Onboard creates an organization for a principal that has none and grants
// the creator org_admin through the elevated write path. The slug is derived
// from the name; on collision a short suffix is appended and the insert
// retried a bounded number of times.
func (s *Service) Onboard(ctx context.Context, principalID uuid.UUID, orgName string) (Organization, error) {
	orgName = strings.TrimSpace(orgName)
	if orgName == "" {
		return Organization{}, errors.New("tenancy: organization name required")
	}
	base := Slugify(orgName)
	if base == "" {
		base = "org"
	}

	var org Organization
	var err error
	for attempt := 0; attempt < 4; attempt++ {
		slug := base
		if attempt > 0 {
			slug = fmt.Sprintf("%s-%s", base, uuid.NewString()[:8])
		}
		org, err = s.repo.CreateOrganization(ctx, Organization{
			ID:                 uuid.New(),
			Slug:               slug,
			Name:               orgName,
			SubscriptionStatus: SubscriptionTrial,
		})
		if err == nil {
			break
		}
		if !errors.Is(err, ErrSlugTaken) {
			return Organization{}, err
		}
	}
	if err != nil {
		return Organization{}, err
	}

	if err := s.repo.AttachPrincipal(ctx, principalID, org.ID); err != nil {
		return Organization{}, err
	}
	if err := s.repo.AssignRole(ctx, authz.RoleAssignment{
		PrincipalID: principalID,
		TenantID:    org.ID,
		Role:        authz.RoleOrgAdmin,
	}); err != nil {
		return Organization{}, err
	}

	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  principalID,
		TenantID: org.ID,
		Action:   "tenant.created",
		Entity:   "organization",
		EntityID: org.ID.String(),
		Meta:     map[string]any{"slug": org.Slug},
	}); auditErr != nil && s.log != nil {
		s.log.Warn("audit tenant creation", slog.Any("error", auditErr))
	}
	return org, nil
}

// Grant assigns a role inside the tenant. Caller must already be authorized
// (org admin pages are gated by the route table); this is the elevated write.
func (s *Service) Grant(ctx context.Context, actor authz.Grant, principalID uuid.UUID, role authz.RoleCode, departmentIDs []uuid.UUID) error {
	if role == authz.RoleNone || role == authz.RoleSuperAdmin {
		return errors.New("tenancy: role not assignable")
	}
	if !actor.HasTenant() {
		return shared.ErrTenantRequired
	}
	if err := s.repo.AssignRole(ctx, authz.RoleAssignment{
		PrincipalID:   principalID,
		TenantID:      actor.TenantID,
		Role:          role,
		DepartmentIDs: departmentIDs,
	}); err != nil {
		return err
	}
	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.PrincipalID,
		TenantID: actor.TenantID,
		Action:   "role.granted",
		Entity:   "principal",
		EntityID: principalID.String(),
		Meta:     map[string]any{"role": string(role)},
	}); auditErr != nil && s.log != nil {
		s.log.Warn("audit role grant", slog.Any("error", auditErr))
	}
	return nil
}

// Revoke removes a principal's role within the actor's tenant.
func (s *Service) Revoke(ctx context.Context, actor authz.Grant, principalID uuid.UUID) error {
	if !actor.HasTenant() {
		return shared.ErrTenantRequired
	}
	if err := s.repo.RevokeRole(ctx, principalID, actor.TenantID); err != nil {
		return err
	}
	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.PrincipalID,
		TenantID: actor.TenantID,
		Action:   "role.revoked",
		Entity:   "principal",
		EntityID: principalID.String(),
	}); auditErr != nil && s.log != nil {
		s.log.Warn("audit role revoke", slog.Any("error", auditErr))
	}
	return nil
}

// ListOrganizations exposes all tenants for the platform-admin surface.
func (s *Service) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return s.repo.ListOrganizations(ctx)
}
