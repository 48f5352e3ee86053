package invites

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
	"github.com/talentgrid-hq/talentgrid/jobs"
)

var (
	// ErrInviteExpired indicates the invite passed its expiry.
	ErrInviteExpired = errors.New("invites: expired")
	// ErrInviteUsed indicates the invite was already accepted.
	ErrInviteUsed = errors.New("invites: already accepted")
	// ErrRoleNotInvitable rejects roles the invite flow may not grant.
	ErrRoleNotInvitable = errors.New("invites: role not invitable")
)

// RepositoryPort defines persistence for the invite flow.
type RepositoryPort interface {
	Create(ctx context.Context, invite Invite) error
	InviteByID(ctx context.Context, id uuid.UUID) (Invite, error)
	MarkAccepted(ctx context.Context, id uuid.UUID) error
	ListForTenant(ctx context.Context, scope *tenancy.Scoped) ([]Invite, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// MembershipWriter is the slice of the tenancy repository the acceptance path
// needs: the elevated writes that attach a principal and upsert its role.
type MembershipWriter interface {
	AttachPrincipal(ctx context.Context, principalID, tenantID uuid.UUID) error
	AssignRole(ctx context.Context, a authz.RoleAssignment) error
}

// Service orchestrates the invite lifecycle.
type Service struct {
	repo       RepositoryPort
	membership MembershipWriter
	tokens     *TokenCodec
	tasks      *asynq.Client
	audit      *shared.AuditLogger
	log        *slog.Logger
	ttl        time.Duration
	baseURL    string
}

// NewService builds a Service. A zero ttl defaults to seven days.
func NewService(repo RepositoryPort, membership MembershipWriter, tokens *TokenCodec, tasks *asynq.Client, audit *shared.AuditLogger, log *slog.Logger, ttl time.Duration, baseURL string) *Service {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		repo:       repo,
		membership: membership,
		tokens:     tokens,
		tasks:      tasks,
		audit:      audit,
		log:        log,
		ttl:        ttl,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Issue creates an invite into the actor's tenant and enqueues the email.
// Only tenant roles below org_admin's own level plus org_admin itself are
// invitable; super_admin is never granted through invites.
func (s *Service) Issue(ctx context.Context, actor authz.Grant, email string, role authz.RoleCode, departmentIDs []uuid.UUID) (Invite, error) {
	if role == authz.RoleNone || role == authz.RoleSuperAdmin {
		return Invite{}, ErrRoleNotInvitable
	}
	if !actor.HasTenant() {
		return Invite{}, shared.ErrTenantRequired
	}
	invite := Invite{
		ID:            uuid.New(),
		TenantID:      actor.TenantID,
		Email:         strings.TrimSpace(strings.ToLower(email)),
		Role:          role,
		DepartmentIDs: departmentIDs,
		InvitedBy:     actor.PrincipalID,
		ExpiresAt:     time.Now().Add(s.ttl),
	}
	if err := s.repo.Create(ctx, invite); err != nil {
		return Invite{}, err
	}

	token, err := s.tokens.Sign(invite)
	if err != nil {
		return Invite{}, err
	}
	if s.tasks != nil {
		task, err := jobs.NewSendEmailTask(jobs.SendEmailPayload{
			To:      invite.Email,
			Subject: "You have been invited to join a hiring team",
			Body:    fmt.Sprintf("%s/invites/accept?token=%s", s.baseURL, token),
		})
		if err == nil {
			if _, err := s.tasks.EnqueueContext(ctx, task); err != nil && s.log != nil {
				s.log.Warn("enqueue invite email", slog.Any("error", err))
			}
		}
	}

	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor.PrincipalID,
		TenantID: actor.TenantID,
		Action:   "invite.issued",
		Entity:   "invite",
		EntityID: invite.ID.String(),
		Meta:     map[string]any{"email": invite.Email, "role": string(role)},
	}); auditErr != nil && s.log != nil {
		s.log.Warn("audit invite", slog.Any("error", auditErr))
	}
	return invite, nil
}

// Token re-signs the invite for link construction.
func (s *Service) Token(invite Invite) (string, error) {
	return s.tokens.Sign(invite)
}

// Validate checks a public token and returns the underlying invite when it is
// still acceptable.
func (s *Service) Validate(ctx context.Context, token string) (Invite, error) {
	id, err := s.tokens.Verify(token)
	if err != nil {
		return Invite{}, ErrBadToken
	}
	invite, err := s.repo.InviteByID(ctx, id)
	if err != nil {
		return Invite{}, ErrBadToken
	}
	if invite.Accepted() {
		return Invite{}, ErrInviteUsed
	}
	if invite.Expired() {
		return Invite{}, ErrInviteExpired
	}
	return invite, nil
}

// Accept redeems the invite for the authenticated principal: the profile is
// attached to the tenant and the role upserted on the (principal, tenant)
// key, so two racing acceptances of the same invite converge instead of
// erroring.
func (s *Service) Accept(ctx context.Context, token string, principalID uuid.UUID) (Invite, error) {
	invite, err := s.Validate(ctx, token)
	if err != nil {
		return Invite{}, err
	}
	if err := s.membership.AttachPrincipal(ctx, principalID, invite.TenantID); err != nil {
		return Invite{}, err
	}
	if err := s.membership.AssignRole(ctx, authz.RoleAssignment{
		PrincipalID:   principalID,
		TenantID:      invite.TenantID,
		Role:          invite.Role,
		DepartmentIDs: invite.DepartmentIDs,
	}); err != nil {
		return Invite{}, err
	}
	if err := s.repo.MarkAccepted(ctx, invite.ID); err != nil {
		return Invite{}, err
	}

	if auditErr := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  principalID,
		TenantID: invite.TenantID,
		Action:   "invite.accepted",
		Entity:   "invite",
		EntityID: invite.ID.String(),
		Meta:     map[string]any{"role": string(invite.Role)},
	}); auditErr != nil && s.log != nil {
		s.log.Warn("audit invite accept", slog.Any("error", auditErr))
	}
	return invite, nil
}

// List returns the tenant's invites through the scoped helper.
func (s *Service) List(ctx context.Context, scope *tenancy.Scoped) ([]Invite, error) {
	return s.repo.ListForTenant(ctx, scope)
}

// SweepExpired is the job entrypoint removing stale invites.
func (s *Service) SweepExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx)
}
