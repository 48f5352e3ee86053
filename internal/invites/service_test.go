package invites

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
)

type stubInviteRepo struct {
	invites map[uuid.UUID]Invite
	swept   int64
}

func newStubInviteRepo() *stubInviteRepo {
	return &stubInviteRepo{invites: make(map[uuid.UUID]Invite)}
}

func (s *stubInviteRepo) Create(ctx context.Context, invite Invite) error {
	s.invites[invite.ID] = invite
	return nil
}

func (s *stubInviteRepo) InviteByID(ctx context.Context, id uuid.UUID) (Invite, error) {
	invite, ok := s.invites[id]
	if !ok {
		return Invite{}, shared.ErrNotFound
	}
	return invite, nil
}

func (s *stubInviteRepo) MarkAccepted(ctx context.Context, id uuid.UUID) error {
	invite, ok := s.invites[id]
	if !ok {
		return shared.ErrNotFound
	}
	now := time.Now()
	invite.AcceptedAt = &now
	s.invites[id] = invite
	return nil
}

func (s *stubInviteRepo) ListForTenant(ctx context.Context, scope *tenancy.Scoped) ([]Invite, error) {
	var out []Invite
	for _, invite := range s.invites {
		if invite.TenantID == scope.TenantID() {
			out = append(out, invite)
		}
	}
	return out, nil
}

func (s *stubInviteRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return s.swept, nil
}

type stubMembership struct {
	attached    []uuid.UUID
	assignments []authz.RoleAssignment
}

func (s *stubMembership) AttachPrincipal(ctx context.Context, principalID, tenantID uuid.UUID) error {
	s.attached = append(s.attached, principalID)
	return nil
}

func (s *stubMembership) AssignRole(ctx context.Context, a authz.RoleAssignment) error {
	s.assignments = append(s.assignments, a)
	return nil
}

func newTestService(repo RepositoryPort, membership MembershipWriter) *Service {
	return NewService(repo, membership, NewTokenCodec("invite-secret"), nil, nil, nil, time.Hour, "https://app.example.com")
}

func actorGrant(tenantID uuid.UUID) authz.Grant {
	return authz.Grant{PrincipalID: uuid.New(), TenantID: tenantID, TenantSlug: "acme", PrimaryRole: authz.RoleOrgAdmin}
}

func TestIssueRejectsReservedRoles(t *testing.T) {
	svc := newTestService(newStubInviteRepo(), &stubMembership{})
	actor := actorGrant(uuid.New())

	if _, err := svc.Issue(context.Background(), actor, "a@b.com", authz.RoleSuperAdmin, nil); !errors.Is(err, ErrRoleNotInvitable) {
		t.Fatalf("expected ErrRoleNotInvitable, got %v", err)
	}
	if _, err := svc.Issue(context.Background(), actor, "a@b.com", authz.RoleNone, nil); !errors.Is(err, ErrRoleNotInvitable) {
		t.Fatalf("expected ErrRoleNotInvitable, got %v", err)
	}
}

func TestIssueRequiresTenant(t *testing.T) {
	svc := newTestService(newStubInviteRepo(), &stubMembership{})
	actor := authz.Grant{PrincipalID: uuid.New()}
	if _, err := svc.Issue(context.Background(), actor, "a@b.com", authz.RoleRecruiter, nil); !errors.Is(err, shared.ErrTenantRequired) {
		t.Fatalf("expected ErrTenantRequired, got %v", err)
	}
}

func TestIssueNormalizesEmail(t *testing.T) {
	repo := newStubInviteRepo()
	svc := newTestService(repo, &stubMembership{})

	invite, err := svc.Issue(context.Background(), actorGrant(uuid.New()), "  Candidate@Example.COM ", authz.RoleInterviewer, nil)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if invite.Email != "candidate@example.com" {
		t.Fatalf("expected normalized email, got %q", invite.Email)
	}
	if _, ok := repo.invites[invite.ID]; !ok {
		t.Fatalf("invite must be persisted")
	}
}

func TestValidateAndAccept(t *testing.T) {
	repo := newStubInviteRepo()
	membership := &stubMembership{}
	svc := newTestService(repo, membership)
	tenant := uuid.New()
	dept := uuid.New()

	invite, err := svc.Issue(context.Background(), actorGrant(tenant), "a@b.com", authz.RoleHiringManager, []uuid.UUID{dept})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	token, err := svc.Token(invite)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	joiner := uuid.New()
	accepted, err := svc.Accept(context.Background(), token, joiner)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if accepted.ID != invite.ID {
		t.Fatalf("expected invite %s, got %s", invite.ID, accepted.ID)
	}
	if len(membership.attached) != 1 || membership.attached[0] != joiner {
		t.Fatalf("joiner must be attached to the tenant")
	}
	if len(membership.assignments) != 1 {
		t.Fatalf("expected one role assignment")
	}
	a := membership.assignments[0]
	if a.TenantID != tenant || a.Role != authz.RoleHiringManager || len(a.DepartmentIDs) != 1 {
		t.Fatalf("assignment must carry the invite's tenant, role and scope: %+v", a)
	}

	// Second redemption of the same token fails: the row is now accepted.
	if _, err := svc.Accept(context.Background(), token, uuid.New()); !errors.Is(err, ErrInviteUsed) {
		t.Fatalf("expected ErrInviteUsed, got %v", err)
	}
}

func TestValidateExpiredInvite(t *testing.T) {
	repo := newStubInviteRepo()
	svc := newTestService(repo, &stubMembership{})

	invite := Invite{ID: uuid.New(), TenantID: uuid.New(), Role: authz.RoleRecruiter, ExpiresAt: time.Now().Add(time.Minute)}
	repo.invites[invite.ID] = invite
	token, err := svc.Token(invite)
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	// Expire the row after the token was minted; the row wins.
	invite.ExpiresAt = time.Now().Add(-time.Minute)
	repo.invites[invite.ID] = invite

	if _, err := svc.Validate(context.Background(), token); !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}
}

func TestValidateUnknownInvite(t *testing.T) {
	svc := newTestService(newStubInviteRepo(), &stubMembership{})
	token, err := svc.Token(Invite{ID: uuid.New(), ExpiresAt: time.Now().Add(time.Hour)})
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if _, err := svc.Validate(context.Background(), token); !errors.Is(err, ErrBadToken) {
		t.Fatalf("expected ErrBadToken for missing row, got %v", err)
	}
}

func TestSweepExpired(t *testing.T) {
	repo := newStubInviteRepo()
	repo.swept = 3
	svc := newTestService(repo, &stubMembership{})

	n, err := svc.SweepExpired(context.Background())
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 removed, got %d", n)
	}
}
