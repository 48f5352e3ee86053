package invites

import (
	"time"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
)

// Invite is an offer of membership in a tenant with a specific role.
// Acceptance is the second of the two elevated paths that create role
// assignments (the other is tenant onboarding).
type Invite struct {
	ID            uuid.UUID
	TenantID      uuid.UUID
	Email         string
	Role          authz.RoleCode
	DepartmentIDs []uuid.UUID
	InvitedBy     uuid.UUID
	ExpiresAt     time.Time
	AcceptedAt    *time.Time
	CreatedAt     time.Time
}

// Expired reports whether the invite can no longer be accepted.
func (i Invite) Expired() bool {
	return time.Now().After(i.ExpiresAt)
}

// Accepted reports whether the invite was already used.
func (i Invite) Accepted() bool {
	return i.AcceptedAt != nil
}
