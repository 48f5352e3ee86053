package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
)

// Member is a principal seen through its membership in one tenant.
type Member struct {
	PrincipalID   uuid.UUID
	Email         string
	Name          string
	IsActive      bool
	Role          authz.RoleCode
	DepartmentIDs []uuid.UUID
	JoinedAt      time.Time
}

// Department is the resolved name for a department id referenced by a member.
type Department struct {
	ID   uuid.UUID
	Name string
}
