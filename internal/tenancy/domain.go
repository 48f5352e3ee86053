package tenancy

import (
	"time"

	"github.com/google/uuid"
)

// Organization is an isolated customer account, the unit of data isolation.
type Organization struct {
	ID                 uuid.UUID
	Slug               string
	Name               string
	SubscriptionStatus string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Subscription statuses. Authorization reads the status but never branches on
// billing detail beyond active/suspended.
const (
	SubscriptionTrial     = "trial"
	SubscriptionActive    = "active"
	SubscriptionSuspended = "suspended"
)

// Department partitions a tenant for department-scoped roles.
type Department struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
}
