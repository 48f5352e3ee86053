package auth

import (
	"time"

	"github.com/google/uuid"
)

// Principal represents an authenticated user identity, independent of tenant.
// Principals are never deleted, only deactivated.
type Principal struct {
	ID           uuid.UUID
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SessionRecord is the source-of-truth session row used by the strong
// verification tier. The Redis-backed cookie session is the cheap tier.
type SessionRecord struct {
	ID          string
	PrincipalID uuid.UUID
	CreatedAt   time.Time
	ExpiresAt   time.Time
	IP          string
	UserAgent   string
}
