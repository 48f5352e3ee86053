package shared

import "errors"

var (
	// ErrNotFound indicates resource not found. Cross-tenant lookups resolve to
	// this error as well, so callers never learn whether the row exists elsewhere.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionExpired indicates the presented session is no longer valid.
	ErrSessionExpired = errors.New("session expired")
	// ErrTenantRequired indicates a tenant-scoped operation was attempted
	// without a resolved tenant.
	ErrTenantRequired = errors.New("tenant required")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
