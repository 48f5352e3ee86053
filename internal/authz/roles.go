package authz

// RoleCode identifies a permission level within a tenant. super_admin is the
// platform operator role and is not tenant-scoped.
type RoleCode string

const (
	RoleSuperAdmin    RoleCode = "super_admin"
	RoleOrgAdmin      RoleCode = "org_admin"
	RoleHRManager     RoleCode = "hr_manager"
	RoleRecruiter     RoleCode = "recruiter"
	RoleHiringManager RoleCode = "hiring_manager"
	RoleInterviewer   RoleCode = "interviewer"

	// RoleNone marks an authenticated principal without any role assignment
	// (pre-onboarding, or a revoked membership). It never appears in storage.
	RoleNone RoleCode = ""
)

// rolePriority orders roles for primary-role resolution. Lower index wins.
// A principal normally holds a single assignment per tenant, but the lookup
// tolerates several and resolves them through this order.
var rolePriority = []RoleCode{
	RoleSuperAdmin,
	RoleOrgAdmin,
	RoleHRManager,
	RoleRecruiter,
	RoleHiringManager,
	RoleInterviewer,
}

// ParseRole validates a stored role string. Unknown values map to RoleNone so
// a bad row degrades to least privilege instead of failing the request.
func ParseRole(s string) RoleCode {
	for _, r := range rolePriority {
		if string(r) == s {
			return r
		}
	}
	return RoleNone
}

// PrimaryRole resolves the single role used for routing when a principal holds
// multiple assignments. Zero assignments resolve to RoleNone.
func PrimaryRole(roles []RoleCode) RoleCode {
	for _, candidate := range rolePriority {
		for _, held := range roles {
			if held == candidate {
				return candidate
			}
		}
	}
	return RoleNone
}

// TenantWide reports whether the role sees the whole tenant. Roles that are
// not tenant-wide carry an explicit department scope on their assignment.
func (r RoleCode) TenantWide() bool {
	switch r {
	case RoleSuperAdmin, RoleOrgAdmin, RoleHRManager, RoleRecruiter:
		return true
	default:
		return false
	}
}

// RoleHome returns the landing path a role is redirected to when it is denied
// a route or finishes logging in.
func RoleHome(role RoleCode) string {
	switch role {
	case RoleSuperAdmin:
		return "/admin"
	case RoleOrgAdmin, RoleHRManager, RoleRecruiter, RoleHiringManager, RoleInterviewer:
		return "/org"
	default:
		return "/onboarding"
	}
}
