package authz

import "strings"

// Rule grants a set of roles access to a path prefix. Prefixes match the exact
// path or any path below it separated by "/".
type Rule struct {
	Prefix  string
	Allowed []RoleCode
}

// Table is the ordered route authorization table. Rules are evaluated in
// declaration order and the first match wins, so more specific prefixes must
// be declared before their parents. A path matching no rule is allowed unless
// DefaultDeny is set; the permissive default keeps newly added pages reachable
// without a table change, at the cost of silently open unknown prefixes.
type Table struct {
	Rules       []Rule
	DefaultDeny bool
}

// Allows reports whether role may reach path. super_admin bypasses the table
// entirely. Pure function: no I/O, safe for concurrent use.
func (t Table) Allows(path string, role RoleCode) bool {
	if role == RoleSuperAdmin {
		return true
	}
	for _, rule := range t.Rules {
		if !matchesPrefix(path, rule.Prefix) {
			continue
		}
		for _, allowed := range rule.Allowed {
			if allowed == role {
				return true
			}
		}
		return false
	}
	return !t.DefaultDeny
}

func matchesPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

var allTenantRoles = []RoleCode{RoleOrgAdmin, RoleHRManager, RoleRecruiter, RoleHiringManager, RoleInterviewer}

// DefaultTable is the production route table. Order matters: the org settings
// rules precede the broad /org rules so the narrower grant is found first.
func DefaultTable() Table {
	return Table{Rules: []Rule{
		// Tenant administration.
		{Prefix: "/org/settings", Allowed: []RoleCode{RoleOrgAdmin}},
		{Prefix: "/org/team", Allowed: []RoleCode{RoleOrgAdmin}},
		{Prefix: "/org/branding", Allowed: []RoleCode{RoleOrgAdmin}},

		// HR configuration.
		{Prefix: "/org/pipelines", Allowed: []RoleCode{RoleOrgAdmin, RoleHRManager}},
		{Prefix: "/org/workflows", Allowed: []RoleCode{RoleOrgAdmin, RoleHRManager}},
		{Prefix: "/org/templates", Allowed: []RoleCode{RoleOrgAdmin, RoleHRManager}},
		{Prefix: "/org/screening-questions", Allowed: []RoleCode{RoleOrgAdmin, RoleHRManager}},

		// Interview surface adds interviewers.
		{Prefix: "/org/interviews", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager, RoleInterviewer}},
		{Prefix: "/org/scorecards", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager, RoleInterviewer}},

		// Core ATS objects.
		{Prefix: "/org/jobs", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager}},
		{Prefix: "/org/candidates", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager}},
		{Prefix: "/org/applications", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager}},
		{Prefix: "/org/requisitions", Allowed: []RoleCode{RoleHRManager, RoleRecruiter, RoleHiringManager}},

		{Prefix: "/org/analytics", Allowed: allTenantRoles},
		{Prefix: "/org", Allowed: allTenantRoles},

		// Platform administration: the super_admin bypass in Allows is what
		// grants access here; the empty sets lock everyone else out.
		{Prefix: "/admin", Allowed: nil},
		{Prefix: "/organizations", Allowed: nil},
		{Prefix: "/users", Allowed: nil},
		{Prefix: "/tiers", Allowed: nil},
		{Prefix: "/billing", Allowed: nil},
		{Prefix: "/audit-logs", Allowed: nil},
		{Prefix: "/settings", Allowed: nil},
	}}
}

// PublicRoutes lists prefixes reachable without a session. Matched before any
// identity resolution.
func PublicRoutes() []string {
	return []string{
		"/login",
		"/signup",
		"/forgot-password",
		"/reset-password",
		"/auth/callback",
		"/careers",
		"/portal/login",
		"/portal/callback",
		"/invites/validate",
		"/invites/accept",
		"/offers/respond",
		"/healthz",
		"/webhooks",
	}
}

// OnboardingRoutes lists the narrow allowlist for authenticated principals
// that have no tenant yet.
func OnboardingRoutes() []string {
	return []string{
		"/onboarding",
		"/logout",
	}
}

// MatchesAny reports whether path matches any of the given prefixes using the
// same exact-or-prefix rule as the table.
func MatchesAny(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if matchesPrefix(path, prefix) {
			return true
		}
	}
	return false
}
