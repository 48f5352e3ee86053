package authz

import "testing"

func TestPrimaryRolePicksHighestPriority(t *testing.T) {
	got := PrimaryRole([]RoleCode{RoleHRManager, RoleOrgAdmin})
	if got != RoleOrgAdmin {
		t.Fatalf("expected org_admin, got %s", got)
	}
}

func TestPrimaryRoleSingleAssignment(t *testing.T) {
	got := PrimaryRole([]RoleCode{RoleInterviewer})
	if got != RoleInterviewer {
		t.Fatalf("expected interviewer, got %s", got)
	}
}

func TestPrimaryRoleNoAssignments(t *testing.T) {
	if got := PrimaryRole(nil); got != RoleNone {
		t.Fatalf("expected no role, got %s", got)
	}
}

func TestParseRoleUnknownDegradesToNone(t *testing.T) {
	if got := ParseRole("owner"); got != RoleNone {
		t.Fatalf("expected no role for unknown value, got %s", got)
	}
	if got := ParseRole("org_admin"); got != RoleOrgAdmin {
		t.Fatalf("expected org_admin, got %s", got)
	}
}

func TestRoleHome(t *testing.T) {
	cases := []struct {
		role RoleCode
		want string
	}{
		{RoleSuperAdmin, "/admin"},
		{RoleOrgAdmin, "/org"},
		{RoleHRManager, "/org"},
		{RoleRecruiter, "/org"},
		{RoleHiringManager, "/org"},
		{RoleInterviewer, "/org"},
		{RoleNone, "/onboarding"},
	}
	for _, tc := range cases {
		if got := RoleHome(tc.role); got != tc.want {
			t.Fatalf("role %q: expected %s, got %s", tc.role, tc.want, got)
		}
	}
}

func TestTenantWide(t *testing.T) {
	if !RoleRecruiter.TenantWide() {
		t.Fatalf("recruiter should be tenant-wide")
	}
	if RoleHiringManager.TenantWide() {
		t.Fatalf("hiring_manager should be department-scoped")
	}
	if RoleInterviewer.TenantWide() {
		t.Fatalf("interviewer should be department-scoped")
	}
}
