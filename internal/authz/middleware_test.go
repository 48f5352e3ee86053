package authz

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

func gateRequest(principal uuid.UUID, path string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if principal != uuid.Nil {
		sess := &shared.Session{ID: "sess-1"}
		sess.SetPrincipal(principal.String())
		req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func newGate(store LookupStore, cookie *RoleCookie) Middleware {
	return Middleware{
		Lookup:     NewLookup(store, nil, nil, time.Second),
		Table:      DefaultTable(),
		Public:     PublicRoutes(),
		Onboarding: OnboardingRoutes(),
		Cookie:     cookie,
	}
}

func TestDecidePublicRouteAnonymous(t *testing.T) {
	gate := newGate(&stubStore{}, nil)

	d := gate.Decide(gateRequest(uuid.Nil, "/login"))
	if d.Outcome != OutcomeAllow {
		t.Fatalf("public route must be allowed, got %s", d.Outcome)
	}
	if d.Grant.Authenticated() {
		t.Fatalf("public route decision must not carry a grant")
	}
}

func TestDecideAnonymousRedirectsToLogin(t *testing.T) {
	gate := newGate(&stubStore{}, nil)

	d := gate.Decide(gateRequest(uuid.Nil, "/org/jobs"))
	if d.Outcome != OutcomeRedirectLogin || d.Location != "/login" {
		t.Fatalf("expected login redirect, got %s %s", d.Outcome, d.Location)
	}
}

func TestDecideRoleDeniedRedirectsToRoleHome(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments:   []RoleAssignment{{PrincipalID: principal, TenantID: tenant, Role: RoleInterviewer}},
	}
	gate := newGate(store, nil)

	d := gate.Decide(gateRequest(principal, "/org/settings"))
	if d.Outcome != OutcomeRedirectRoleHome || d.Location != "/org" {
		t.Fatalf("expected redirect to /org, got %s %s", d.Outcome, d.Location)
	}

	allowed := gate.Decide(gateRequest(principal, "/org/interviews"))
	if allowed.Outcome != OutcomeAllow {
		t.Fatalf("interviewer must reach interviews, got %s", allowed.Outcome)
	}
	if allowed.Grant.PrimaryRole != RoleInterviewer {
		t.Fatalf("grant must be attached on allow")
	}
}

func TestDecideNoTenantGoesToOnboarding(t *testing.T) {
	principal := uuid.New()
	gate := newGate(&stubStore{}, nil)

	d := gate.Decide(gateRequest(principal, "/org/jobs"))
	if d.Outcome != OutcomeRedirectRoleHome || d.Location != "/onboarding" {
		t.Fatalf("tenantless principal must land on onboarding, got %s %s", d.Outcome, d.Location)
	}

	allowed := gate.Decide(gateRequest(principal, "/onboarding"))
	if allowed.Outcome != OutcomeAllow {
		t.Fatalf("onboarding allowlist must admit tenantless principals")
	}
	logout := gate.Decide(gateRequest(principal, "/logout"))
	if logout.Outcome != OutcomeAllow {
		t.Fatalf("logout must stay reachable without a tenant")
	}
}

func TestDecideSuperAdmin(t *testing.T) {
	principal := uuid.New()
	gate := newGate(&stubStore{isSuper: true}, nil)

	d := gate.Decide(gateRequest(principal, "/organizations/some-tenant"))
	if d.Outcome != OutcomeAllow {
		t.Fatalf("super_admin must reach admin surface, got %s", d.Outcome)
	}
}

func TestDecideLookupFailureFailsClosed(t *testing.T) {
	principal := uuid.New()
	gate := newGate(&stubStore{err: context.DeadlineExceeded}, nil)

	// Fail-closed: authenticated but roleless, so the tenantless branch sends
	// the principal to onboarding instead of into a permissioned area.
	d := gate.Decide(gateRequest(principal, "/org/settings"))
	if d.Outcome != OutcomeRedirectRoleHome || d.Location != "/onboarding" {
		t.Fatalf("lookup failure must not grant access, got %s %s", d.Outcome, d.Location)
	}
}

func TestDecideCookieFastPath(t *testing.T) {
	principal := uuid.New()
	rc := NewRoleCookie("secret", 15*time.Minute, false)
	store := &stubStore{}
	gate := newGate(store, rc)

	cookie := issueCookie(t, rc, CachedGrant{PrincipalID: principal, Role: RoleRecruiter, TenantSlug: "acme"})

	d := gate.Decide(gateRequest(principal, "/org/candidates", cookie))
	if d.Outcome != OutcomeAllow {
		t.Fatalf("cookie-backed recruiter must reach candidates, got %s", d.Outcome)
	}
	if store.membershipCalls != 0 {
		t.Fatalf("cookie hit must not query the store")
	}

	// Same request with a cookie minted for another account falls back to
	// the slow path, which resolves no membership at all.
	other := uuid.New()
	fallback := gate.Decide(gateRequest(other, "/org/candidates", cookie))
	if fallback.Outcome != OutcomeRedirectRoleHome {
		t.Fatalf("foreign cookie must fall back to the lookup, got %s", fallback.Outcome)
	}
	if store.membershipCalls == 0 {
		t.Fatalf("fallback must consult the store")
	}
}

func TestDecideIdempotent(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments:   []RoleAssignment{{PrincipalID: principal, TenantID: tenant, Role: RoleOrgAdmin}},
	}
	gate := newGate(store, nil)

	first := gate.Decide(gateRequest(principal, "/org/settings"))
	second := gate.Decide(gateRequest(principal, "/org/settings"))
	if first.Outcome != second.Outcome || first.Location != second.Location {
		t.Fatalf("same request state must produce the same decision")
	}
}

func TestGateAllowAttachesGrantAndIssuesCookie(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments:   []RoleAssignment{{PrincipalID: principal, TenantID: tenant, Role: RoleOrgAdmin}},
	}
	rc := NewRoleCookie("secret", 15*time.Minute, false)
	gate := newGate(store, rc)

	var seen Grant
	var sawGrant bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, sawGrant = GrantFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	gate.Gate(next).ServeHTTP(rec, gateRequest(principal, "/org/settings"))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !sawGrant || seen.PrimaryRole != RoleOrgAdmin || seen.TenantID != tenant {
		t.Fatalf("expected grant in handler context, got %+v", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != RoleCookieName {
		t.Fatalf("expected role cache cookie to be issued")
	}
}

func TestGateRedirects(t *testing.T) {
	gate := newGate(&stubStore{}, nil)

	rec := httptest.NewRecorder()
	gate.Gate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler must not run on redirect")
	})).ServeHTTP(rec, gateRequest(uuid.Nil, "/org/jobs"))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Fatalf("expected /login, got %s", loc)
	}
}

func TestDecideClosedTableKeepsSignOutReachable(t *testing.T) {
	principal := uuid.New()
	tenant := uuid.New()
	store := &stubStore{
		membership:    Membership{PrincipalID: principal, TenantID: tenant, TenantSlug: "acme"},
		hasMembership: true,
		assignments:   []RoleAssignment{{PrincipalID: principal, TenantID: tenant, Role: RoleRecruiter}},
	}
	gate := newGate(store, nil)
	gate.Table.DefaultDeny = true

	for _, path := range []string{"/logout", "/"} {
		d := gate.Decide(gateRequest(principal, path))
		if d.Outcome != OutcomeAllow {
			t.Fatalf("%s must stay reachable under a closed table, got %s", path, d.Outcome)
		}
	}

	d := gate.Decide(gateRequest(principal, "/uncharted"))
	if d.Outcome != OutcomeRedirectRoleHome || d.Location != "/org" {
		t.Fatalf("untabled path must still be denied, got %s %s", d.Outcome, d.Location)
	}
}
