package authz

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/observability"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// Outcome is the terminal result of the authorization decision procedure.
type Outcome string

const (
	OutcomeAllow            Outcome = "allow"
	OutcomeRedirectLogin    Outcome = "redirect_login"
	OutcomeRedirectRoleHome Outcome = "redirect_role_home"
)

// Decision carries the outcome, the redirect target for the redirect
// outcomes, and the grant attached to the request on allow.
type Decision struct {
	Outcome  Outcome
	Location string
	Grant    Grant

	// cached is true when the grant came from the role cache cookie; the
	// middleware skips reissuing the cookie in that case.
	cached bool
}

// Middleware runs the authorization decision procedure on every request.
type Middleware struct {
	Lookup     *Lookup
	Table      Table
	Public     []string
	Onboarding []string
	Cookie     *RoleCookie
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Gate applies the decision procedure before forwarding to the handler.
// On allow the resolved grant is attached to the request context and the
// role cache cookie is refreshed; the redirect outcomes never reach next.
func (m Middleware) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		decision := m.Decide(r)
		m.Metrics.AuthzOutcome(string(decision.Outcome))

		switch decision.Outcome {
		case OutcomeAllow:
			if decision.Grant.Authenticated() {
				if m.Cookie != nil && !decision.cached && decision.Grant.PrimaryRole != RoleNone {
					m.Cookie.Issue(w, CachedGrant{
						PrincipalID: decision.Grant.PrincipalID,
						Role:        decision.Grant.PrimaryRole,
						TenantSlug:  decision.Grant.TenantSlug,
					})
				}
				r = r.WithContext(ContextWithGrant(r.Context(), decision.Grant))
			}
			next.ServeHTTP(w, r)
		case OutcomeRedirectLogin:
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		case OutcomeRedirectRoleHome:
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		}
	})
}

// Decide classifies the request. Pure with respect to request state: the same
// session, cookies, and path always produce the same outcome.
func (m Middleware) Decide(r *http.Request) Decision {
	path := r.URL.Path

	// Public routes skip identity resolution entirely.
	if MatchesAny(path, m.Public) {
		return Decision{Outcome: OutcomeAllow}
	}

	// Cheap identity check only: the strong session verification is reserved
	// for privileged mutations, not for route gating.
	principalID, ok := m.currentPrincipal(r)
	if !ok {
		return Decision{Outcome: OutcomeRedirectLogin, Location: "/login"}
	}

	grant, cached := m.resolveGrant(r, principalID)

	// A cookie hit implies tenant membership (the tenant slug rides in the
	// cookie), so the onboarding branch only applies to slow-path grants.
	if !cached && !grant.HasTenant() && grant.PrimaryRole != RoleSuperAdmin {
		if MatchesAny(path, m.Onboarding) {
			return Decision{Outcome: OutcomeAllow, Grant: grant}
		}
		return Decision{Outcome: OutcomeRedirectRoleHome, Location: RoleHome(RoleNone), Grant: grant}
	}

	// Sign-out, the onboarding surface, and the root redirect stay reachable
	// for every authenticated principal regardless of table posture; a closed
	// table must never trap a signed-in user.
	if path == "/" || MatchesAny(path, m.Onboarding) {
		return Decision{Outcome: OutcomeAllow, Grant: grant, cached: cached}
	}

	if m.Table.Allows(path, grant.PrimaryRole) {
		return Decision{Outcome: OutcomeAllow, Grant: grant, cached: cached}
	}
	return Decision{Outcome: OutcomeRedirectRoleHome, Location: RoleHome(grant.PrimaryRole), Grant: grant}
}

// resolveGrant consults the role cache cookie before falling back to the
// full lookup. A cookie is only honoured when its embedded principal matches
// the live session, so it never outlives an account switch. A cookie grant
// carries no tenant id; handlers that need the full context (tenant id,
// department scope) resolve it through the lookup before querying.
func (m Middleware) resolveGrant(r *http.Request, principalID uuid.UUID) (Grant, bool) {
	if m.Cookie != nil {
		if cached, ok := m.Cookie.Read(r, principalID); ok {
			m.Metrics.RoleLookup("cookie", 0)
			return Grant{
				PrincipalID: principalID,
				PrimaryRole: cached.Role,
				TenantSlug:  cached.TenantSlug,
			}, true
		}
	}
	return m.Lookup.Resolve(r.Context(), principalID), false
}

func (m Middleware) currentPrincipal(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return uuid.Nil, false
	}
	raw := sess.Principal()
	if raw == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		if m.Logger != nil {
			m.Logger.Error("parse session principal id", slog.String("value", raw))
		}
		return uuid.Nil, false
	}
	return id, true
}
