package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/talentgrid-hq/talentgrid/internal/auth"
	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/invites"
	"github.com/talentgrid-hq/talentgrid/internal/observability"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
	"github.com/talentgrid-hq/talentgrid/internal/users"
	"github.com/talentgrid-hq/talentgrid/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Authz          authz.Middleware
	AuthHandler    *auth.Handler
	TenancyHandler *tenancy.Handler
	UsersHandler   *users.Handler
	InvitesHandler *invites.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// NewRouter constructs the chi.Router with TalentGrid defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	// Infra endpoints ride through the gate on the public allowlist.
	gate := params.Authz
	gate.Public = append(gate.Public, "/metrics", "/jobs")
	r.Use(gate.Gate)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		grant, ok := authz.GrantFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		http.Redirect(w, r, authz.RoleHome(grant.PrimaryRole), http.StatusSeeOther)
	})

	params.AuthHandler.MountRoutes(r)

	r.Route("/invites", params.InvitesHandler.MountPublicRoutes)

	r.Route("/onboarding", params.TenancyHandler.MountOnboardingRoutes)

	r.Route("/org/team", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r)
		params.TenancyHandler.MountTeamRoutes(r)
		params.InvitesHandler.MountTeamRoutes(r)
	})

	r.Route("/organizations", params.TenancyHandler.MountAdminRoutes)

	r.Route("/jobs", params.JobHandler.MountRoutes)

	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
