package tenancy

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/platform/httpx"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// SessionVerifier is the strong identity tier: a source-of-truth session
// check required before the elevated writes in this package. The cheap
// session read that gated the route is not sufficient for a mutation that
// creates a tenant or changes a role.
type SessionVerifier interface {
	VerifySessionID(ctx context.Context, sessionID string) error
}

// Handler wires tenant onboarding, team role management, and the platform
// organizations listing.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lookup    *authz.Lookup
	verifier  SessionVerifier
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lookup *authz.Lookup, verifier SessionVerifier) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		lookup:    lookup,
		verifier:  verifier,
		validator: validator.New(),
	}
}

// MountOnboardingRoutes registers the onboarding surface.
func (h *Handler) MountOnboardingRoutes(r chi.Router) {
	r.Post("/organization", h.handleOnboard)
}

// MountTeamRoutes registers the role management surface under /org/team.
func (h *Handler) MountTeamRoutes(r chi.Router) {
	r.Post("/roles", h.handleGrant)
	r.Delete("/roles/{principalID}", h.handleRevoke)
}

// MountAdminRoutes registers the platform-only organizations listing.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.handleListOrganizations)
}

type onboardForm struct {
	Name string `validate:"required,min=2,max=120"`
}

func (h *Handler) handleOnboard(w http.ResponseWriter, r *http.Request) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok || !grant.Authenticated() {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	if !h.verifyStrong(w, r) {
		return
	}
	if grant = h.lookup.EnsureTenant(r.Context(), grant); grant.HasTenant() {
		// Already onboarded; nothing to create.
		http.Redirect(w, r, authz.RoleHome(grant.PrimaryRole), http.StatusSeeOther)
		return
	}

	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := onboardForm{Name: r.PostFormValue("name")}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "organization name is required")
		return
	}

	if _, err := h.service.Onboard(r.Context(), grant.PrincipalID, form.Name); err != nil {
		h.logger.Error("onboard tenant", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	http.Redirect(w, r, "/org", http.StatusSeeOther)
}

type grantForm struct {
	PrincipalID string `validate:"required,uuid4"`
	Role        string `validate:"required"`
}

func (h *Handler) handleGrant(w http.ResponseWriter, r *http.Request) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	if !h.verifyStrong(w, r) {
		return
	}
	grant = h.lookup.EnsureTenant(r.Context(), grant)

	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := grantForm{
		PrincipalID: r.PostFormValue("principal_id"),
		Role:        r.PostFormValue("role"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "principal and role are required")
		return
	}
	principalID, err := uuid.Parse(form.PrincipalID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad principal id")
		return
	}

	var departmentIDs []uuid.UUID
	for _, raw := range r.PostForm["department_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad department id")
			return
		}
		departmentIDs = append(departmentIDs, id)
	}

	if err := h.service.Grant(r.Context(), grant, principalID, authz.ParseRole(form.Role), departmentIDs); err != nil {
		h.logger.Error("grant role", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role could not be granted")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	if !h.verifyStrong(w, r) {
		return
	}
	grant = h.lookup.EnsureTenant(r.Context(), grant)

	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad principal id")
		return
	}
	if err := h.service.Revoke(r.Context(), grant, principalID); err != nil {
		h.logger.Error("revoke role", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type organizationView struct {
	ID     uuid.UUID `json:"id"`
	Slug   string    `json:"slug"`
	Name   string    `json:"name"`
	Status string    `json:"subscription_status"`
	Since  time.Time `json:"created_at"`
}

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.service.ListOrganizations(r.Context())
	if err != nil {
		h.logger.Error("list organizations", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]organizationView, 0, len(orgs))
	for _, org := range orgs {
		views = append(views, organizationView{
			ID:     org.ID,
			Slug:   org.Slug,
			Name:   org.Name,
			Status: org.SubscriptionStatus,
			Since:  org.CreatedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

// verifyStrong runs the source-of-truth session check. Failure invalidates
// the browser session and sends the user back through login.
func (h *Handler) verifyStrong(w http.ResponseWriter, r *http.Request) bool {
	if h.verifier == nil {
		return true
	}
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return false
	}
	if err := h.verifier.VerifySessionID(r.Context(), sess.ID); err != nil {
		if !errors.Is(err, shared.ErrSessionExpired) {
			h.logger.Warn("verify session", slog.Any("error", err))
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return false
	}
	return true
}
