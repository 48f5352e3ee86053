package invites

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/platform/httpx"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
)

// Handler wires the invite endpoints: the tenant-facing issue/list surface
// under /org/team and the public validate/accept surface.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	lookup    *authz.Lookup
	pool      *pgxpool.Pool
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lookup *authz.Lookup, pool *pgxpool.Pool) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		lookup:    lookup,
		pool:      pool,
		validator: validator.New(),
	}
}

// MountTeamRoutes registers the gated invite management routes.
func (h *Handler) MountTeamRoutes(r chi.Router) {
	r.Get("/invites", h.handleList)
	r.Post("/invites", h.handleIssue)
}

// MountPublicRoutes registers the token-driven public routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/validate", h.handleValidate)
	r.Post("/accept", h.handleAccept)
}

type issueForm struct {
	Email string `validate:"required,email"`
	Role  string `validate:"required"`
}

type inviteView struct {
	ID        uuid.UUID  `json:"id"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	ExpiresAt time.Time  `json:"expires_at"`
	Accepted  *time.Time `json:"accepted_at,omitempty"`
}

func (h *Handler) handleIssue(w http.ResponseWriter, r *http.Request) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	grant = h.lookup.EnsureTenant(r.Context(), grant)

	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := issueForm{
		Email: r.PostFormValue("email"),
		Role:  r.PostFormValue("role"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and role are required")
		return
	}
	role := authz.ParseRole(form.Role)

	var departmentIDs []uuid.UUID
	for _, raw := range r.PostForm["department_id"] {
		id, err := uuid.Parse(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "bad department id")
			return
		}
		departmentIDs = append(departmentIDs, id)
	}

	invite, err := h.service.Issue(r.Context(), grant, form.Email, role, departmentIDs)
	if err != nil {
		if errors.Is(err, ErrRoleNotInvitable) {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "role cannot be granted by invite")
			return
		}
		h.logger.Error("issue invite", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusCreated, inviteView{
		ID:        invite.ID,
		Email:     invite.Email,
		Role:      string(invite.Role),
		ExpiresAt: invite.ExpiresAt,
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}
	grant = h.lookup.EnsureTenant(r.Context(), grant)
	scope, err := tenancy.ScopedFor(h.pool, grant.TenantID)
	if err != nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return
	}

	invitesList, err := h.service.List(r.Context(), scope)
	if err != nil {
		h.logger.Error("list invites", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	views := make([]inviteView, 0, len(invitesList))
	for _, invite := range invitesList {
		views = append(views, inviteView{
			ID:        invite.ID,
			Email:     invite.Email,
			Role:      string(invite.Role),
			ExpiresAt: invite.ExpiresAt,
			Accepted:  invite.AcceptedAt,
		})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	invite, err := h.service.Validate(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		// All token defects answer alike; the response never explains which
		// check failed.
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invite is not valid")
		return
	}
	httpx.JSON(w, http.StatusOK, inviteView{
		ID:        invite.ID,
		Email:     invite.Email,
		Role:      string(invite.Role),
		ExpiresAt: invite.ExpiresAt,
	})
}

func (h *Handler) handleAccept(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	token := r.PostFormValue("token")
	if token == "" {
		token = r.URL.Query().Get("token")
	}

	principalID, ok := currentPrincipal(r)
	if !ok {
		// Acceptance needs an account; send the visitor to signup with the
		// token preserved so they land back here afterwards.
		http.Redirect(w, r, "/signup?invite="+url.QueryEscape(token), http.StatusSeeOther)
		return
	}

	invite, err := h.service.Accept(r.Context(), token, principalID)
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invite is not valid")
		return
	}
	http.Redirect(w, r, authz.RoleHome(invite.Role), http.StatusSeeOther)
}

// currentPrincipal reads the cheap-tier session directly: the accept route is
// public, so the gate never attached a grant even for signed-in visitors.
func currentPrincipal(r *http.Request) (uuid.UUID, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.Principal() == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sess.Principal())
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
