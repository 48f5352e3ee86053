package users

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/platform/httpx"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
	"github.com/talentgrid-hq/talentgrid/internal/tenancy"
)

// Handler serves the tenant member directory under /org/team.
type Handler struct {
	logger  *slog.Logger
	service *Service
	lookup  *authz.Lookup
	pool    *pgxpool.Pool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lookup *authz.Lookup, pool *pgxpool.Pool) *Handler {
	return &Handler{logger: logger, service: service, lookup: lookup, pool: pool}
}

// MountRoutes registers directory routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleDirectory)
	r.Get("/members/{principalID}", h.handleMember)
}

type memberView struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Departments []string  `json:"departments,omitempty"`
	JoinedAt    time.Time `json:"joined_at"`
}

func (h *Handler) handleDirectory(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.scopedRepo(w, r)
	if !ok {
		return
	}
	directory, err := h.service.Directory(r.Context(), repo)
	if err != nil {
		h.logger.Error("member directory", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	views := make([]memberView, 0, len(directory.Members))
	for _, m := range directory.Members {
		view := memberView{
			ID:       m.PrincipalID,
			Email:    m.Email,
			Name:     m.Name,
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt,
		}
		for _, id := range m.DepartmentIDs {
			if name, found := directory.Departments[id]; found {
				view.Departments = append(view.Departments, name)
			}
		}
		views = append(views, view)
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) handleMember(w http.ResponseWriter, r *http.Request) {
	repo, ok := h.scopedRepo(w, r)
	if !ok {
		return
	}
	principalID, err := uuid.Parse(chi.URLParam(r, "principalID"))
	if err != nil {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "")
		return
	}
	member, err := repo.MemberByID(r.Context(), principalID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("member by id", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, memberView{
		ID:       member.PrincipalID,
		Email:    member.Email,
		Name:     member.Name,
		Role:     string(member.Role),
		JoinedAt: member.JoinedAt,
	})
}

// scopedRepo builds the per-request tenant-scoped repository from the grant.
func (h *Handler) scopedRepo(w http.ResponseWriter, r *http.Request) (*Repository, bool) {
	grant, ok := authz.GrantFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return nil, false
	}
	grant = h.lookup.EnsureTenant(r.Context(), grant)
	scope, err := tenancy.ScopedFor(h.pool, grant.TenantID)
	if err != nil {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "")
		return nil, false
	}
	return NewRepository(scope), true
}
