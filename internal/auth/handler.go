package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/talentgrid-hq/talentgrid/internal/authz"
	"github.com/talentgrid-hq/talentgrid/internal/platform/httpx"
	"github.com/talentgrid-hq/talentgrid/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows. Page rendering is
// handled elsewhere; these endpoints consume form posts and answer with
// redirects or problem documents.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	lookup         *authz.Lookup
	sessionManager *shared.SessionManager
	roleCookie     *authz.RoleCookie
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, lookup *authz.Lookup, sessions *shared.SessionManager, roleCookie *authz.RoleCookie) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		lookup:         lookup,
		sessionManager: sessions,
		roleCookie:     roleCookie,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.handleLogin)
	r.Post("/signup", h.handleSignup)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type signupForm struct {
	Email    string `validate:"required,email"`
	Name     string `validate:"required,min=2"`
	Password string `validate:"required,min=8"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := loginForm{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email and password are required")
		return
	}

	principal, err := h.service.Authenticate(r.Context(), form.Email, form.Password)
	if err != nil {
		// Credential failures all collapse to one message; nothing in the
		// response distinguishes a missing account from a wrong password.
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "invalid credentials")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	h.sessionManager.RotateID(r.Context(), sess)
	sess.SetPrincipal(principal.ID.String())

	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	// A previous account's role cookie must not survive the account switch;
	// the middleware reissues one for this principal on the next allow.
	if h.roleCookie != nil {
		h.roleCookie.Clear(w)
	}

	grant := h.lookup.Resolve(r.Context(), principal.ID)
	http.Redirect(w, r, authz.RoleHome(grant.PrimaryRole), http.StatusSeeOther)
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed form")
		return
	}
	form := signupForm{
		Email:    r.PostFormValue("email"),
		Name:     r.PostFormValue("name"),
		Password: r.PostFormValue("password"),
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email, name, and a password of at least 8 characters are required")
		return
	}

	principal, err := h.service.Register(r.Context(), form.Email, form.Name, form.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			httpx.Problem(w, http.StatusConflict, "Duplicate", "an account with this email already exists")
			return
		}
		h.logger.Error("signup", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.sessionManager.RotateID(r.Context(), sess)
	sess.SetPrincipal(principal.ID.String())
	expiresAt := time.Now().Add(h.sessionManager.TTL())
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	// Fresh accounts have no tenant; onboarding is their only destination.
	http.Redirect(w, r, "/onboarding", http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
			h.logger.Warn("remove session", slog.Any("error", err))
		}
		h.sessionManager.Destroy(sess)
	}
	if h.roleCookie != nil {
		h.roleCookie.Clear(w)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
