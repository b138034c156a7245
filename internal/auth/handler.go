package auth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/settings"
	"github.com/meridian-hq/meridian-admin/internal/shared"
	"github.com/meridian-hq/meridian-admin/internal/users"
)

// SettingsReader resolves typed settings values for auth gates.
type SettingsReader interface {
	Bool(ctx context.Context, key string) bool
}

// Registrar creates user accounts on behalf of self-registration.
type Registrar interface {
	Create(ctx context.Context, input users.CreateInput) (users.User, error)
}

// MailEnqueuer queues outbound mail without blocking the request.
type MailEnqueuer interface {
	EnqueueWelcomeEmail(ctx context.Context, email, name string) error
}

// PermissionSource resolves a user's effective permission names.
type PermissionSource interface {
	Get(ctx context.Context, userID int64) ([]string, error)
}

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	sessions    *shared.SessionManager
	recorder    *audit.Recorder
	settings    SettingsReader
	registrar   Registrar
	mail        MailEnqueuer
	permissions PermissionSource
	validator   *validator.Validate
}

// HandlerParams groups the collaborators Handler needs.
type HandlerParams struct {
	Logger      *slog.Logger
	Service     *Service
	Sessions    *shared.SessionManager
	Recorder    *audit.Recorder
	Settings    SettingsReader
	Registrar   Registrar
	Mail        MailEnqueuer
	Permissions PermissionSource
}

// NewHandler constructs a Handler instance.
func NewHandler(p HandlerParams) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:      logger,
		service:     p.Service,
		sessions:    p.Sessions,
		recorder:    p.Recorder,
		settings:    p.Settings,
		registrar:   p.Registrar,
		mail:        p.Mail,
		permissions: p.Permissions,
		validator:   validator.New(),
	}
}

// MountPublicRoutes registers the unauthenticated auth endpoints.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
	r.Post("/auth/register", h.handleRegister)
}

// MountProtectedRoutes registers endpoints that need a valid session.
func (h *Handler) MountProtectedRoutes(r chi.Router) {
	r.Post("/auth/logout", h.handleLogout)
	r.Get("/auth/me", h.handleMe)
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type registerRequest struct {
	Name     string `json:"name" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type sessionUser struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}

	user, err := h.service.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		shared.RespondError(w, err)
		return
	}

	token, err := h.sessions.Issue(r.Context(), user.ID, user.Email)
	if err != nil {
		h.logger.Error("issue session", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	meta := shared.RequestMetaFromContext(r.Context())
	expiresAt := time.Now().Add(h.sessions.TTL())
	if err := h.service.RegisterSession(r.Context(), token, user.ID, expiresAt, meta.IP, meta.UserAgent); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	// Actor comes from the fresh credentials, not the (absent) request
	// principal.
	ctx := shared.ContextWithPrincipal(r.Context(), &shared.Principal{UserID: user.ID, Email: user.Email, SessionID: token})
	h.recorder.Login(ctx, user.ID)

	shared.RespondData(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expiresAt.UTC(),
		"user":       sessionUser{ID: user.ID, Name: user.Name, Email: user.Email},
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		shared.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	if err := h.sessions.Destroy(r.Context(), principal.SessionID); err != nil {
		h.logger.Warn("destroy session", slog.Any("error", err))
	}
	if err := h.service.RemoveSession(r.Context(), principal.SessionID); err != nil {
		h.logger.Warn("remove session row", slog.Any("error", err))
	}
	h.recorder.Logout(r.Context(), principal.UserID)
	shared.RespondMessage(w, http.StatusOK, "logged out")
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if !h.settings.Bool(r.Context(), settings.KeyAllowRegistration) {
		shared.RespondError(w, shared.E(shared.KindForbidden, "registration is disabled"))
		return
	}
	var req registerRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}

	user, err := h.registrar.Create(r.Context(), users.CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		IsActive: true,
	})
	if err != nil {
		if shared.KindOf(err) == shared.KindInternal {
			h.logger.Error("register user", slog.Any("error", err))
		}
		shared.RespondError(w, err)
		return
	}

	if h.settings.Bool(r.Context(), settings.KeyRequireEmailVerification) {
		if err := h.mail.EnqueueWelcomeEmail(r.Context(), user.Email, user.Name); err != nil {
			h.logger.Warn("enqueue verification mail", slog.Any("error", err))
		}
	}

	shared.RespondData(w, http.StatusCreated, sessionUser{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	principal := shared.PrincipalFromContext(r.Context())
	if principal == nil {
		shared.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	perms, err := h.permissions.Get(r.Context(), principal.UserID)
	if err != nil {
		h.logger.Error("resolve permissions", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondData(w, http.StatusOK, map[string]any{
		"user":        sessionUser{ID: principal.UserID, Email: principal.Email},
		"permissions": perms,
	})
}

func (h *Handler) decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.ValidationError(map[string]string{"body": "invalid JSON payload"})
	}
	if err := h.validator.Struct(dst); err != nil {
		fields := make(map[string]string)
		for _, fieldErr := range err.(validator.ValidationErrors) {
			fields[fieldErr.Field()] = fieldErr.Tag()
		}
		return shared.ValidationError(fields)
	}
	return nil
}
