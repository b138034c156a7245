package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	audithttp "github.com/meridian-hq/meridian-admin/internal/audit/http"
	"github.com/meridian-hq/meridian-admin/internal/auth"
	"github.com/meridian-hq/meridian-admin/internal/dashboard"
	"github.com/meridian-hq/meridian-admin/internal/observability"
	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/roles"
	"github.com/meridian-hq/meridian-admin/internal/settings"
	"github.com/meridian-hq/meridian-admin/internal/shared"
	"github.com/meridian-hq/meridian-admin/internal/users"
	"github.com/meridian-hq/meridian-admin/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	RBACMiddleware rbac.Middleware

	AuthHandler        *auth.Handler
	UsersHandler       *users.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *rbac.PermissionsHandler
	AuditHandler       *audithttp.Handler
	SettingsHandler    *settings.Handler
	DashboardHandler   *dashboard.Handler
	JobHandler         *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with platform defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(RequireSession)

		params.AuthHandler.MountProtectedRoutes(r)
		params.DashboardHandler.MountRoutes(r, params.RBACMiddleware)
		params.UsersHandler.MountRoutes(r, params.RBACMiddleware)
		params.RolesHandler.MountRoutes(r, params.RBACMiddleware)
		r.Route("/permissions", func(r chi.Router) {
			params.PermissionsHandler.MountRoutes(r)
		})
		params.AuditHandler.MountRoutes(r, params.RBACMiddleware)
		params.SettingsHandler.MountRoutes(r, params.RBACMiddleware)
	})

	if params.JobHandler != nil {
		r.Route("/jobs", func(r chi.Router) {
			params.JobHandler.MountRoutes(r)
		})
	}

	return r
}
