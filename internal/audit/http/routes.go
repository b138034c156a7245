package audithttp

import (
	"github.com/go-chi/chi/v5"

	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// MountRoutes registers audit log routes.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(guard.RequirePermission(shared.PermAuditView))
		r.Get("/", h.list)
	})
}
