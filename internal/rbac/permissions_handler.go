package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// PermissionsHandler serves the permission vocabulary.
type PermissionsHandler struct {
	logger *slog.Logger
	repo   RepositoryPort
	rbac   Middleware
}

// NewPermissionsHandler builds PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, repo RepositoryPort, rbac Middleware) *PermissionsHandler {
	return &PermissionsHandler{logger: logger, repo: repo, rbac: rbac}
}

// MountRoutes registers permission routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequirePermission(shared.PermPermissionsView))
		r.Get("/", h.listPermissions)
	})
}

func (h *PermissionsHandler) listPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.repo.ListPermissions(r.Context())
	if err != nil {
		h.logger.Error("list permissions", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	grouped := make(map[string][]Permission)
	for _, p := range perms {
		grouped[p.Module] = append(grouped[p.Module], p)
	}
	shared.RespondData(w, http.StatusOK, map[string]any{
		"permissions": perms,
		"modules":     grouped,
	})
}
