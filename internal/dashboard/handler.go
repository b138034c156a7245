// Package dashboard serves the admin overview aggregation.
package dashboard

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/roles"
	"github.com/meridian-hq/meridian-admin/internal/shared"
	"github.com/meridian-hq/meridian-admin/internal/users"
)

const recentActivityLimit = 10

// UserCounter counts live user accounts.
type UserCounter interface {
	CountUsers(ctx context.Context, filters users.ListFilters) (int, error)
}

// RoleLister lists roles with their user counts.
type RoleLister interface {
	ListRoles(ctx context.Context) ([]roles.Role, error)
}

// ActivityReader fetches recent audit rows.
type ActivityReader interface {
	ListEntries(ctx context.Context, params audit.ListParams) ([]audit.Row, error)
}

// Overview is the aggregated dashboard payload.
type Overview struct {
	TotalUsers     int          `json:"total_users"`
	TotalRoles     int          `json:"total_roles"`
	Roles          []roles.Role `json:"roles"`
	RecentActivity []audit.Row  `json:"recent_activity"`
}

// Handler serves the overview endpoint.
type Handler struct {
	logger   *slog.Logger
	users    UserCounter
	roles    RoleLister
	activity ActivityReader
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, userCounter UserCounter, roleLister RoleLister, activity ActivityReader) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, users: userCounter, roles: roleLister, activity: activity}
}

// MountRoutes registers the overview route.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.RequirePermission(shared.PermDashboardView)).Get("/dashboard", h.overview)
}

// overview fans the three reads out concurrently; the slowest one
// bounds the response time.
func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	var out Overview
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(func() error {
		count, err := h.users.CountUsers(ctx, users.ListFilters{})
		if err != nil {
			return err
		}
		out.TotalUsers = count
		return nil
	})
	g.Go(func() error {
		list, err := h.roles.ListRoles(ctx)
		if err != nil {
			return err
		}
		out.Roles = list
		out.TotalRoles = len(list)
		return nil
	})
	g.Go(func() error {
		rows, err := h.activity.ListEntries(ctx, audit.ListParams{Limit: recentActivityLimit})
		if err != nil {
			return err
		}
		out.RecentActivity = rows
		return nil
	})

	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard overview", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondData(w, http.StatusOK, out)
}
