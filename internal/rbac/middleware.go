package rbac

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// Middleware guards HTTP routes with declared permission strings. Each
// protected route names exactly one required permission; services behind
// the guard never re-check permissions themselves.
type Middleware struct {
	Cache  *PermissionCache
	Logger *slog.Logger
}

// RequirePermission rejects unauthenticated requests with 401 and
// requests lacking the permission with 403. An empty permission string
// means "no permission required" and passes through.
func (m Middleware) RequirePermission(perm string) func(http.Handler) http.Handler {
	return m.RequireAny(perm)
}

// RequireAny passes when the principal holds at least one of the
// required permissions. An empty list always passes.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				shared.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			granted, err := m.Cache.Get(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require any", slog.Any("error", err))
				}
				shared.RespondError(w, err)
				return
			}
			if ContainsAny(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			shared.RespondError(w, shared.ErrForbidden)
		})
	}
}

// RequireAll passes only when the principal holds every required
// permission. An empty list always passes.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(normalized) == 0 {
				next.ServeHTTP(w, r)
				return
			}
			principal := shared.PrincipalFromContext(r.Context())
			if principal == nil {
				shared.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			granted, err := m.Cache.Get(r.Context(), principal.UserID)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("rbac require all", slog.Any("error", err))
				}
				shared.RespondError(w, err)
				return
			}
			if ContainsAll(granted, normalized) {
				next.ServeHTTP(w, r)
				return
			}
			shared.RespondError(w, shared.ErrForbidden)
		})
	}
}

func normalizePermissions(perms []string) []string {
	unique := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		p = strings.TrimSpace(strings.ToLower(p))
		if p == "" {
			continue
		}
		unique[p] = struct{}{}
	}
	normalized := make([]string, 0, len(unique))
	for p := range unique {
		normalized = append(normalized, p)
	}
	return normalized
}
