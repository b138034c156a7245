package settings

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// Handler wires HTTP endpoints for application settings.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	recorder *audit.Recorder
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, store *Store, recorder *audit.Recorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, store: store, recorder: recorder}
}

// MountRoutes registers settings routes guarded per operation.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/settings", func(r chi.Router) {
		r.With(guard.RequirePermission(shared.PermSettingsView)).Get("/", h.list)
		r.With(guard.RequirePermission(shared.PermSettingsEdit)).Put("/", h.update)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	all, err := h.store.All(r.Context())
	if err != nil {
		h.logger.Error("list settings", slog.Any("error", err))
		shared.RespondError(w, err)
		return
	}
	shared.RespondData(w, http.StatusOK, map[string]any{"settings": all})
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&req); err != nil {
		shared.RespondError(w, shared.ValidationError(map[string]string{"body": "invalid JSON payload"}))
		return
	}
	if len(req) == 0 {
		shared.RespondError(w, shared.ValidationError(map[string]string{"body": "no settings provided"}))
		return
	}

	// Validate the whole batch, keys and values both, before writing
	// anything: a later failure must not leave earlier keys applied.
	fields := make(map[string]string)
	for key, value := range req {
		if err := h.store.Validate(key, value); err != nil {
			var serr *shared.Error
			if errors.As(err, &serr) && len(serr.Fields) > 0 {
				for field, msg := range serr.Fields {
					fields[field] = msg
				}
			} else {
				fields[key] = "invalid value"
			}
		}
	}
	if len(fields) > 0 {
		shared.RespondError(w, shared.ValidationError(fields))
		return
	}

	oldValues := make(map[string]any, len(req))
	newValues := make(map[string]any, len(req))
	for key, value := range req {
		oldValues[key] = h.store.Get(r.Context(), key)
		if err := h.store.Set(r.Context(), key, value); err != nil {
			if shared.KindOf(err) == shared.KindInternal {
				h.logger.Error("update setting", slog.String("key", key), slog.Any("error", err))
			}
			shared.RespondError(w, err)
			return
		}
		newValues[key] = value
	}
	h.recorder.Updated(r.Context(), "settings", 0, oldValues, newValues)

	all, err := h.store.All(r.Context())
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	shared.RespondData(w, http.StatusOK, map[string]any{"settings": all})
}
