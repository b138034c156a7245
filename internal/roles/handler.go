package roles

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-hq/meridian-admin/internal/rbac"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// Handler wires HTTP endpoints for role management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers role routes guarded per operation.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/roles", func(r chi.Router) {
		r.With(guard.RequirePermission(shared.PermRolesView)).Get("/", h.list)
		r.With(guard.RequirePermission(shared.PermRolesView)).Get("/{id}", h.get)
		r.With(guard.RequirePermission(shared.PermRolesCreate)).Post("/", h.create)
		r.With(guard.RequirePermission(shared.PermRolesEdit)).Put("/{id}", h.update)
		r.With(guard.RequirePermission(shared.PermRolesEdit)).Put("/{id}/permissions", h.assignPermissions)
		r.With(guard.RequirePermission(shared.PermRolesDelete)).Delete("/{id}", h.remove)
	})
}

type createRoleRequest struct {
	Name          string  `json:"name" validate:"required,max=100"`
	Description   string  `json:"description" validate:"max=500"`
	PermissionIDs []int64 `json:"permission_ids"`
}

type updateRoleRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=100"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

type assignPermissionsRequest struct {
	PermissionIDs []int64 `json:"permission_ids"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	roles, err := h.service.List(r.Context())
	if err != nil {
		h.respondErr(w, "list roles", err)
		return
	}
	shared.RespondData(w, http.StatusOK, map[string]any{"roles": roles})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	role, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get role", err)
		return
	}
	shared.RespondData(w, http.StatusOK, role)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if fields := h.validateStruct(req); len(fields) > 0 {
		shared.RespondError(w, shared.ValidationError(fields))
		return
	}
	role, err := h.service.Create(r.Context(), CreateInput{
		Name:          req.Name,
		Description:   req.Description,
		PermissionIDs: req.PermissionIDs,
	})
	if err != nil {
		h.respondErr(w, "create role", err)
		return
	}
	shared.RespondData(w, http.StatusCreated, role)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req updateRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if fields := h.validateStruct(req); len(fields) > 0 {
		shared.RespondError(w, shared.ValidationError(fields))
		return
	}
	role, err := h.service.Update(r.Context(), id, UpdateInput{Name: req.Name, Description: req.Description})
	if err != nil {
		h.respondErr(w, "update role", err)
		return
	}
	shared.RespondData(w, http.StatusOK, role)
}

func (h *Handler) assignPermissions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req assignPermissionsRequest
	if err := decodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.AssignPermissions(r.Context(), id, req.PermissionIDs); err != nil {
		h.respondErr(w, "assign role permissions", err)
		return
	}
	shared.RespondMessage(w, http.StatusOK, "role permissions updated")
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, "delete role", err)
		return
	}
	shared.RespondMessage(w, http.StatusOK, "role deleted")
}

func (h *Handler) respondErr(w http.ResponseWriter, op string, err error) {
	if shared.KindOf(err) == shared.KindInternal {
		h.logger.Error(op, slog.Any("error", err))
	}
	shared.RespondError(w, err)
}

func (h *Handler) validateStruct(req any) map[string]string {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}
	fields := make(map[string]string)
	for _, fieldErr := range err.(validator.ValidationErrors) {
		fields[fieldErr.Field()] = fieldErr.Tag()
	}
	return fields
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ValidationError(map[string]string{"id": "must be a positive integer"})
	}
	return id, nil
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return shared.ValidationError(map[string]string{"body": "invalid JSON payload"})
	}
	return nil
}
