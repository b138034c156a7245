package users

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

// Handler wires HTTP endpoints for user management.
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

// MountRoutes registers user routes guarded per operation.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.Route("/users", func(r chi.Router) {
		r.With(guard.RequirePermission(shared.PermUsersView)).Get("/", h.list)
		r.With(guard.RequirePermission(shared.PermUsersView)).Get("/{id}", h.get)
		r.With(guard.RequirePermission(shared.PermUsersCreate)).Post("/", h.create)
		r.With(guard.RequirePermission(shared.PermUsersEdit)).Put("/{id}", h.update)
		r.With(guard.RequirePermission(shared.PermUsersDelete)).Delete("/{id}", h.remove)
	})
}

type createUserRequest struct {
	Name     string  `json:"name" validate:"required,max=150"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Avatar   string  `json:"avatar" validate:"omitempty,max=500"`
	IsActive *bool   `json:"is_active"`
	RoleIDs  []int64 `json:"role_ids"`
}

type updateUserRequest struct {
	Name     *string  `json:"name" validate:"omitempty,max=150"`
	Email    *string  `json:"email" validate:"omitempty,email"`
	Password *string  `json:"password" validate:"omitempty,min=8"`
	Avatar   *string  `json:"avatar" validate:"omitempty,max=500"`
	IsActive *bool    `json:"is_active"`
	RoleIDs  *[]int64 `json:"role_ids"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Search: q.Get("search")}
	if raw := q.Get("role_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			shared.RespondError(w, shared.ValidationError(map[string]string{"role_id": "must be an integer"}))
			return
		}
		filters.RoleID = &id
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.respondErr(w, "list users", err)
		return
	}
	shared.RespondData(w, http.StatusOK, result)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, "get user", err)
		return
	}
	shared.RespondData(w, http.StatusOK, user)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if fields := h.validateStruct(req); len(fields) > 0 {
		shared.RespondError(w, shared.ValidationError(fields))
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	user, err := h.service.Create(r.Context(), CreateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
		IsActive: isActive,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		h.respondErr(w, "create user", err)
		return
	}
	shared.RespondData(w, http.StatusCreated, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		shared.RespondError(w, err)
		return
	}
	if fields := h.validateStruct(req); len(fields) > 0 {
		shared.RespondError(w, shared.ValidationError(fields))
		return
	}
	user, err := h.service.Update(r.Context(), id, UpdateInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Avatar:   req.Avatar,
		IsActive: req.IsActive,
		RoleIDs:  req.RoleIDs,
	})
	if err != nil {
		h.respondErr(w, "update user", err)
		return
	}
	shared.RespondData(w, http.StatusOK, user)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		shared.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondErr(w, "delete user", err)
		return
	}
	shared.RespondMessage(w, http.StatusOK, "user deleted")
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
