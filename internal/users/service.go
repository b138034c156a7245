package users

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PermissionInvalidator evicts one user's cached permission set.
type PermissionInvalidator interface {
	Invalidate(ctx context.Context, userID int64) error
}

// SessionRevoker purges issued tokens from the session store.
type SessionRevoker interface {
	RevokeAll(ctx context.Context, tokens []string) error
}

// Service handles user account business logic.
type Service struct {
	repo     RepositoryPort
	cache    PermissionInvalidator
	sessions SessionRevoker
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache PermissionInvalidator, sessions SessionRevoker, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, sessions: sessions, recorder: recorder, logger: logger}
}

// Get fetches one user with roles.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.GetUser(ctx, id)
}

// List returns one page of users.
func (s *Service) List(ctx context.Context, filters ListFilters) (Result, error) {
	page := filters.Page
	if page < 1 {
		page = 1
	}
	pageSize := filters.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	total, err := s.repo.CountUsers(ctx, filters)
	if err != nil {
		return Result{}, err
	}
	list, err := s.repo.ListUsers(ctx, filters, (page-1)*pageSize, pageSize)
	if err != nil {
		return Result{}, err
	}
	return Result{Users: list, Pagination: shared.NewPagination(page, pageSize, total)}, nil
}

// Create registers a user, hashing the password and attaching initial
// roles in the same transaction as the insert.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	email := strings.TrimSpace(input.Email)
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return User{}, shared.E(shared.KindDuplicateEmail, "a user with this email already exists")
	} else if shared.KindOf(err) != shared.KindNotFound {
		return User{}, err
	}
	if err := s.validateRoleIDs(ctx, input.RoleIDs); err != nil {
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	var user User
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		created, err := tx.InsertUser(ctx, strings.TrimSpace(input.Name), email, string(hash), strings.TrimSpace(input.Avatar), input.IsActive)
		if err != nil {
			return err
		}
		if len(input.RoleIDs) > 0 {
			if err := tx.AttachRoles(ctx, created.ID, input.RoleIDs); err != nil {
				return err
			}
		}
		user = created
		return nil
	})
	if err != nil {
		return User{}, err
	}

	s.recorder.Created(ctx, "users", user.ID, map[string]any{
		"name":      user.Name,
		"email":     user.Email,
		"is_active": user.IsActive,
		"role_ids":  input.RoleIDs,
	})
	return s.repo.GetUser(ctx, user.ID)
}

// Update applies a partial patch. A role id list, when present,
// replaces the membership set and evicts the user's cached permissions
// after commit.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateInput) (User, error) {
	current, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, err
	}

	next := current
	if patch.Name != nil {
		next.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Email != nil {
		email := strings.TrimSpace(*patch.Email)
		if email != current.Email {
			if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing.ID != id {
				return User{}, shared.E(shared.KindDuplicateEmail, "a user with this email already exists")
			} else if err != nil && shared.KindOf(err) != shared.KindNotFound {
				return User{}, err
			}
		}
		next.Email = email
	}
	if patch.Avatar != nil {
		next.Avatar = strings.TrimSpace(*patch.Avatar)
	}
	if patch.IsActive != nil {
		next.IsActive = *patch.IsActive
	}
	passwordChanged := false
	if patch.Password != nil && *patch.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcrypt.DefaultCost)
		if err != nil {
			return User{}, err
		}
		next.PasswordHash = string(hash)
		passwordChanged = true
	}

	var toAttach, toDetach []int64
	rolesChanged := false
	if patch.RoleIDs != nil {
		if err := s.validateRoleIDs(ctx, *patch.RoleIDs); err != nil {
			return User{}, err
		}
		currentIDs, err := s.repo.UserRoleIDs(ctx, id)
		if err != nil {
			return User{}, err
		}
		toAttach, toDetach = diffIDs(currentIDs, *patch.RoleIDs)
		rolesChanged = len(toAttach) > 0 || len(toDetach) > 0
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		if _, err := tx.UpdateUser(ctx, next); err != nil {
			return err
		}
		if patch.RoleIDs != nil {
			if err := tx.AttachRoles(ctx, id, toAttach); err != nil {
				return err
			}
			if err := tx.DetachRoles(ctx, id, toDetach); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}

	if rolesChanged {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			s.logger.Warn("invalidate user permissions", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}

	oldValues := map[string]any{"name": current.Name, "email": current.Email, "is_active": current.IsActive}
	newValues := map[string]any{"name": next.Name, "email": next.Email, "is_active": next.IsActive}
	if patch.Avatar != nil {
		oldValues["avatar"] = current.Avatar
		newValues["avatar"] = next.Avatar
	}
	if passwordChanged {
		newValues["password"] = *patch.Password
	}
	if patch.RoleIDs != nil {
		oldValues["roles"] = current.Roles
		newValues["role_ids"] = *patch.RoleIDs
	}
	s.recorder.Updated(ctx, "users", id, oldValues, newValues)

	return s.repo.GetUser(ctx, id)
}

// Delete soft-deletes the account and revokes its sessions. The row
// update and the session-row deletion share one transaction; the
// token cache purge runs best-effort after commit.
func (s *Service) Delete(ctx context.Context, id int64) error {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return err
	}

	var tokens []string
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		if err := tx.SoftDeleteUser(ctx, id); err != nil {
			return err
		}
		revoked, err := tx.DeleteUserSessions(ctx, id)
		if err != nil {
			return err
		}
		tokens = revoked
		return nil
	})
	if err != nil {
		return err
	}

	if len(tokens) > 0 {
		if err := s.sessions.RevokeAll(ctx, tokens); err != nil {
			s.logger.Warn("revoke user sessions", slog.Int64("user_id", id), slog.Any("error", err))
		}
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.Warn("invalidate user permissions", slog.Int64("user_id", id), slog.Any("error", err))
	}

	s.recorder.Deleted(ctx, "users", id, map[string]any{
		"name":  user.Name,
		"email": user.Email,
	})
	return nil
}

func (s *Service) validateRoleIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.repo.MissingRoleIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return shared.ReferenceError("unknown role ids", missing)
	}
	return nil
}

func diffIDs(current, desired []int64) (toAttach, toDetach []int64) {
	have := make(map[int64]struct{}, len(current))
	for _, id := range current {
		have[id] = struct{}{}
	}
	want := make(map[int64]struct{}, len(desired))
	for _, id := range desired {
		want[id] = struct{}{}
		if _, ok := have[id]; !ok {
			toAttach = append(toAttach, id)
		}
	}
	for _, id := range current {
		if _, ok := want[id]; !ok {
			toDetach = append(toDetach, id)
		}
	}
	return toAttach, toDetach
}
