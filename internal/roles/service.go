package roles

import (
	"context"
	"log/slog"
	"strings"

	"github.com/meridian-hq/meridian-admin/internal/audit"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// PermissionInvalidator evicts cached permission sets after membership
// or permission changes.
type PermissionInvalidator interface {
	InvalidateUsers(ctx context.Context, userIDs []int64) error
}

// Service handles role business logic. Authorization happens in the
// middleware before any of these methods run; the service never
// re-checks permissions.
type Service struct {
	repo     RepositoryPort
	cache    PermissionInvalidator
	recorder *audit.Recorder
	logger   *slog.Logger
}

// NewService builds Service instance.
func NewService(repo RepositoryPort, cache PermissionInvalidator, recorder *audit.Recorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, recorder: recorder, logger: logger}
}

// List returns all roles.
func (s *Service) List(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// Get fetches one role.
func (s *Service) Get(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// Create inserts a role and optionally attaches permissions, atomically.
// A role is never observable without its requested permissions.
func (s *Service) Create(ctx context.Context, input CreateInput) (Role, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Role{}, shared.ValidationError(map[string]string{"name": "name is required"})
	}
	if _, err := s.repo.FindByName(ctx, name); err == nil {
		return Role{}, shared.E(shared.KindDuplicateName, "a role with this name already exists")
	} else if shared.KindOf(err) != shared.KindNotFound {
		return Role{}, err
	}
	if err := s.validatePermissionIDs(ctx, input.PermissionIDs); err != nil {
		return Role{}, err
	}

	var role Role
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		created, err := tx.InsertRole(ctx, name, strings.TrimSpace(input.Description))
		if err != nil {
			return err
		}
		if len(input.PermissionIDs) > 0 {
			if err := tx.AttachPermissions(ctx, created.ID, input.PermissionIDs); err != nil {
				return err
			}
		}
		role = created
		return nil
	})
	if err != nil {
		return Role{}, err
	}

	s.recorder.Created(ctx, "roles", role.ID, map[string]any{
		"name":           role.Name,
		"description":    role.Description,
		"permission_ids": input.PermissionIDs,
	})
	return role, nil
}

// Update applies a partial patch. Renames re-check name uniqueness
// excluding the role itself. System roles are not special-cased here;
// the controller layer is expected to block edits to them.
func (s *Service) Update(ctx context.Context, id int64, patch UpdateInput) (Role, error) {
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}

	name := current.Name
	if patch.Name != nil {
		name = strings.TrimSpace(*patch.Name)
		if name == "" {
			return Role{}, shared.ValidationError(map[string]string{"name": "name is required"})
		}
		if name != current.Name {
			if existing, err := s.repo.FindByName(ctx, name); err == nil && existing.ID != id {
				return Role{}, shared.E(shared.KindDuplicateName, "a role with this name already exists")
			} else if err != nil && shared.KindOf(err) != shared.KindNotFound {
				return Role{}, err
			}
		}
	}
	description := current.Description
	if patch.Description != nil {
		description = strings.TrimSpace(*patch.Description)
	}

	var updated Role
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		role, err := tx.UpdateRole(ctx, id, name, description)
		if err != nil {
			return err
		}
		updated = role
		return nil
	})
	if err != nil {
		return Role{}, err
	}

	s.recorder.Updated(ctx, "roles", id,
		map[string]any{"name": current.Name, "description": current.Description},
		map[string]any{"name": updated.Name, "description": updated.Description},
	)
	return updated, nil
}

// Delete removes an unattached, non-system role. Permission
// associations go first, then the role, in one transaction.
func (s *Service) Delete(ctx context.Context, id int64) error {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystem {
		return shared.ValidationError(map[string]string{"role": "system roles cannot be deleted"})
	}
	count, err := s.repo.CountRoleUsers(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return shared.E(shared.KindHasAssignedUsers, "role still has assigned users")
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		if err := tx.DeleteRolePermissions(ctx, id); err != nil {
			return err
		}
		return tx.DeleteRole(ctx, id)
	})
	if err != nil {
		return err
	}

	s.recorder.Deleted(ctx, "roles", id, map[string]any{
		"name":        role.Name,
		"description": role.Description,
	})
	return nil
}

// AssignPermissions replaces the role's permission set with exactly the
// given ids (sync, not merge). Member user ids are snapshotted before
// the mutation so users detached concurrently by the same operation are
// still invalidated afterwards.
func (s *Service) AssignPermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	role, err := s.repo.GetRole(ctx, roleID)
	if err != nil {
		return err
	}
	if err := s.validatePermissionIDs(ctx, permissionIDs); err != nil {
		return err
	}

	members, err := s.repo.RoleUserIDs(ctx, roleID)
	if err != nil {
		return err
	}
	currentIDs, err := s.repo.RolePermissionIDs(ctx, roleID)
	if err != nil {
		return err
	}

	existing := make(map[int64]struct{}, len(currentIDs))
	for _, id := range currentIDs {
		existing[id] = struct{}{}
	}
	keep := make(map[int64]struct{}, len(permissionIDs))
	var toAttach []int64
	for _, id := range permissionIDs {
		keep[id] = struct{}{}
		if _, ok := existing[id]; !ok {
			toAttach = append(toAttach, id)
		}
	}
	var toDetach []int64
	for _, id := range currentIDs {
		if _, ok := keep[id]; !ok {
			toDetach = append(toDetach, id)
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxPort) error {
		if err := tx.AttachPermissions(ctx, roleID, toAttach); err != nil {
			return err
		}
		return tx.DetachPermissions(ctx, roleID, toDetach)
	})
	if err != nil {
		return err
	}

	// Eviction runs after commit; the TTL bounds the brief window in
	// which a concurrent request may still read the old set.
	if err := s.cache.InvalidateUsers(ctx, members); err != nil {
		s.logger.Warn("invalidate role members", slog.Int64("role_id", roleID), slog.Any("error", err))
	}

	s.recorder.Updated(ctx, "roles", roleID,
		map[string]any{"name": role.Name, "permission_ids": currentIDs},
		map[string]any{"name": role.Name, "permission_ids": permissionIDs},
	)
	return nil
}

func (s *Service) validatePermissionIDs(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.repo.MissingPermissionIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return shared.ReferenceError("unknown permission ids", missing)
	}
	return nil
}
