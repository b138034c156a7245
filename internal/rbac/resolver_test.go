package rbac

import (
	"context"
	"testing"
)

type memoryRBACRepo struct {
	grants map[int64][]RoleGrant
	users  map[int64][]int64
	perms  []Permission
}

func newMemoryRBACRepo() *memoryRBACRepo {
	return &memoryRBACRepo{
		grants: make(map[int64][]RoleGrant),
		users:  make(map[int64][]int64),
	}
}

func (r *memoryRBACRepo) UserRoleGrants(ctx context.Context, userID int64) ([]RoleGrant, error) {
	return r.grants[userID], nil
}

func (r *memoryRBACRepo) RoleUserIDs(ctx context.Context, roleID int64) ([]int64, error) {
	return r.users[roleID], nil
}

func (r *memoryRBACRepo) ListPermissions(ctx context.Context) ([]Permission, error) {
	return r.perms, nil
}

func TestEffectivePermissionsUnion(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{
		{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "users.edit"}},
		{RoleID: 11, RoleName: "auditor", Permissions: []string{"audit.view", "users.view"}},
	}
	resolver := NewResolver(repo)

	perms, err := resolver.EffectivePermissions(context.Background(), 1)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	want := []string{"audit.view", "users.edit", "users.view"}
	if len(perms) != len(want) {
		t.Fatalf("expected %d permissions, got %v", len(want), perms)
	}
	for i, name := range want {
		if perms[i] != name {
			t.Fatalf("expected %s at %d, got %v", name, i, perms)
		}
	}
}

func TestEffectivePermissionsNoRoles(t *testing.T) {
	resolver := NewResolver(newMemoryRBACRepo())

	perms, err := resolver.EffectivePermissions(context.Background(), 42)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(perms) != 0 {
		t.Fatalf("expected empty set, got %v", perms)
	}

	ok, err := resolver.HasPermission(context.Background(), 42, "users.view")
	if err != nil {
		t.Fatalf("has permission: %v", err)
	}
	if ok {
		t.Fatalf("expected false for user without roles")
	}
}

func TestEmptyRequirementListAllows(t *testing.T) {
	resolver := NewResolver(newMemoryRBACRepo())

	any, err := resolver.HasAnyPermission(context.Background(), 42, nil)
	if err != nil {
		t.Fatalf("has any: %v", err)
	}
	if !any {
		t.Fatalf("expected vacuous true for empty any-list")
	}

	all, err := resolver.HasAllPermissions(context.Background(), 42, []string{})
	if err != nil {
		t.Fatalf("has all: %v", err)
	}
	if !all {
		t.Fatalf("expected vacuous true for empty all-list")
	}
}

func TestHasAllPermissions(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{
		{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "users.edit"}},
	}
	resolver := NewResolver(repo)

	ok, err := resolver.HasAllPermissions(context.Background(), 1, []string{"users.view", "users.edit"})
	if err != nil {
		t.Fatalf("has all: %v", err)
	}
	if !ok {
		t.Fatalf("expected all granted")
	}

	ok, err = resolver.HasAllPermissions(context.Background(), 1, []string{"users.view", "users.delete"})
	if err != nil {
		t.Fatalf("has all: %v", err)
	}
	if ok {
		t.Fatalf("expected missing users.delete to fail the check")
	}
}
