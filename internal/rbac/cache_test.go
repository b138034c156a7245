package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-hq/meridian-admin/internal/cache"
)

func newTestPermissionCache(t *testing.T, repo RepositoryPort) (*PermissionCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store := cache.NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	resolver := NewResolver(repo)
	return NewPermissionCache(store, resolver, repo, nil), mr
}

func TestPermissionCacheResolvesAndCaches(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view"}}}
	pc, _ := newTestPermissionCache(t, repo)
	ctx := context.Background()

	perms, err := pc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(perms) != 1 || perms[0] != "users.view" {
		t.Fatalf("unexpected set: %v", perms)
	}

	// Subsequent reads serve the cached set even after the source changes.
	repo.grants[1] = nil
	perms, err = pc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if len(perms) != 1 {
		t.Fatalf("expected cached set, got %v", perms)
	}
}

func TestPermissionCacheTTLExpiry(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view"}}}
	pc, mr := newTestPermissionCache(t, repo)
	ctx := context.Background()

	if _, err := pc.Get(ctx, 1); err != nil {
		t.Fatalf("get: %v", err)
	}
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "users.edit"}}}

	mr.FastForward(PermissionTTL + time.Minute)
	perms, err := pc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get after ttl: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected re-resolved set after ttl, got %v", perms)
	}
}

func TestPermissionCacheInvalidate(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view"}}}
	pc, _ := newTestPermissionCache(t, repo)
	ctx := context.Background()

	if _, err := pc.Get(ctx, 1); err != nil {
		t.Fatalf("get: %v", err)
	}
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "audit.view"}}}

	if err := pc.Invalidate(ctx, 1); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	perms, err := pc.Get(ctx, 1)
	if err != nil {
		t.Fatalf("get after invalidate: %v", err)
	}
	if len(perms) != 2 {
		t.Fatalf("expected fresh set, got %v", perms)
	}
}

func TestPermissionCacheInvalidateForRoleFansOut(t *testing.T) {
	repo := newMemoryRBACRepo()
	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view"}}}
	repo.grants[2] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view"}}}
	repo.users[10] = []int64{1, 2}
	pc, _ := newTestPermissionCache(t, repo)
	ctx := context.Background()

	if _, err := pc.Get(ctx, 1); err != nil {
		t.Fatalf("get u1: %v", err)
	}
	if _, err := pc.Get(ctx, 2); err != nil {
		t.Fatalf("get u2: %v", err)
	}

	repo.grants[1] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "users.edit"}}}
	repo.grants[2] = []RoleGrant{{RoleID: 10, RoleName: "editor", Permissions: []string{"users.view", "users.edit"}}}

	if err := pc.InvalidateForRole(ctx, 10); err != nil {
		t.Fatalf("invalidate for role: %v", err)
	}
	for _, userID := range []int64{1, 2} {
		perms, err := pc.Get(ctx, userID)
		if err != nil {
			t.Fatalf("get user %d: %v", userID, err)
		}
		if len(perms) != 2 {
			t.Fatalf("expected user %d to observe new set, got %v", userID, perms)
		}
	}
}
