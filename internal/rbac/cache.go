package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/meridian-hq/meridian-admin/internal/cache"
)

// PermissionTTL bounds the staleness window of cached permission sets.
const PermissionTTL = time.Hour

// PermissionCache wraps the Resolver with a per-user TTL cache.
//
// Invalidation is explicit and runs after the transaction that changed
// role membership or role permissions has committed. The window between
// commit and eviction is accepted; the TTL bounds it in the worst case.
type PermissionCache struct {
	store    cache.Store
	resolver *Resolver
	repo     RepositoryPort
	logger   *slog.Logger
}

// NewPermissionCache constructs a PermissionCache.
func NewPermissionCache(store cache.Store, resolver *Resolver, repo RepositoryPort, logger *slog.Logger) *PermissionCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PermissionCache{store: store, resolver: resolver, repo: repo, logger: logger}
}

// Get returns the cached effective permission set, resolving and storing
// it on a miss. Store failures degrade to a direct resolve.
func (c *PermissionCache) Get(ctx context.Context, userID int64) ([]string, error) {
	key := permissionKey(userID)
	payload, err := c.store.Get(ctx, key)
	if err == nil {
		var perms []string
		if err := json.Unmarshal(payload, &perms); err == nil {
			return perms, nil
		}
		c.logger.Warn("permission cache payload corrupt", slog.String("key", key))
	} else if !errors.Is(err, cache.ErrMiss) {
		c.logger.Warn("permission cache read", slog.Any("error", err))
	}

	perms, err := c.resolver.EffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(perms); err == nil {
		if err := c.store.Set(ctx, key, payload, PermissionTTL); err != nil {
			c.logger.Warn("permission cache write", slog.Any("error", err))
		}
	}
	return perms, nil
}

// Has reports whether the user's cached effective set contains name.
func (c *PermissionCache) Has(ctx context.Context, userID int64, name string) (bool, error) {
	perms, err := c.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return ContainsAny(perms, []string{name}), nil
}

// Invalidate evicts the cached set for one user.
func (c *PermissionCache) Invalidate(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, permissionKey(userID))
}

// InvalidateUsers evicts the cached sets for a snapshot of user ids.
// Callers snapshot the ids before mutating membership so users detached
// by the same operation are still evicted.
func (c *PermissionCache) InvalidateUsers(ctx context.Context, userIDs []int64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, permissionKey(id))
	}
	return c.store.Delete(ctx, keys...)
}

// InvalidateForRole looks up the role's current members and evicts each.
// This reads live membership; when the triggering operation also detaches
// users, prefer InvalidateUsers with a pre-mutation snapshot.
func (c *PermissionCache) InvalidateForRole(ctx context.Context, roleID int64) error {
	userIDs, err := c.repo.RoleUserIDs(ctx, roleID)
	if err != nil {
		return err
	}
	return c.InvalidateUsers(ctx, userIDs)
}

func permissionKey(userID int64) string {
	return "rbac:perms:" + strconv.FormatInt(userID, 10)
}
