package rbac

import (
	"context"
	"sort"
	"strings"
)

// Resolver computes effective permission sets. The model is purely
// additive: the effective set of a user is the union of the permissions
// of every role attached to that user, deduplicated by name. There is
// no inheritance and no negative permissions.
type Resolver struct {
	repo RepositoryPort
}

// NewResolver constructs a Resolver.
func NewResolver(repo RepositoryPort) *Resolver {
	return &Resolver{repo: repo}
}

// EffectivePermissions returns the deduplicated, sorted permission names
// for a user. A user with no roles has an empty set.
func (r *Resolver) EffectivePermissions(ctx context.Context, userID int64) ([]string, error) {
	grants, err := r.repo.UserRoleGrants(ctx, userID)
	if err != nil {
		return nil, err
	}
	unique := make(map[string]struct{})
	for _, grant := range grants {
		for _, name := range grant.Permissions {
			name = strings.TrimSpace(strings.ToLower(name))
			if name == "" {
				continue
			}
			unique[name] = struct{}{}
		}
	}
	perms := make([]string, 0, len(unique))
	for name := range unique {
		perms = append(perms, name)
	}
	sort.Strings(perms)
	return perms, nil
}

// HasPermission reports whether the user's effective set contains name.
func (r *Resolver) HasPermission(ctx context.Context, userID int64, name string) (bool, error) {
	perms, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return ContainsAny(perms, []string{name}), nil
}

// HasAnyPermission reports whether at least one required permission is
// granted. An empty requirement list means "no permission required" and
// returns true.
func (r *Resolver) HasAnyPermission(ctx context.Context, userID int64, names []string) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	perms, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return ContainsAny(perms, names), nil
}

// HasAllPermissions reports whether every required permission is granted.
// An empty requirement list returns true.
func (r *Resolver) HasAllPermissions(ctx context.Context, userID int64, names []string) (bool, error) {
	if len(names) == 0 {
		return true, nil
	}
	perms, err := r.EffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	return ContainsAll(perms, names), nil
}

// ContainsAny reports whether granted holds at least one of required.
// An empty required list is vacuously satisfied.
func ContainsAny(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := toSet(granted)
	for _, name := range required {
		if _, ok := set[normalize(name)]; ok {
			return true
		}
	}
	return false
}

// ContainsAll reports whether granted holds every entry of required.
// An empty required list is vacuously satisfied.
func ContainsAll(granted []string, required []string) bool {
	if len(required) == 0 {
		return true
	}
	set := toSet(granted)
	for _, name := range required {
		if _, ok := set[normalize(name)]; !ok {
			return false
		}
	}
	return true
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[normalize(name)] = struct{}{}
	}
	return set
}

func normalize(name string) string {
	return strings.TrimSpace(strings.ToLower(name))
}
