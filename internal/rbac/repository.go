package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryPort defines the lookups the resolver and cache need.
type RepositoryPort interface {
	// UserRoleGrants loads all roles attached to a user with their
	// permission names eagerly fetched.
	UserRoleGrants(ctx context.Context, userID int64) ([]RoleGrant, error)
	// RoleUserIDs lists the ids of users currently holding a role.
	RoleUserIDs(ctx context.Context, roleID int64) ([]int64, error)
	// ListPermissions returns the full permission vocabulary ordered by
	// module then name.
	ListPermissions(ctx context.Context) ([]Permission, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UserRoleGrants loads roles with permissions for the given user.
func (r *Repository) UserRoleGrants(ctx context.Context, userID int64) ([]RoleGrant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ro.id, ro.name, p.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		LEFT JOIN role_permissions rp ON rp.role_id = ro.id
		LEFT JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
		ORDER BY ro.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var grants []RoleGrant
	index := make(map[int64]int)
	for rows.Next() {
		var (
			roleID   int64
			roleName string
			permName *string
		)
		if err := rows.Scan(&roleID, &roleName, &permName); err != nil {
			return nil, err
		}
		pos, ok := index[roleID]
		if !ok {
			grants = append(grants, RoleGrant{RoleID: roleID, RoleName: roleName})
			pos = len(grants) - 1
			index[roleID] = pos
		}
		if permName != nil {
			grants[pos].Permissions = append(grants[pos].Permissions, *permName)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grants, nil
}

// RoleUserIDs lists user ids currently attached to the role.
func (r *Repository) RoleUserIDs(ctx context.Context, roleID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM user_roles WHERE role_id = $1 ORDER BY user_id`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListPermissions returns all permissions ordered by module then name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, module FROM permissions ORDER BY module, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Module); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return perms, nil
}

var _ RepositoryPort = (*Repository)(nil)
