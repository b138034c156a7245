package users

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hq/meridian-admin/internal/platform/db"
	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// RepositoryPort defines data access methods for user accounts. Reads
// exclude soft-deleted rows throughout.
type RepositoryPort interface {
	GetUser(ctx context.Context, id int64) (User, error)
	// FindByEmail performs a byte-exact email lookup.
	FindByEmail(ctx context.Context, email string) (User, error)
	ListUsers(ctx context.Context, filters ListFilters, offset, limit int) ([]User, error)
	CountUsers(ctx context.Context, filters ListFilters) (int, error)
	MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error)
	UserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	WithTx(ctx context.Context, fn func(ctx context.Context, tx TxPort) error) error
}

// TxPort groups the statements that must share one transaction.
type TxPort interface {
	InsertUser(ctx context.Context, name, email, passwordHash, avatar string, isActive bool) (User, error)
	UpdateUser(ctx context.Context, user User) (User, error)
	SoftDeleteUser(ctx context.Context, id int64) error
	AttachRoles(ctx context.Context, userID int64, roleIDs []int64) error
	DetachRoles(ctx context.Context, userID int64, roleIDs []int64) error
	// DeleteUserSessions removes the user's session rows and returns
	// the revoked tokens so the cache-side copies can be purged too.
	DeleteUserSessions(ctx context.Context, userID int64) ([]string, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `u.id, u.name, u.email, u.password_hash, u.avatar, u.is_active,
	u.email_verified_at, u.deleted_at, u.created_at, u.updated_at`

// GetUser fetches one live user with their roles.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1 AND u.deleted_at IS NULL`, id)
	user, err := scanUser(row)
	if err != nil {
		return User{}, err
	}
	if err := r.loadRoles(ctx, []*User{&user}); err != nil {
		return User{}, err
	}
	return user, nil
}

// FindByEmail fetches one live user by exact email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.email = $1 AND u.deleted_at IS NULL`, email)
	return scanUser(row)
}

// ListUsers returns one page of live users, newest first, roles eagerly
// loaded.
func (r *Repository) ListUsers(ctx context.Context, filters ListFilters, offset, limit int) ([]User, error) {
	where, args := userFilterClause(filters)
	args = append(args, limit, offset)
	query := `SELECT ` + userColumns + ` FROM users u ` + where +
		` ORDER BY u.created_at DESC, u.id DESC LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	refs := make([]*User, len(users))
	for i := range users {
		refs[i] = &users[i]
	}
	if err := r.loadRoles(ctx, refs); err != nil {
		return nil, err
	}
	return users, nil
}

// CountUsers counts live users matching the filters.
func (r *Repository) CountUsers(ctx context.Context, filters ListFilters) (int, error) {
	where, args := userFilterClause(filters)
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u `+where, args...).Scan(&count)
	return count, err
}

// MissingRoleIDs reports which of the supplied ids do not exist.
func (r *Repository) MissingRoleIDs(ctx context.Context, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT id FROM roles WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// UserRoleIDs lists the role ids currently held by the user.
func (r *Repository) UserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1 ORDER BY role_id`, userID)
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
	return ids, rows.Err()
}

// WithTx runs fn inside one database transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(ctx context.Context, tx TxPort) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (t *txRepository) InsertUser(ctx context.Context, name, email, passwordHash, avatar string, isActive bool) (User, error) {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO users (name, email, password_hash, avatar, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, name, email, password_hash, avatar, is_active, email_verified_at, deleted_at, created_at, updated_at`,
		name, email, passwordHash, avatar, isActive)
	return scanUser(row)
}

func (t *txRepository) UpdateUser(ctx context.Context, user User) (User, error) {
	row := t.tx.QueryRow(ctx, `
		UPDATE users
		SET name = $2, email = $3, password_hash = $4, avatar = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, name, email, password_hash, avatar, is_active, email_verified_at, deleted_at, created_at, updated_at`,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Avatar, user.IsActive)
	return scanUser(row)
}

func (t *txRepository) SoftDeleteUser(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (t *txRepository) AttachRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	for _, roleID := range roleIDs {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO user_roles (user_id, role_id, created_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT DO NOTHING`, userID, roleID); err != nil {
			return err
		}
	}
	return nil
}

func (t *txRepository) DetachRoles(ctx context.Context, userID int64, roleIDs []int64) error {
	if len(roleIDs) == 0 {
		return nil
	}
	_, err := t.tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = ANY($2)`, userID, roleIDs)
	return err
}

func (t *txRepository) DeleteUserSessions(ctx context.Context, userID int64) ([]string, error) {
	rows, err := t.tx.Query(ctx, `DELETE FROM sessions WHERE user_id = $1 RETURNING token`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []string
	for rows.Next() {
		var token string
		if err := rows.Scan(&token); err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *Repository) loadRoles(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}
	ids := make([]int64, len(users))
	byID := make(map[int64]*User, len(users))
	for i, user := range users {
		ids[i] = user.ID
		byID[user.ID] = user
	}
	rows, err := r.pool.Query(ctx, `
		SELECT ur.user_id, ro.id, ro.name
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ro.name`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var ref RoleRef
		if err := rows.Scan(&userID, &ref.ID, &ref.Name); err != nil {
			return err
		}
		if user, ok := byID[userID]; ok {
			user.Roles = append(user.Roles, ref)
		}
	}
	return rows.Err()
}

func userFilterClause(filters ListFilters) (string, []any) {
	clauses := []string{"u.deleted_at IS NULL"}
	var args []any
	if search := strings.TrimSpace(filters.Search); search != "" {
		args = append(args, "%"+search+"%")
		n := strconv.Itoa(len(args))
		clauses = append(clauses, "(u.name ILIKE $"+n+" OR u.email ILIKE $"+n+")")
	}
	if filters.RoleID != nil {
		args = append(args, *filters.RoleID)
		clauses = append(clauses, "EXISTS (SELECT 1 FROM user_roles ur WHERE ur.user_id = u.id AND ur.role_id = $"+strconv.Itoa(len(args))+")")
	}
	return "WHERE " + strings.Join(clauses, " AND "), args
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var avatar *string
	var verifiedAt, deletedAt *time.Time
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &avatar, &user.IsActive,
		&verifiedAt, &deletedAt, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	if avatar != nil {
		user.Avatar = *avatar
	}
	user.EmailVerifiedAt = verifiedAt
	user.DeletedAt = deletedAt
	return user, nil
}
