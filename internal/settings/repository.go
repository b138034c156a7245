package settings

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// RepositoryPort defines data access methods for settings.
type RepositoryPort interface {
	GetSetting(ctx context.Context, key string) (Setting, error)
	ListSettings(ctx context.Context) ([]Setting, error)
	UpsertSetting(ctx context.Context, key, value, typ string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSetting fetches one setting by key.
func (r *Repository) GetSetting(ctx context.Context, key string) (Setting, error) {
	row := r.pool.QueryRow(ctx, `SELECT key, value, type, updated_at FROM settings WHERE key = $1`, key)
	var s Setting
	if err := row.Scan(&s.Key, &s.Value, &s.Type, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Setting{}, shared.ErrNotFound
		}
		return Setting{}, err
	}
	return s, nil
}

// ListSettings returns every stored setting ordered by key.
func (r *Repository) ListSettings(ctx context.Context) ([]Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, type, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.Type, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertSetting writes one key, inserting or replacing.
func (r *Repository) UpsertSetting(ctx context.Context, key, value, typ string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO settings (key, value, type, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, type = EXCLUDED.type, updated_at = NOW()`,
		key, value, typ)
	return err
}

var _ RepositoryPort = (*Repository)(nil)
