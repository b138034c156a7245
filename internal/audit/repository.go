package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for audit logs.
// Only insert and filtered select exist; entries are never updated.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert appends one entry.
func (r *Repository) Insert(ctx context.Context, entry Entry) error {
	oldJSON, err := marshalValues(entry.OldValues)
	if err != nil {
		return err
	}
	newJSON, err := marshalValues(entry.NewValues)
	if err != nil {
		return err
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO audit_logs (actor_id, action, resource, resource_id, old_values, new_values, ip, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ActorID, entry.Action, entry.Resource, entry.ResourceID,
		oldJSON, newJSON, entry.IP, entry.UserAgent, createdAt)
	return err
}

// ListEntries loads a page of rows with the acting user's identifying
// fields eagerly joined.
func (r *Repository) ListEntries(ctx context.Context, params ListParams) ([]Row, error) {
	var (
		conditions []string
		args       []any
	)
	add := func(clause string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(clause, len(args)))
	}
	if params.ActorID != nil {
		add("a.actor_id = $%d", *params.ActorID)
	}
	if params.Action != "" {
		add("a.action = $%d", params.Action)
	}
	if params.Resource != "" {
		add("a.resource = $%d", params.Resource)
	}
	if params.ResourceID != nil {
		add("a.resource_id = $%d", *params.ResourceID)
	}
	if !params.From.IsZero() {
		add("a.created_at >= $%d", params.From)
	}
	if !params.To.IsZero() {
		add("a.created_at <= $%d", params.To)
	}

	query := `
		SELECT a.id, a.actor_id, a.action, a.resource, a.resource_id,
		       a.old_values, a.new_values, a.ip, a.user_agent, a.created_at,
		       u.id, u.name, u.email
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	direction := "DESC"
	if params.SortAsc {
		direction = "ASC"
	}
	args = append(args, params.Offset)
	offsetArg := len(args)
	args = append(args, limitOrDefault(params.Limit))
	limitArg := len(args)
	query += fmt.Sprintf(" ORDER BY a.created_at %s, a.id %s OFFSET $%d LIMIT $%d", direction, direction, offsetArg, limitArg)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var (
			row        Row
			oldJSON    []byte
			newJSON    []byte
			actorID    *int64
			actorName  *string
			actorEmail *string
		)
		if err := rows.Scan(
			&row.ID, &row.Entry.ActorID, &row.Action, &row.Resource, &row.ResourceID,
			&oldJSON, &newJSON, &row.IP, &row.UserAgent, &row.CreatedAt,
			&actorID, &actorName, &actorEmail,
		); err != nil {
			return nil, err
		}
		if len(oldJSON) > 0 {
			if err := json.Unmarshal(oldJSON, &row.OldValues); err != nil {
				return nil, err
			}
		}
		if len(newJSON) > 0 {
			if err := json.Unmarshal(newJSON, &row.NewValues); err != nil {
				return nil, err
			}
		}
		if actorID != nil {
			actor := Actor{ID: *actorID}
			if actorName != nil {
				actor.Name = *actorName
			}
			if actorEmail != nil {
				actor.Email = *actorEmail
			}
			row.Actor = &actor
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func marshalValues(values map[string]any) ([]byte, error) {
	if values == nil {
		return nil, nil
	}
	return json.Marshal(values)
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	return limit
}

var (
	_ Sink   = (*Repository)(nil)
	_ Reader = (*Repository)(nil)
)
