package roles

import "time"

// Role represents a named group of permissions.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	UserCount   int       `json:"user_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateInput carries the fields for role creation.
type CreateInput struct {
	Name          string
	Description   string
	PermissionIDs []int64
}

// UpdateInput carries a partial role patch. Nil fields stay untouched.
type UpdateInput struct {
	Name        *string
	Description *string
}
