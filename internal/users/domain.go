package users

import (
	"time"

	"github.com/meridian-hq/meridian-admin/internal/shared"
)

// User represents a managed user account. PasswordHash never crosses
// the HTTP boundary; the json tag keeps it out of envelopes. Avatar is
// a stored reference (path or URL); upload mechanics live elsewhere.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Avatar          string     `json:"avatar,omitempty"`
	IsActive        bool       `json:"is_active"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	DeletedAt       *time.Time `json:"-"`
	Roles           []RoleRef  `json:"roles,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// RoleRef is the compact role shape embedded in user payloads.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CreateInput carries fields for registering a user via the admin API.
type CreateInput struct {
	Name     string
	Email    string
	Password string
	Avatar   string
	IsActive bool
	RoleIDs  []int64
}

// UpdateInput is a partial patch; nil fields stay untouched. RoleIDs,
// when present, replaces the membership set entirely.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Avatar   *string
	IsActive *bool
	RoleIDs  *[]int64
}

// ListFilters narrows user listings.
type ListFilters struct {
	Search   string
	RoleID   *int64
	Page     int
	PageSize int
}

// Result bundles a page of users with pagination metadata.
type Result struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}
