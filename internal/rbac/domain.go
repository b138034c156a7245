package rbac

// Permission represents an atomic capability. The permission vocabulary
// is seeded once and immutable at runtime.
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Module      string `json:"module"`
}

// RoleGrant bundles one role attached to a user together with the
// permission names that role carries.
type RoleGrant struct {
	RoleID      int64
	RoleName    string
	Permissions []string
}
