package audit

import "time"

// Fixed action vocabulary for audit entries.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Entry is one immutable audit record. There is no update or delete
// path for persisted entries.
type Entry struct {
	ID int64 `json:"id"`
	// ActorID is nil for system-initiated actions.
	ActorID    *int64         `json:"actor_id"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	ResourceID *int64         `json:"resource_id"`
	OldValues  map[string]any `json:"old_values"`
	NewValues  map[string]any `json:"new_values"`
	IP         string         `json:"ip"`
	UserAgent  string         `json:"user_agent"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Actor carries the identifying fields of the acting user joined onto
// a listed entry. Password material never appears here.
type Actor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Row pairs an entry with its resolved actor, when one exists.
type Row struct {
	Entry
	Actor *Actor `json:"actor"`
}

// Filters narrows audit listings. From/To form a closed date range.
type Filters struct {
	ActorID    *int64
	Action     string
	Resource   string
	ResourceID *int64
	From       time.Time
	To         time.Time
	// SortAsc flips the creation-time ordering; default is descending.
	SortAsc  bool
	Page     int
	PageSize int
}

// ListParams is the repository-level query shape with an explicit
// row window computed by the service.
type ListParams struct {
	Filters
	Offset int
	Limit  int
}

// PagingInfo holds simple page metadata for timeline listings.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result bundles a page of rows with paging metadata.
type Result struct {
	Rows   []Row      `json:"rows"`
	Paging PagingInfo `json:"paging"`
}
