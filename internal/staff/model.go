package staff

import "time"

// Permission is the member's access level inside their org.
type Permission string

const (
	PermissionOwner   Permission = "owner"
	PermissionManager Permission = "manager"
	PermissionStaff   Permission = "staff"
)

// Member is an employee or owner. Members are also chat actors: a message
// from a member's phone routes to the staff handler.
type Member struct {
	ID         string     `json:"id"`
	OrgID      string     `json:"org_id"`
	Name       string     `json:"name"`
	Phone      string     `json:"phone"`
	Permission Permission `json:"permission"`
	Active     bool       `json:"active"`
	CreatedAt  time.Time  `json:"created_at"`
}
