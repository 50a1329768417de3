package customer

import "time"

// Customer is a booking end customer. Created lazily with phone only on
// first contact and enriched over later turns.
type Customer struct {
	ID        string    `json:"id"`
	OrgID     string    `json:"org_id"`
	Phone     string    `json:"phone"`
	Name      *string   `json:"name,omitempty"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayName returns the stored name or a fallback.
func (c *Customer) DisplayName() string {
	if c != nil && c.Name != nil && *c.Name != "" {
		return *c.Name
	}
	return "there"
}
