package catalog

import "time"

// Service is an offered service type.
type Service struct {
	ID              string    `json:"id"`
	OrgID           string    `json:"org_id"`
	Name            string    `json:"name"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int       `json:"price_cents"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration converts the stored minute count.
func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

// Location is a physical business location. One location per org is marked
// primary and is the booking default.
type Location struct {
	ID      string `json:"id"`
	OrgID   string `json:"org_id"`
	Name    string `json:"name"`
	Primary bool   `json:"primary"`
}

// Spot is a physical station within a location (a chair, a room).
type Spot struct {
	ID         string `json:"id"`
	OrgID      string `json:"org_id"`
	LocationID string `json:"location_id"`
	Name       string `json:"name"`
}
