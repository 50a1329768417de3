package onboarding

import "time"

// Lead is an unrecognized sender who messaged the central number. Leads are
// captured so the sales flow can follow up; the chat side only runs a short
// script.
type Lead struct {
	ID           string    `json:"id"`
	Phone        string    `json:"phone"`
	BusinessName *string   `json:"business_name"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
