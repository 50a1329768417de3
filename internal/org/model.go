package org

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a tenant.
type Status string

const (
	StatusOnboarding Status = "onboarding"
	StatusActive     Status = "active"
	StatusSuspended  Status = "suspended"
	StatusChurned    Status = "churned"
)

// ParseStatus converts a storage string into a Status.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusOnboarding, StatusActive, StatusSuspended, StatusChurned:
		return Status(raw), nil
	default:
		return "", fmt.Errorf("org: unknown status %q", raw)
	}
}

// Organization is one business tenant, identified by its dedicated
// WhatsApp number.
type Organization struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Status         Status    `json:"status"`
	WhatsAppNumber string    `json:"whatsapp_number"`
	Timezone       string    `json:"timezone"`
	CreatedAt      time.Time `json:"created_at"`
}

// Serving reports whether the tenant accepts customer bookings. Suspended
// and churned tenants still resolve as tenants so staff can reach their
// data, but customers get a scripted reply.
func (o *Organization) Serving() bool {
	return o.Status == StatusActive || o.Status == StatusOnboarding
}

// Location loads the tz database entry for the org, falling back to UTC.
func (o *Organization) Location() *time.Location {
	if o == nil || o.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(o.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
