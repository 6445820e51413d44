package domain

import (
	"errors"
	"time"
)

// Organizer is the tenant that owns events. Team membership is always scoped to one organizer.
type Organizer struct {
	ID        string
	Name      string
	Status    OrganizerStatus
	CreatedAt time.Time
}

type OrganizerStatus string

const (
	OrganizerStatusActive    OrganizerStatus = "active"
	OrganizerStatusSuspended OrganizerStatus = "suspended"
)

// Validate validates the organizer for persistence. Returns an error describing the first validation failure.
func (o *Organizer) Validate() error {
	if o.Name == "" {
		return errors.New("name is required")
	}
	if o.Status == "" {
		o.Status = OrganizerStatusActive
	}
	return nil
}
