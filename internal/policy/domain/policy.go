package domain

import (
	"errors"
	"time"
)

// Policy is an organizer-level Rego module that can veto team operations.
type Policy struct {
	ID          string
	OrganizerID string
	Name        string
	// Rules is Rego source in package organizer.team.
	Rules     string
	Enabled   bool
	CreatedAt time.Time
}

// Validate checks required fields.
func (p *Policy) Validate() error {
	if p.OrganizerID == "" {
		return errors.New("organizer_id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Rules == "" {
		return errors.New("rules are required")
	}
	return nil
}
