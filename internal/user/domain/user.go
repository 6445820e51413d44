package domain

import (
	"errors"
	"time"
)

// User is the platform account referenced by organizer memberships.
type User struct {
	ID    string
	Email string
	Name  string
	// PasswordHash is a bcrypt hash. Invited users get a hash of random bytes nobody knows
	// until they complete registration.
	PasswordHash string
	// EmailVerified is false for accounts created by an invitation.
	EmailVerified bool
	// IsPlatformAdmin grants the platform-wide administrator override.
	IsPlatformAdmin bool
	Status          UserStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	return nil
}
