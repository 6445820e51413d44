package domain

import (
	"errors"
	"slices"
	"time"
)

// Membership links a user to an organizer with a role and an explicit permission overlay.
// At most one row exists per (OrganizerID, UserID); removal deactivates it instead of deleting it.
type Membership struct {
	ID          string
	OrganizerID string
	UserID      string
	Role        Role
	// Permissions are granted on top of the role defaults. Empty means role defaults only.
	Permissions PermissionSet
	IsActive    bool
	InvitedBy   string
	// JoinedAt is reset on every invite or reinvite.
	JoinedAt time.Time
	// InvitationAcceptedAt is nil while the invitation is pending.
	InvitationAcceptedAt *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsPending reports whether the invitation has not been accepted yet.
func (m *Membership) IsPending() bool {
	return m.InvitationAcceptedAt == nil
}

// CanAct reports whether the member may exercise their role: active and accepted.
func (m *Membership) CanAct() bool {
	return m != nil && m.IsActive && m.InvitationAcceptedAt != nil
}

// IsActiveOwner reports whether m counts toward the organizer's owner total.
// A pending owner invitation does not count.
func (m *Membership) IsActiveOwner() bool {
	return m.CanAct() && m.Role == RoleOwner
}

// EffectivePermissions returns the role defaults combined with the explicit overlay.
func (m *Membership) EffectivePermissions() PermissionSet {
	return DefaultPermissions(m.Role).Union(m.Permissions)
}

// HasPermission reports whether p is implied by the role or granted explicitly.
func (m *Membership) HasPermission(p Permission) bool {
	return m.Permissions.Has(p) || roleDefaults[m.Role].Has(p)
}

// HasExplicitPermission reports whether p is in the overlay, ignoring role defaults.
func (m *Membership) HasExplicitPermission(p Permission) bool {
	return m.Permissions.Has(p)
}

// Clone returns a deep copy so callers can compute a new state without touching the original.
func (m *Membership) Clone() *Membership {
	if m == nil {
		return nil
	}
	c := *m
	c.Permissions = slices.Clone(m.Permissions)
	if m.InvitationAcceptedAt != nil {
		t := *m.InvitationAcceptedAt
		c.InvitationAcceptedAt = &t
	}
	return &c
}

// Validate checks the row before persistence.
func (m *Membership) Validate() error {
	if m.OrganizerID == "" {
		return errors.New("organizer_id is required")
	}
	if m.UserID == "" {
		return errors.New("user_id is required")
	}
	if !m.Role.Valid() {
		return errors.New("role is invalid")
	}
	for _, p := range m.Permissions {
		if !IsKnownPermission(p) {
			return InvalidPermission(string(p))
		}
	}
	return nil
}
