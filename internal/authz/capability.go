package authz

import "organizer-team/backend/internal/membership/domain"

// Capability names an operation an actor may attempt against an organizer.
type Capability string

const (
	CapInvite            Capability = "invite"
	CapRemove            Capability = "remove"
	CapUpdateRole        Capability = "update_role"
	CapManagePermissions Capability = "manage_permissions"
	CapViewTeam          Capability = "view_team"
	CapViewMember        Capability = "view_member"
	CapManageOrganizer   Capability = "manage_organizer"
	CapManageSettings    Capability = "manage_settings"
)

// Capabilities lists every capability the decider understands.
var Capabilities = []Capability{
	CapInvite, CapRemove, CapUpdateRole, CapManagePermissions,
	CapViewTeam, CapViewMember, CapManageOrganizer, CapManageSettings,
}

// explicitGrants maps each capability to the overlay permissions that unlock it.
var explicitGrants = map[Capability][]domain.Permission{
	CapInvite:            {domain.PermInviteUsers, domain.PermManageTeam},
	CapRemove:            {domain.PermRemoveTeamMembers, domain.PermManageTeam},
	CapUpdateRole:        {domain.PermEditTeamRoles, domain.PermManageTeam},
	CapManagePermissions: {domain.PermManageTeamPermissions, domain.PermManageTeam},
	CapManageOrganizer:   {domain.PermManageOrganizer},
	CapManageSettings:    {domain.PermManageSettings},
}

// ParseCapability returns the capability named s.
func ParseCapability(s string) (Capability, error) {
	for _, c := range Capabilities {
		if string(c) == s {
			return c, nil
		}
	}
	return "", domain.InvalidInput("unknown capability %q", s)
}

// IsRead reports whether c only reads team state.
func (c Capability) IsRead() bool {
	return c == CapViewTeam || c == CapViewMember
}

// ExplicitPermissions returns the overlay permissions that grant c, if any.
func (c Capability) ExplicitPermissions() []domain.Permission {
	return explicitGrants[c]
}

// touchesOwners reports whether c can reduce the number of active owners.
func (c Capability) touchesOwners() bool {
	return c == CapRemove || c == CapUpdateRole
}
