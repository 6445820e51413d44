package domain

import (
	"slices"
	"strings"
)

// Permission is a fine-grained capability that can be granted on top of a role.
type Permission string

// Team administration.
const (
	PermManageTeam            Permission = "manage_team"
	PermInviteUsers           Permission = "invite_users"
	PermEditTeamRoles         Permission = "edit_team_roles"
	PermRemoveTeamMembers     Permission = "remove_team_members"
	PermManageTeamPermissions Permission = "manage_team_permissions"
	PermViewTeam              Permission = "view_team"
)

// Organizer profile and settings.
const (
	PermManageOrganizer Permission = "manage_organizer"
	PermManageSettings  Permission = "manage_settings"
)

// Events, venues, bookings, finance and marketing.
const (
	PermCreateEvents     Permission = "create_events"
	PermEditEvents       Permission = "edit_events"
	PermDeleteEvents     Permission = "delete_events"
	PermPublishEvents    Permission = "publish_events"
	PermViewEvents       Permission = "view_events"
	PermManageVenues     Permission = "manage_venues"
	PermViewBookings     Permission = "view_bookings"
	PermManageBookings   Permission = "manage_bookings"
	PermCheckInAttendees Permission = "check_in_attendees"
	PermViewReports      Permission = "view_reports"
	PermExportReports    Permission = "export_reports"
	PermViewFinances     Permission = "view_finances"
	PermManagePayouts    Permission = "manage_payouts"
	PermManageCoupons    Permission = "manage_coupons"
)

var catalog = NewPermissionSet(
	PermManageTeam, PermInviteUsers, PermEditTeamRoles, PermRemoveTeamMembers, PermManageTeamPermissions, PermViewTeam,
	PermManageOrganizer, PermManageSettings,
	PermCreateEvents, PermEditEvents, PermDeleteEvents, PermPublishEvents, PermViewEvents,
	PermManageVenues,
	PermViewBookings, PermManageBookings, PermCheckInAttendees,
	PermViewReports, PermExportReports, PermViewFinances, PermManagePayouts,
	PermManageCoupons,
)

var roleDefaults = map[Role]PermissionSet{
	RoleOwner: catalog,
	RoleManager: NewPermissionSet(
		PermInviteUsers, PermEditTeamRoles, PermRemoveTeamMembers, PermViewTeam,
		PermCreateEvents, PermEditEvents, PermDeleteEvents, PermPublishEvents, PermViewEvents,
		PermManageVenues,
		PermViewBookings, PermManageBookings, PermCheckInAttendees,
		PermViewReports, PermExportReports, PermViewFinances,
		PermManageCoupons,
	),
	RoleStaff: NewPermissionSet(
		PermViewTeam,
		PermCreateEvents, PermEditEvents, PermViewEvents,
		PermViewBookings, PermManageBookings, PermCheckInAttendees,
	),
	RoleViewer: NewPermissionSet(
		PermViewTeam, PermViewEvents, PermViewBookings, PermViewReports,
	),
}

// Catalog returns every valid permission identifier, sorted.
func Catalog() PermissionSet {
	return slices.Clone(catalog)
}

// IsKnownPermission reports whether p is present in the catalog.
func IsKnownPermission(p Permission) bool {
	return catalog.Has(p)
}

// DefaultPermissions returns the permissions implied by r. Unknown roles imply nothing.
func DefaultPermissions(r Role) PermissionSet {
	return slices.Clone(roleDefaults[r])
}

// PermissionSet is a sorted, duplicate-free list of permissions.
// The zero value is an empty set.
type PermissionSet []Permission

// NewPermissionSet sorts and deduplicates ps without validating them against the catalog.
func NewPermissionSet(ps ...Permission) PermissionSet {
	out := make(PermissionSet, 0, len(ps))
	out = append(out, ps...)
	slices.Sort(out)
	return slices.Compact(out)
}

// ParsePermissions validates raw identifiers against the catalog and returns them as a set.
// The first unknown identifier fails with an InvalidPermission error naming it.
func ParsePermissions(raw []string) (PermissionSet, error) {
	ps := make([]Permission, 0, len(raw))
	for _, s := range raw {
		p := Permission(strings.TrimSpace(s))
		if !IsKnownPermission(p) {
			return nil, InvalidPermission(s)
		}
		ps = append(ps, p)
	}
	return NewPermissionSet(ps...), nil
}

// Has reports whether p is in the set.
func (s PermissionSet) Has(p Permission) bool {
	_, found := slices.BinarySearch(s, p)
	return found
}

// HasAny reports whether any of ps is in the set.
func (s PermissionSet) HasAny(ps ...Permission) bool {
	for _, p := range ps {
		if s.Has(p) {
			return true
		}
	}
	return false
}

// Union returns the set of permissions in s or other.
func (s PermissionSet) Union(other PermissionSet) PermissionSet {
	out := make([]Permission, 0, len(s)+len(other))
	out = append(out, s...)
	out = append(out, other...)
	return NewPermissionSet(out...)
}

// Without returns s minus every permission in other.
func (s PermissionSet) Without(other PermissionSet) PermissionSet {
	out := make(PermissionSet, 0, len(s))
	for _, p := range s {
		if !other.Has(p) {
			out = append(out, p)
		}
	}
	return out
}

// Equal reports whether both sets hold the same permissions.
func (s PermissionSet) Equal(other PermissionSet) bool {
	return slices.Equal(s, other)
}

// Strings returns the identifiers as plain strings, never nil.
func (s PermissionSet) Strings() []string {
	out := make([]string, len(s))
	for i, p := range s {
		out[i] = string(p)
	}
	return out
}
