package domain

import "strings"

// Role is a member's position in an organizer's team hierarchy.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleStaff   Role = "staff"
	RoleViewer  Role = "viewer"
)

// Roles lists every role from highest to lowest rank.
var Roles = []Role{RoleOwner, RoleManager, RoleStaff, RoleViewer}

// ParseRole returns the role named by s (case-insensitive, surrounding space ignored).
// Unknown names fail with an InvalidInput error.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", InvalidInput("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is one of the four team roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Rank orders roles: owner 4, manager 3, staff 2, viewer 1. Unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 4
	case RoleManager:
		return 3
	case RoleStaff:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Outranks reports whether r is strictly above other.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// IsAdministrative reports whether r may administer the team (owner or manager).
func (r Role) IsAdministrative() bool {
	return r == RoleOwner || r == RoleManager
}

// CanManage reports whether a member holding r may act on a member holding target
// under the strict role hierarchy. Owners act on anyone; managers only on staff and viewers.
func (r Role) CanManage(target Role) bool {
	switch r {
	case RoleOwner:
		return true
	case RoleManager:
		return target == RoleStaff || target == RoleViewer
	default:
		return false
	}
}

// CanAssign reports whether a member holding r may hand out newRole.
// Managers cannot create owners or other managers.
func (r Role) CanAssign(newRole Role) bool {
	if !newRole.Valid() {
		return false
	}
	switch r {
	case RoleOwner:
		return true
	case RoleManager:
		return newRole == RoleStaff || newRole == RoleViewer
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}
