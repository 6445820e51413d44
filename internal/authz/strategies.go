package authz

import "organizer-team/backend/internal/membership/domain"

// ScopeGuard denies requests whose memberships belong to a different organizer.
var ScopeGuard = NewStrategy("scope_guard", func(req Request) Decision {
	if m := req.Actor.Membership; m != nil && m.OrganizerID != req.Organizer.ID {
		return Deny
	}
	if t := req.targetMember(); t != nil && t.OrganizerID != req.Organizer.ID {
		return Deny
	}
	return Abstain
})

// LastOwnerGuard denies removing or demoting the only active owner. It runs before the
// platform administrator override so nobody can leave an organizer ownerless.
var LastOwnerGuard = NewStrategy("last_owner_guard", func(req Request) Decision {
	if !req.Capability.touchesOwners() {
		return Abstain
	}
	t := req.targetMember()
	if !t.IsActiveOwner() || req.Organizer.ActiveOwners > 1 {
		return Abstain
	}
	if req.Capability == CapRemove {
		return Deny
	}
	if nr := req.newRole(); nr != "" && nr != domain.RoleOwner {
		return Deny
	}
	return Abstain
})

// PlatformAdminOverride allows platform administrators everything the guards let through.
var PlatformAdminOverride = NewStrategy("platform_admin", func(req Request) Decision {
	if req.Actor.PlatformAdmin {
		return Allow
	}
	return Abstain
})

// SelfRemoval lets any active member leave the organizer. A pending invitee qualifies too,
// which is how an invitation is declined.
var SelfRemoval = NewStrategy("self_removal", func(req Request) Decision {
	if req.Capability != CapRemove {
		return Abstain
	}
	t := req.targetMember()
	if t == nil || t.UserID != req.Actor.UserID || req.Actor.Membership == nil || !req.Actor.Membership.IsActive {
		return Abstain
	}
	return Allow
})

// ActiveMemberRead allows read capabilities to any active, accepted member, skipping the hierarchy.
// A pending invitee sees nothing until they accept.
var ActiveMemberRead = NewStrategy("active_member_read", func(req Request) Decision {
	if !req.Capability.IsRead() {
		return Abstain
	}
	if req.Actor.Membership.CanAct() {
		return Allow
	}
	return Abstain
})

// ExplicitPermission allows actors holding a capability-specific or manage_team overlay grant,
// under a relaxed hierarchy:
//   - owners are never valid targets;
//   - a target that is manager-equivalent (role manager, or qualifying through the same grants)
//     may only be acted on by an actor whose role strictly outranks it;
//   - the only roles such an actor may hand out are staff and viewer.
var ExplicitPermission = NewStrategy("explicit_permission", func(req Request) Decision {
	if req.Capability.IsRead() {
		return Abstain
	}
	m := req.Actor.Membership
	grants := req.Capability.ExplicitPermissions()
	if !m.CanAct() || len(grants) == 0 || !m.Permissions.HasAny(grants...) {
		return Abstain
	}
	if nr := req.newRole(); nr != "" && nr != domain.RoleStaff && nr != domain.RoleViewer {
		return Abstain
	}
	t := req.targetMember()
	if t == nil {
		return Allow
	}
	if t.Role == domain.RoleOwner {
		return Abstain
	}
	equivalent := t.Role == domain.RoleManager || t.Permissions.HasAny(grants...)
	if equivalent && !m.Role.Outranks(t.Role) {
		return Abstain
	}
	return Allow
})

// RoleHierarchy is the role-based fallback: owners act on anyone, managers only on staff and
// viewers, and a manager may not hand out the owner or manager role.
var RoleHierarchy = NewStrategy("role_hierarchy", func(req Request) Decision {
	if req.Capability.IsRead() {
		return Abstain
	}
	m := req.Actor.Membership
	if !m.CanAct() || !m.Role.IsAdministrative() {
		return Abstain
	}
	if nr := req.newRole(); nr != "" && !m.Role.CanAssign(nr) {
		return Abstain
	}
	if t := req.targetMember(); t != nil && !m.Role.CanManage(t.Role) {
		return Abstain
	}
	return Allow
})
