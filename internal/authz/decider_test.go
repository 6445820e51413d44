package authz

import (
	"testing"
	"time"

	"organizer-team/backend/internal/membership/domain"
)

const orgID = "org-1"

var accepted = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func member(userID string, role domain.Role, perms ...domain.Permission) *domain.Membership {
	at := accepted
	return &domain.Membership{
		ID:                   "m-" + userID,
		OrganizerID:          orgID,
		UserID:               userID,
		Role:                 role,
		Permissions:          domain.NewPermissionSet(perms...),
		IsActive:             true,
		InvitationAcceptedAt: &at,
	}
}

func actorOf(m *domain.Membership) Actor {
	return Actor{UserID: m.UserID, Membership: m}
}

func org(owners int) Organizer {
	return Organizer{ID: orgID, ActiveOwners: owners}
}

func TestCan_RoleHierarchy(t *testing.T) {
	d := NewDefaultDecider()
	tests := []struct {
		name    string
		actor   domain.Role
		target  domain.Role
		newRole domain.Role
		cap     Capability
		want    bool
	}{
		{"owner removes manager", domain.RoleOwner, domain.RoleManager, "", CapRemove, true},
		{"owner removes other owner", domain.RoleOwner, domain.RoleOwner, "", CapRemove, true},
		{"manager removes staff", domain.RoleManager, domain.RoleStaff, "", CapRemove, true},
		{"manager removes viewer", domain.RoleManager, domain.RoleViewer, "", CapRemove, true},
		{"manager removes manager", domain.RoleManager, domain.RoleManager, "", CapRemove, false},
		{"manager removes owner", domain.RoleManager, domain.RoleOwner, "", CapRemove, false},
		{"manager promotes staff to viewer", domain.RoleManager, domain.RoleStaff, domain.RoleViewer, CapUpdateRole, true},
		{"manager promotes staff to manager", domain.RoleManager, domain.RoleStaff, domain.RoleManager, CapUpdateRole, false},
		{"manager promotes staff to owner", domain.RoleManager, domain.RoleStaff, domain.RoleOwner, CapUpdateRole, false},
		{"owner promotes staff to owner", domain.RoleOwner, domain.RoleStaff, domain.RoleOwner, CapUpdateRole, true},
		{"staff removes viewer", domain.RoleStaff, domain.RoleViewer, "", CapRemove, false},
		{"viewer updates viewer", domain.RoleViewer, domain.RoleViewer, domain.RoleStaff, CapUpdateRole, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := member("actor", tt.actor)
			target := &Target{Membership: member("target", tt.target), NewRole: tt.newRole}
			if got := d.Can(actorOf(a), tt.cap, org(2), target); got != tt.want {
				t.Errorf("Can = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCan_UntargetedCapabilities(t *testing.T) {
	d := NewDefaultDecider()
	tests := []struct {
		name  string
		actor *domain.Membership
		cap   Capability
		want  bool
	}{
		{"owner invites", member("a", domain.RoleOwner), CapInvite, true},
		{"manager invites", member("a", domain.RoleManager), CapInvite, true},
		{"staff invites", member("a", domain.RoleStaff), CapInvite, false},
		{"staff with invite_users invites", member("a", domain.RoleStaff, domain.PermInviteUsers), CapInvite, true},
		{"viewer with manage_team invites", member("a", domain.RoleViewer, domain.PermManageTeam), CapInvite, true},
		{"staff with view_events invites", member("a", domain.RoleStaff, domain.PermViewEvents), CapInvite, false},
		{"manager manages settings", member("a", domain.RoleManager), CapManageSettings, true},
		{"staff with manage_settings", member("a", domain.RoleStaff, domain.PermManageSettings), CapManageSettings, true},
		{"staff with manage_team cannot manage organizer", member("a", domain.RoleStaff, domain.PermManageTeam), CapManageOrganizer, false},
		{"no membership", nil, CapInvite, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := Actor{UserID: "a", Membership: tt.actor}
			if got := d.Can(actor, tt.cap, org(1), nil); got != tt.want {
				t.Errorf("Can = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCan_InactiveOrPendingActorDenied(t *testing.T) {
	d := NewDefaultDecider()
	inactive := member("a", domain.RoleOwner)
	inactive.IsActive = false
	pending := member("b", domain.RoleOwner)
	pending.InvitationAcceptedAt = nil
	target := &Target{Membership: member("t", domain.RoleStaff)}
	for _, m := range []*domain.Membership{inactive, pending} {
		if d.Can(actorOf(m), CapRemove, org(2), target) {
			t.Errorf("actor %s: expected deny", m.UserID)
		}
	}
}

func TestCan_ExplicitPermissionRelaxedHierarchy(t *testing.T) {
	d := NewDefaultDecider()
	tests := []struct {
		name   string
		actor  *domain.Membership
		target *domain.Membership
		cap    Capability
		role   domain.Role
		want   bool
	}{
		{"staff with remove perm removes viewer", member("a", domain.RoleStaff, domain.PermRemoveTeamMembers), member("t", domain.RoleViewer), CapRemove, "", true},
		{"staff with remove perm removes staff", member("a", domain.RoleStaff, domain.PermRemoveTeamMembers), member("t", domain.RoleStaff), CapRemove, "", true},
		{"staff with manage_team never touches owner", member("a", domain.RoleStaff, domain.PermManageTeam), member("t", domain.RoleOwner), CapRemove, "", false},
		{"staff with manage_team on manager", member("a", domain.RoleStaff, domain.PermManageTeam), member("t", domain.RoleManager), CapRemove, "", false},
		{"equal tier both qualifying", member("a", domain.RoleStaff, domain.PermRemoveTeamMembers), member("t", domain.RoleStaff, domain.PermManageTeam), CapRemove, "", false},
		{"manager with perm on qualifying staff", member("a", domain.RoleManager, domain.PermManageTeam), member("t", domain.RoleStaff, domain.PermManageTeam), CapRemove, "", true},
		{"staff with edit roles demotes staff to viewer", member("a", domain.RoleStaff, domain.PermEditTeamRoles), member("t", domain.RoleStaff), CapUpdateRole, domain.RoleViewer, true},
		{"staff with edit roles cannot assign manager", member("a", domain.RoleStaff, domain.PermEditTeamRoles), member("t", domain.RoleViewer), CapUpdateRole, domain.RoleManager, false},
		{"staff with edit roles cannot assign owner", member("a", domain.RoleStaff, domain.PermEditTeamRoles), member("t", domain.RoleViewer), CapUpdateRole, domain.RoleOwner, false},
		{"wrong perm for capability", member("a", domain.RoleStaff, domain.PermInviteUsers), member("t", domain.RoleViewer), CapRemove, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := &Target{Membership: tt.target, NewRole: tt.role}
			if got := d.Can(actorOf(tt.actor), tt.cap, org(2), target); got != tt.want {
				t.Errorf("Can = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCan_LastOwnerGuard(t *testing.T) {
	d := NewDefaultDecider()
	owner := member("owner", domain.RoleOwner)
	admin := Actor{UserID: "admin", PlatformAdmin: true}

	if d.Can(actorOf(owner), CapRemove, org(1), &Target{Membership: owner}) {
		t.Error("sole owner removing self must be denied")
	}
	if d.Can(admin, CapRemove, org(1), &Target{Membership: owner}) {
		t.Error("platform admin removing sole owner must be denied")
	}
	if d.Can(admin, CapUpdateRole, org(1), &Target{Membership: owner, NewRole: domain.RoleManager}) {
		t.Error("platform admin demoting sole owner must be denied")
	}
	if !d.Can(actorOf(owner), CapUpdateRole, org(1), &Target{Membership: owner, NewRole: domain.RoleOwner}) {
		t.Error("owner to owner is not a demotion")
	}
	if !d.Can(actorOf(owner), CapRemove, org(2), &Target{Membership: owner}) {
		t.Error("owner leaving with a co-owner must be allowed")
	}
	dec, by := d.Decide(Request{Actor: admin, Capability: CapRemove, Organizer: org(1), Target: &Target{Membership: owner}})
	if dec != Deny || by != "last_owner_guard" {
		t.Errorf("Decide = %v by %q", dec, by)
	}
}

func TestCan_PlatformAdminOverride(t *testing.T) {
	d := NewDefaultDecider()
	admin := Actor{UserID: "admin", PlatformAdmin: true}
	for _, c := range Capabilities {
		target := &Target{Membership: member("t", domain.RoleOwner), NewRole: domain.RoleOwner}
		if !d.Can(admin, c, org(2), target) {
			t.Errorf("admin denied %s", c)
		}
	}
}

func TestCan_SelfRemoval(t *testing.T) {
	d := NewDefaultDecider()
	viewer := member("v", domain.RoleViewer)
	if !d.Can(actorOf(viewer), CapRemove, org(1), &Target{Membership: viewer}) {
		t.Error("viewer leaving should be allowed")
	}
	if d.Can(actorOf(viewer), CapUpdateRole, org(1), &Target{Membership: viewer, NewRole: domain.RoleOwner}) {
		t.Error("self promotion must be denied")
	}
	pending := member("p", domain.RoleStaff)
	pending.InvitationAcceptedAt = nil
	if !d.Can(actorOf(pending), CapRemove, org(1), &Target{Membership: pending}) {
		t.Error("pending invitee declining should be allowed")
	}
}

func TestCan_ReadCapabilities(t *testing.T) {
	d := NewDefaultDecider()
	viewer := member("v", domain.RoleViewer)
	if !d.Can(actorOf(viewer), CapViewTeam, org(1), nil) {
		t.Error("active viewer should view team")
	}
	removed := member("r", domain.RoleManager)
	removed.IsActive = false
	if d.Can(actorOf(removed), CapViewTeam, org(1), nil) {
		t.Error("removed member must not view team")
	}
	if d.Can(Actor{UserID: "stranger"}, CapViewMember, org(1), nil) {
		t.Error("non-member must not view")
	}
	pending := member("p", domain.RoleViewer)
	pending.InvitationAcceptedAt = nil
	for _, c := range []Capability{CapViewTeam, CapViewMember} {
		if d.Can(actorOf(pending), c, org(1), nil) {
			t.Errorf("pending invitee must not %s before accepting", c)
		}
	}
}

func TestCan_ScopeGuard(t *testing.T) {
	d := NewDefaultDecider()
	owner := member("o", domain.RoleOwner)
	other := member("t", domain.RoleStaff)
	other.OrganizerID = "org-2"
	if d.Can(actorOf(owner), CapRemove, org(1), &Target{Membership: other}) {
		t.Error("cross-organizer target must be denied")
	}
}

func TestDecide_EmptyChainDenies(t *testing.T) {
	dec, by := NewDecider().Decide(Request{Actor: Actor{PlatformAdmin: true}, Capability: CapInvite})
	if dec != Deny || by != "default" {
		t.Errorf("Decide = %v by %q", dec, by)
	}
}

func TestParseCapability(t *testing.T) {
	if c, err := ParseCapability("update_role"); err != nil || c != CapUpdateRole {
		t.Fatalf("ParseCapability = %q, %v", c, err)
	}
	if _, err := ParseCapability("fly"); domain.KindOf(err) != domain.KindInvalidInput {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestActionStrategies_SkipLastOwnerGuard(t *testing.T) {
	d := NewDecider(ActionStrategies()...)
	owner := member("owner", domain.RoleOwner)
	dec, by := d.Decide(Request{Actor: actorOf(owner), Capability: CapRemove, Organizer: org(1), Target: &Target{Membership: owner}})
	if dec != Allow || by != "self_removal" {
		t.Errorf("Decide = %v by %q", dec, by)
	}
}
