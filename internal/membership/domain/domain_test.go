package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestParseRole(t *testing.T) {
	testCases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"owner", RoleOwner, false},
		{" Manager ", RoleManager, false},
		{"STAFF", RoleStaff, false},
		{"viewer", RoleViewer, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRole(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("ParseRole(%q) err = %v, want InvalidInput", tc.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRole(%q): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestRole_CanManage(t *testing.T) {
	testCases := []struct {
		actor, target Role
		want          bool
	}{
		{RoleOwner, RoleOwner, true},
		{RoleOwner, RoleManager, true},
		{RoleOwner, RoleViewer, true},
		{RoleManager, RoleOwner, false},
		{RoleManager, RoleManager, false},
		{RoleManager, RoleStaff, true},
		{RoleManager, RoleViewer, true},
		{RoleStaff, RoleViewer, false},
		{RoleViewer, RoleViewer, false},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%s_on_%s", tc.actor, tc.target), func(t *testing.T) {
			if got := tc.actor.CanManage(tc.target); got != tc.want {
				t.Errorf("CanManage = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRole_CanAssign(t *testing.T) {
	if !RoleOwner.CanAssign(RoleOwner) {
		t.Error("owner should assign owner")
	}
	if RoleManager.CanAssign(RoleOwner) || RoleManager.CanAssign(RoleManager) {
		t.Error("manager must not assign owner or manager")
	}
	if !RoleManager.CanAssign(RoleStaff) || !RoleManager.CanAssign(RoleViewer) {
		t.Error("manager should assign staff and viewer")
	}
	if RoleOwner.CanAssign(Role("root")) {
		t.Error("unknown role must not be assignable")
	}
}

func TestParsePermissions_DedupesAndSorts(t *testing.T) {
	got, err := ParsePermissions([]string{"edit_events", "view_team", "edit_events"})
	if err != nil {
		t.Fatalf("ParsePermissions: %v", err)
	}
	want := PermissionSet{PermEditEvents, PermViewTeam}
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestParsePermissions_UnknownNamed(t *testing.T) {
	_, err := ParsePermissions([]string{"edit_events", "launch_rockets"})
	if !errors.Is(err, ErrInvalidPermission) {
		t.Fatalf("err = %v, want InvalidPermission", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.Permission != "launch_rockets" {
		t.Errorf("offending permission = %+v, want launch_rockets", e)
	}
}

func TestPermissionSet_UnionWithoutRoundTrip(t *testing.T) {
	before := NewPermissionSet(PermViewReports)
	added := before.Union(NewPermissionSet(PermEditEvents))
	if !added.Has(PermEditEvents) || !added.Has(PermViewReports) {
		t.Fatalf("union = %v", added)
	}
	if again := added.Union(NewPermissionSet(PermEditEvents)); !again.Equal(added) {
		t.Errorf("union not idempotent: %v vs %v", again, added)
	}
	if back := added.Without(NewPermissionSet(PermEditEvents)); !back.Equal(before) {
		t.Errorf("round trip = %v, want %v", back, before)
	}
}

func TestDefaultPermissions(t *testing.T) {
	owner := DefaultPermissions(RoleOwner)
	if !owner.Equal(Catalog()) {
		t.Error("owner defaults should cover the whole catalog")
	}
	if DefaultPermissions(RoleManager).Has(PermManagePayouts) {
		t.Error("manager must not imply manage_payouts")
	}
	if !DefaultPermissions(RoleViewer).Has(PermViewEvents) {
		t.Error("viewer should imply view_events")
	}
	for _, r := range Roles {
		for _, p := range DefaultPermissions(r) {
			if !IsKnownPermission(p) {
				t.Errorf("role %s implies unknown permission %q", r, p)
			}
		}
	}
}

func TestMembership_Permissions(t *testing.T) {
	m := &Membership{Role: RoleStaff, Permissions: NewPermissionSet(PermManageTeam)}
	if !m.HasPermission(PermEditEvents) {
		t.Error("staff default edit_events missing")
	}
	if !m.HasPermission(PermManageTeam) || !m.HasExplicitPermission(PermManageTeam) {
		t.Error("explicit manage_team missing")
	}
	if m.HasExplicitPermission(PermEditEvents) {
		t.Error("role default reported as explicit")
	}
	if !m.EffectivePermissions().Has(PermManageTeam) {
		t.Error("effective permissions should include overlay")
	}
}

func TestMembership_CanAct(t *testing.T) {
	now := time.Now()
	if (&Membership{IsActive: true}).CanAct() {
		t.Error("pending member must not act")
	}
	if (&Membership{IsActive: false, InvitationAcceptedAt: &now}).CanAct() {
		t.Error("inactive member must not act")
	}
	if !(&Membership{IsActive: true, InvitationAcceptedAt: &now}).CanAct() {
		t.Error("active accepted member should act")
	}
	var nilM *Membership
	if nilM.CanAct() {
		t.Error("nil membership must not act")
	}
}

func TestMembership_CloneIsDeep(t *testing.T) {
	now := time.Now()
	m := &Membership{Permissions: NewPermissionSet(PermEditEvents), InvitationAcceptedAt: &now}
	c := m.Clone()
	c.Permissions[0] = PermViewTeam
	later := now.Add(time.Hour)
	*c.InvitationAcceptedAt = later
	if m.Permissions[0] != PermEditEvents || !m.InvitationAcceptedAt.Equal(now) {
		t.Error("clone shares state with original")
	}
}

func TestError_Is(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Unauthorized("manager cannot modify owner"))
	if !errors.Is(err, ErrUnauthorized) {
		t.Error("wrapped Unauthorized should match ErrUnauthorized")
	}
	if errors.Is(err, ErrNotFound) {
		t.Error("Unauthorized must not match ErrNotFound")
	}
	if !errors.Is(ErrAlreadyAccepted, ErrInvalidState) {
		t.Error("AlreadyAccepted should match InvalidState")
	}
	if errors.Is(ErrInvalidState, ErrAlreadyAccepted) {
		t.Error("InvalidState must not match AlreadyAccepted")
	}
	if KindOf(err) != KindUnauthorized {
		t.Errorf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain error should have no kind")
	}
}
