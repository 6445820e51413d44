package rbac

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/service"
	"organizer-team/backend/internal/server/interceptors"
)

// mockChecker implements CapabilityChecker, PermissionChecker and MembershipGetter.
type mockChecker struct {
	authErr     error
	got         service.CheckRequest
	perms       map[string]domain.PermissionSet
	memberships map[string]*domain.Membership
	err         error
}

func (m *mockChecker) AuthorizeAction(ctx context.Context, req service.CheckRequest) error {
	m.got = req
	return m.authErr
}

func (m *mockChecker) HasPermission(ctx context.Context, organizerID, userID string, p domain.Permission) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.perms[userID].Has(p), nil
}

func (m *mockChecker) ActiveMembership(ctx context.Context, organizerID, userID string) (*domain.Membership, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.memberships[userID], nil
}

func caller(userID string) context.Context {
	return interceptors.WithIdentity(context.Background(), userID, "session-1")
}

func TestRequireCapability(t *testing.T) {
	tests := []struct {
		name    string
		ctx     context.Context
		orgID   string
		authErr error
		want    codes.Code
	}{
		{"allowed", caller("user-1"), "org-1", nil, codes.OK},
		{"no identity", context.Background(), "org-1", nil, codes.Unauthenticated},
		{"no organizer", caller("user-1"), "", nil, codes.InvalidArgument},
		{"denied", caller("user-1"), "org-1", domain.Unauthorized("no"), codes.PermissionDenied},
		{"missing target", caller("user-1"), "org-1", domain.NotFound("gone"), codes.NotFound},
		{"store down", caller("user-1"), "org-1", errors.New("db"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &mockChecker{authErr: tt.authErr}
			userID, err := RequireCapability(tt.ctx, checker, tt.orgID, authz.CapRemove, Target{UserID: "user-2"})
			if status.Code(err) != tt.want {
				t.Fatalf("code = %v, want %v (err %v)", status.Code(err), tt.want, err)
			}
			if tt.want != codes.OK {
				return
			}
			if userID != "user-1" {
				t.Errorf("user_id = %q, want user-1", userID)
			}
			if checker.got.ActorID != "user-1" || checker.got.TargetUserID != "user-2" || checker.got.Capability != authz.CapRemove {
				t.Errorf("check request = %+v", checker.got)
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	checker := &mockChecker{perms: map[string]domain.PermissionSet{
		"staff": domain.DefaultPermissions(domain.RoleStaff),
	}}
	if _, err := RequirePermission(caller("staff"), checker, "org-1", domain.PermViewEvents); err != nil {
		t.Fatalf("RequirePermission: %v", err)
	}
	_, err := RequirePermission(caller("staff"), checker, "org-1", domain.PermManageOrganizer)
	if status.Code(err) != codes.PermissionDenied {
		t.Errorf("code = %v, want PermissionDenied", status.Code(err))
	}
	_, err = RequirePermission(caller("staff"), &mockChecker{err: domain.InvalidPermission("fly")}, "org-1", "fly")
	if status.Code(err) != codes.InvalidArgument {
		t.Errorf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestRequireMember(t *testing.T) {
	checker := &mockChecker{memberships: map[string]*domain.Membership{
		"user-1": {ID: "m1", OrganizerID: "org-1", UserID: "user-1", Role: domain.RoleViewer, IsActive: true},
	}}
	m, err := RequireMember(caller("user-1"), checker, "org-1")
	if err != nil {
		t.Fatalf("RequireMember: %v", err)
	}
	if m.ID != "m1" {
		t.Errorf("membership = %q, want m1", m.ID)
	}
	if _, err := RequireMember(caller("user-2"), checker, "org-1"); status.Code(err) != codes.PermissionDenied {
		t.Errorf("non-member code = %v, want PermissionDenied", status.Code(err))
	}
	if _, err := RequireMember(caller("user-1"), &mockChecker{err: errors.New("db")}, "org-1"); status.Code(err) != codes.Internal {
		t.Errorf("store error code = %v, want Internal", status.Code(err))
	}
	if _, err := RequireMember(context.Background(), checker, "org-1"); status.Code(err) != codes.Unauthenticated {
		t.Errorf("no identity code = %v, want Unauthenticated", status.Code(err))
	}
}
