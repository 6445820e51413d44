package handler

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/repository"
	"organizer-team/backend/internal/membership/service"
	"organizer-team/backend/internal/platform/grpcerr"
	"organizer-team/backend/internal/platform/rbac"
)

// Actions is the membership service used by the handler.
type Actions interface {
	Invite(ctx context.Context, in service.InviteInput) (*domain.Membership, error)
	Accept(ctx context.Context, in service.AcceptInput) (*domain.Membership, error)
	Grant(ctx context.Context, in service.PermissionsInput) (*domain.Membership, error)
	Revoke(ctx context.Context, in service.PermissionsInput) (*domain.Membership, error)
	Replace(ctx context.Context, in service.PermissionsInput) (*domain.Membership, error)
	UpdateRole(ctx context.Context, in service.UpdateRoleInput) (*domain.Membership, error)
	Remove(ctx context.Context, in service.RemoveInput) (*domain.Membership, error)
	Get(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
	List(ctx context.Context, organizerID string, filter repository.ListFilter) ([]*domain.Membership, error)
}

// Authorizer answers capability checks for the caller.
type Authorizer interface {
	rbac.CapabilityChecker
	Check(ctx context.Context, req service.CheckRequest) (service.Verdict, error)
}

// Server implements MembershipService. Every mutating RPC is authorized against current state
// (decider plus organizer policies) and then executed by the action, which re-checks inside its
// transaction.
type Server struct {
	actions Actions
	authz   Authorizer
}

// NewServer returns a new MembershipService server.
func NewServer(actions Actions, authorizer Authorizer) *Server {
	return &Server{actions: actions, authz: authorizer}
}

// Invite invites a user to the organizer team.
func (s *Server) Invite(ctx context.Context, req *InviteRequest) (*MemberResponse, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	callerID, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapInvite, rbac.Target{NewRole: role})
	if err != nil {
		return nil, err
	}
	m, err := s.actions.Invite(ctx, service.InviteInput{
		OrganizerID: req.OrganizerID,
		InviterID:   callerID,
		UserID:      req.UserID,
		Email:       req.Email,
		Role:        role,
		Permissions: req.Permissions,
		Message:     req.Message,
	})
	return memberResponse(m, err)
}

// Accept accepts the caller's pending invitation. Only the invitee can accept.
func (s *Server) Accept(ctx context.Context, req *AcceptRequest) (*MemberResponse, error) {
	callerID, err := rbac.CallerID(ctx)
	if err != nil {
		return nil, err
	}
	if req.OrganizerID == "" {
		return nil, status.Error(codes.InvalidArgument, "organizer_id is required")
	}
	m, err := s.actions.Accept(ctx, service.AcceptInput{OrganizerID: req.OrganizerID, UserID: callerID})
	return memberResponse(m, err)
}

// GrantPermissions adds permissions to a member's overlay.
func (s *Server) GrantPermissions(ctx context.Context, req *PermissionsRequest) (*MemberResponse, error) {
	return s.mutatePermissions(ctx, req, s.actions.Grant)
}

// RevokePermissions removes permissions from a member's overlay.
func (s *Server) RevokePermissions(ctx context.Context, req *PermissionsRequest) (*MemberResponse, error) {
	return s.mutatePermissions(ctx, req, s.actions.Revoke)
}

// ReplacePermissions sets a member's overlay.
func (s *Server) ReplacePermissions(ctx context.Context, req *PermissionsRequest) (*MemberResponse, error) {
	return s.mutatePermissions(ctx, req, s.actions.Replace)
}

func (s *Server) mutatePermissions(ctx context.Context, req *PermissionsRequest, apply func(context.Context, service.PermissionsInput) (*domain.Membership, error)) (*MemberResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if _, err := domain.ParsePermissions(req.Permissions); err != nil {
		return nil, grpcerr.FromError(err)
	}
	callerID, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapManagePermissions, rbac.Target{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	m, err := apply(ctx, service.PermissionsInput{
		OrganizerID:  req.OrganizerID,
		TargetUserID: req.UserID,
		ActorID:      callerID,
		Permissions:  req.Permissions,
	})
	return memberResponse(m, err)
}

// UpdateRole changes a member's role and optionally replaces their overlay.
func (s *Server) UpdateRole(ctx context.Context, req *UpdateRoleRequest) (*MemberResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	callerID, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapUpdateRole, rbac.Target{UserID: req.UserID, NewRole: role})
	if err != nil {
		return nil, err
	}
	m, err := s.actions.UpdateRole(ctx, service.UpdateRoleInput{
		OrganizerID:  req.OrganizerID,
		TargetUserID: req.UserID,
		ActorID:      callerID,
		NewRole:      role,
		Permissions:  req.Permissions,
	})
	return memberResponse(m, err)
}

// RemoveMember deactivates a member. Members may remove themselves.
func (s *Server) RemoveMember(ctx context.Context, req *RemoveMemberRequest) (*MemberResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	callerID, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapRemove, rbac.Target{UserID: req.UserID})
	if err != nil {
		return nil, err
	}
	m, err := s.actions.Remove(ctx, service.RemoveInput{
		OrganizerID:  req.OrganizerID,
		TargetUserID: req.UserID,
		ActorID:      callerID,
		Reason:       req.Reason,
	})
	return memberResponse(m, err)
}

// GetMember returns one membership.
func (s *Server) GetMember(ctx context.Context, req *GetMemberRequest) (*MemberResponse, error) {
	if req.UserID == "" {
		return nil, status.Error(codes.InvalidArgument, "user_id is required")
	}
	if _, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapViewMember, rbac.Target{UserID: req.UserID}); err != nil {
		return nil, err
	}
	m, err := s.actions.Get(ctx, req.OrganizerID, req.UserID)
	return memberResponse(m, err)
}

// ListMembers lists the organizer's team.
func (s *Server) ListMembers(ctx context.Context, req *ListMembersRequest) (*ListMembersResponse, error) {
	filter := repository.ListFilter{ActiveOnly: req.ActiveOnly, PendingOnly: req.PendingOnly}
	for _, r := range req.Roles {
		role, err := domain.ParseRole(r)
		if err != nil {
			return nil, grpcerr.FromError(err)
		}
		filter.Roles = append(filter.Roles, role)
	}
	if _, err := rbac.RequireCapability(ctx, s.authz, req.OrganizerID, authz.CapViewTeam, rbac.Target{}); err != nil {
		return nil, err
	}
	list, err := s.actions.List(ctx, req.OrganizerID, filter)
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	out := make([]*Member, 0, len(list))
	for _, m := range list {
		out = append(out, toMember(m))
	}
	return &ListMembersResponse{Members: out}, nil
}

// Check reports whether the caller may exercise a capability without performing it.
func (s *Server) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	callerID, err := rbac.CallerID(ctx)
	if err != nil {
		return nil, err
	}
	capability, err := authz.ParseCapability(req.Capability)
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	var role domain.Role
	if req.NewRole != "" {
		if role, err = domain.ParseRole(req.NewRole); err != nil {
			return nil, grpcerr.FromError(err)
		}
	}
	v, err := s.authz.Check(ctx, service.CheckRequest{
		OrganizerID:  req.OrganizerID,
		ActorID:      callerID,
		Capability:   capability,
		TargetUserID: req.TargetUserID,
		NewRole:      role,
	})
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	return &CheckResponse{Allowed: v.Allowed, DecidedBy: v.DecidedBy, Violations: v.Violations}, nil
}

func memberResponse(m *domain.Membership, err error) (*MemberResponse, error) {
	if err != nil {
		return nil, grpcerr.FromError(err)
	}
	return &MemberResponse{Member: toMember(m)}, nil
}
