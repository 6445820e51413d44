package handler

import (
	"context"

	"google.golang.org/grpc"

	"organizer-team/backend/internal/platform/grpcdesc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "organizer.team.v1.MembershipService"

// MembershipServiceServer is the server API for MembershipService.
type MembershipServiceServer interface {
	Invite(context.Context, *InviteRequest) (*MemberResponse, error)
	Accept(context.Context, *AcceptRequest) (*MemberResponse, error)
	GrantPermissions(context.Context, *PermissionsRequest) (*MemberResponse, error)
	RevokePermissions(context.Context, *PermissionsRequest) (*MemberResponse, error)
	ReplacePermissions(context.Context, *PermissionsRequest) (*MemberResponse, error)
	UpdateRole(context.Context, *UpdateRoleRequest) (*MemberResponse, error)
	RemoveMember(context.Context, *RemoveMemberRequest) (*MemberResponse, error)
	GetMember(context.Context, *GetMemberRequest) (*MemberResponse, error)
	ListMembers(context.Context, *ListMembersRequest) (*ListMembersResponse, error)
	Check(context.Context, *CheckRequest) (*CheckResponse, error)
}

// ServiceDesc describes MembershipService. Messages are plain structs carried by the JSON codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MembershipServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		grpcdesc.Unary(ServiceName, "Invite", MembershipServiceServer.Invite),
		grpcdesc.Unary(ServiceName, "Accept", MembershipServiceServer.Accept),
		grpcdesc.Unary(ServiceName, "GrantPermissions", MembershipServiceServer.GrantPermissions),
		grpcdesc.Unary(ServiceName, "RevokePermissions", MembershipServiceServer.RevokePermissions),
		grpcdesc.Unary(ServiceName, "ReplacePermissions", MembershipServiceServer.ReplacePermissions),
		grpcdesc.Unary(ServiceName, "UpdateRole", MembershipServiceServer.UpdateRole),
		grpcdesc.Unary(ServiceName, "RemoveMember", MembershipServiceServer.RemoveMember),
		grpcdesc.Unary(ServiceName, "GetMember", MembershipServiceServer.GetMember),
		grpcdesc.Unary(ServiceName, "ListMembers", MembershipServiceServer.ListMembers),
		grpcdesc.Unary(ServiceName, "Check", MembershipServiceServer.Check),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "organizer/team/v1/membership.json",
}

// RegisterMembershipServiceServer registers srv on s.
func RegisterMembershipServiceServer(s grpc.ServiceRegistrar, srv MembershipServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
