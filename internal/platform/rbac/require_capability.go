package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/authz"
	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/membership/service"
	"organizer-team/backend/internal/platform/grpcerr"
	"organizer-team/backend/internal/server/interceptors"
)

// CapabilityChecker answers whether the caller may exercise a team-management capability.
type CapabilityChecker interface {
	AuthorizeAction(ctx context.Context, req service.CheckRequest) error
}

// CallerID returns the authenticated user id or an Unauthenticated error.
func CallerID(ctx context.Context) (string, error) {
	userID, ok := interceptors.GetUserID(ctx)
	if !ok || userID == "" {
		return "", status.Error(codes.Unauthenticated, "user context required")
	}
	return userID, nil
}

// Target narrows a capability check to one member and, for role changes and invitations,
// the role being assigned.
type Target struct {
	UserID  string
	NewRole domain.Role
}

// RequireCapability ensures the caller may exercise c in the organizer.
// Returns the caller's user id on success; returns a gRPC error (Unauthenticated, InvalidArgument,
// NotFound or PermissionDenied) on failure.
func RequireCapability(ctx context.Context, checker CapabilityChecker, organizerID string, c authz.Capability, target Target) (string, error) {
	userID, err := CallerID(ctx)
	if err != nil {
		return "", err
	}
	if organizerID == "" {
		return "", status.Error(codes.InvalidArgument, "organizer_id is required")
	}
	err = checker.AuthorizeAction(ctx, service.CheckRequest{
		OrganizerID:  organizerID,
		ActorID:      userID,
		Capability:   c,
		TargetUserID: target.UserID,
		NewRole:      target.NewRole,
	})
	if err != nil {
		return "", grpcerr.FromError(err)
	}
	return userID, nil
}
