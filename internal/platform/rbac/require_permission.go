package rbac

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/membership/domain"
	"organizer-team/backend/internal/platform/grpcerr"
)

// PermissionChecker resolves effective permissions (role defaults plus overlay).
type PermissionChecker interface {
	HasPermission(ctx context.Context, organizerID, userID string, p domain.Permission) (bool, error)
}

// MembershipGetter returns the caller's active, accepted membership or nil.
type MembershipGetter interface {
	ActiveMembership(ctx context.Context, organizerID, userID string) (*domain.Membership, error)
}

// RequirePermission ensures the caller holds p in the organizer. Features outside team management
// (events, venues, bookings) gate their RPCs with it.
func RequirePermission(ctx context.Context, checker PermissionChecker, organizerID string, p domain.Permission) (string, error) {
	userID, err := CallerID(ctx)
	if err != nil {
		return "", err
	}
	if organizerID == "" {
		return "", status.Error(codes.InvalidArgument, "organizer_id is required")
	}
	ok, err := checker.HasPermission(ctx, organizerID, userID, p)
	if err != nil {
		return "", grpcerr.FromError(err)
	}
	if !ok {
		return "", status.Errorf(codes.PermissionDenied, "permission %s required", p)
	}
	return userID, nil
}

// RequireMember ensures the caller is an active, accepted member of the organizer (any role).
func RequireMember(ctx context.Context, getter MembershipGetter, organizerID string) (*domain.Membership, error) {
	userID, err := CallerID(ctx)
	if err != nil {
		return nil, err
	}
	m, err := getter.ActiveMembership(ctx, organizerID, userID)
	if err != nil {
		return nil, status.Error(codes.Internal, "failed to resolve membership")
	}
	if m == nil {
		return nil, status.Error(codes.PermissionDenied, "not a member of this organizer")
	}
	return m, nil
}
