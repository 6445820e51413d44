package grpcerr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/membership/domain"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
		msg  string
	}{
		{"not found", domain.NotFound("user u1 not found"), codes.NotFound, "user u1 not found"},
		{"unauthorized", domain.Unauthorized("no"), codes.PermissionDenied, "no"},
		{"last owner", domain.InvariantViolation("cannot remove the last owner"), codes.FailedPrecondition, "cannot remove the last owner"},
		{"invalid state", domain.InvalidState("already removed"), codes.FailedPrecondition, "already removed"},
		{"already accepted", domain.AlreadyAccepted("accepted"), codes.FailedPrecondition, "accepted"},
		{"invalid permission", domain.InvalidPermission("fly"), codes.InvalidArgument, `unknown permission "fly"`},
		{"invalid input", domain.InvalidInput("email required"), codes.InvalidArgument, "email required"},
		{"wrapped kind", fmt.Errorf("invite: %w", domain.NotFound("gone")), codes.NotFound, "invite: gone"},
		{"deadline", fmt.Errorf("query: %w", context.DeadlineExceeded), codes.DeadlineExceeded, "query: context deadline exceeded"},
		{"database", errors.New("pq: connection reset"), codes.Internal, "internal error"},
		{"already status", status.Error(codes.Unauthenticated, "who"), codes.Unauthenticated, "who"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := status.Convert(FromError(tt.err))
			if st.Code() != tt.code {
				t.Errorf("code = %v, want %v", st.Code(), tt.code)
			}
			if st.Message() != tt.msg {
				t.Errorf("message = %q, want %q", st.Message(), tt.msg)
			}
		})
	}
	if FromError(nil) != nil {
		t.Error("FromError(nil) should be nil")
	}
}
