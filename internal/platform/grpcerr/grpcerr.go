// Package grpcerr translates membership errors into gRPC status errors.
package grpcerr

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"organizer-team/backend/internal/membership/domain"
)

// Code returns the status code for err's membership kind.
func Code(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if st, ok := status.FromError(err); ok {
		return st.Code()
	}
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return codes.NotFound
	case domain.KindUnauthorized:
		return codes.PermissionDenied
	case domain.KindInvariantViolation, domain.KindInvalidState, domain.KindAlreadyAccepted:
		return codes.FailedPrecondition
	case domain.KindInvalidPermission, domain.KindInvalidInput:
		return codes.InvalidArgument
	}
	switch {
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	}
	return codes.Internal
}

// FromError returns a status error for err. Internal failures get a generic message so that
// database details do not reach the caller.
func FromError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	code := Code(err)
	if code == codes.Internal {
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
