package rpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apperrors "deepwork/internal/platform/errors"
)

// ToStatus converts an engine error into a gRPC status error.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codeFor(err), err.Error())
}

func codeFor(err error) codes.Code {
	switch {
	case errors.Is(err, apperrors.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, apperrors.ErrNotFound):
		return codes.NotFound
	case errors.Is(err, apperrors.ErrConflict):
		return codes.AlreadyExists
	case errors.Is(err, apperrors.ErrInvalidTransition):
		return codes.FailedPrecondition
	default:
		return codes.Internal
	}
}

// RemoteError is an engine error received over the wire. It unwraps to the
// sentinel matching its status code so callers can keep using errors.Is.
type RemoteError struct {
	Code    codes.Code
	Message string
	kind    error
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Unwrap() error {
	return e.kind
}

// FromStatus reverses ToStatus on the client side.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var kind error
	switch st.Code() {
	case codes.InvalidArgument:
		kind = apperrors.ErrInvalidArgument
		if st.Message() == apperrors.ErrEmptyReason.Error() {
			kind = apperrors.ErrEmptyReason
		}
	case codes.NotFound:
		kind = apperrors.ErrNotFound
		if st.Message() == apperrors.ErrNoActiveSession.Error() {
			kind = apperrors.ErrNoActiveSession
		}
	case codes.AlreadyExists:
		kind = apperrors.ErrConflict
	case codes.FailedPrecondition:
		kind = apperrors.ErrInvalidTransition
	default:
		return err
	}
	return &RemoteError{Code: st.Code(), Message: st.Message(), kind: kind}
}
