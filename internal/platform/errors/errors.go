package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrEmptyReason       = fmt.Errorf("%w: pause reason is empty", ErrInvalidArgument)
	ErrNoActiveSession   = fmt.Errorf("%w: no active session", ErrNotFound)
)

// TransitionError reports an operation attempted from a status that does not
// allow it. It matches ErrInvalidTransition.
type TransitionError struct {
	SessionID string
	Status    string
	Op        string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s session %s in %q state", e.Op, e.SessionID, e.Status)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// ArgumentError reports a malformed input field. It matches ErrInvalidArgument.
type ArgumentError struct {
	Field  string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}
