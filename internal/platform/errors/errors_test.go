package apperrors_test

import (
	"errors"
	"fmt"
	"testing"

	apperrors "deepwork/internal/platform/errors"
)

func TestTransitionErrorMatchesSentinelThroughWrapping(t *testing.T) {
	t.Parallel()
	err := fmt.Errorf("start: %w", &apperrors.TransitionError{SessionID: "s-1", Status: "overdue", Op: "start"})
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition match, got %v", err)
	}
	if errors.Is(err, apperrors.ErrInvalidArgument) {
		t.Fatalf("transition error must not match invalid argument")
	}
	var te *apperrors.TransitionError
	if !errors.As(err, &te) || te.Status != "overdue" || te.Op != "start" {
		t.Fatalf("expected transition details, got %+v", te)
	}
	if got := te.Error(); got != `cannot start session s-1 in "overdue" state` {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestArgumentErrorAndDerivedSentinels(t *testing.T) {
	t.Parallel()
	if !errors.Is(&apperrors.ArgumentError{Field: "title", Reason: "required"}, apperrors.ErrInvalidArgument) {
		t.Fatalf("argument error must match invalid argument")
	}
	if !errors.Is(apperrors.ErrEmptyReason, apperrors.ErrInvalidArgument) {
		t.Fatalf("empty reason must be an invalid argument")
	}
	if !errors.Is(apperrors.ErrNoActiveSession, apperrors.ErrNotFound) {
		t.Fatalf("no active session must be a not found")
	}
}
