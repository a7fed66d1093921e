package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	"deepwork/internal/platform/clock"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/platform/id"
	"deepwork/internal/platform/tx"
)

// SessionService applies lifecycle transitions. Every transition runs inside
// the store's per-session Update so concurrent callers on one id serialize.
type SessionService struct {
	clock  clock.Clock
	idGen  id.Generator
	store  sessionout.SessionStore
	tx     tx.Manager
	policy domain.Policy
	inst   instruments
}

func NewSessionService(clock clock.Clock, idGen id.Generator, store sessionout.SessionStore, txm tx.Manager, policy domain.Policy) *SessionService {
	if txm == nil {
		txm = &tx.Serial{}
	}
	if policy.InterruptThreshold <= 0 {
		policy.InterruptThreshold = domain.DefaultInterruptThreshold
	}
	return &SessionService{
		clock:  clock,
		idGen:  idGen,
		store:  store,
		tx:     txm,
		policy: policy,
		inst:   newInstruments(),
	}
}

// Create schedules a new session. It fails with a conflict while any other
// session is scheduled, active or paused.
func (s *SessionService) Create(ctx context.Context, title, goal string, minutes int) (domain.Session, error) {
	ctx, span := s.inst.tracer.Start(ctx, "session.create")
	defer span.End()

	session, err := domain.NewSession(s.idGen.New(), title, goal, minutes, s.clock.Now())
	if err != nil {
		s.inst.observe(ctx, span, "create", err)
		return domain.Session{}, err
	}
	err = s.tx.Within(context.WithoutCancel(ctx), func(ctx context.Context) error {
		sessions, err := s.store.ListAll(ctx)
		if err != nil {
			return err
		}
		for _, existing := range sessions {
			if existing.Status.HoldsFocus() {
				return fmt.Errorf("%w: session %s is already %s", apperrors.ErrConflict, existing.ID, existing.Status)
			}
		}
		return s.store.Create(ctx, session)
	})
	s.inst.observe(ctx, span, "create", err)
	if err != nil {
		return domain.Session{}, err
	}
	span.SetAttributes(attribute.String("session.id", session.ID))
	return session, nil
}

func (s *SessionService) Start(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.transition(ctx, domain.OpStart, sessionID, func(session *domain.Session, now time.Time) error {
		return session.Start(now)
	})
}

func (s *SessionService) Pause(ctx context.Context, sessionID, reason string) (domain.Session, error) {
	ctx, span := s.startOp(ctx, domain.OpPause, sessionID)
	defer span.End()

	normalized, err := domain.NormalizeReason(reason)
	if err != nil {
		s.inst.observe(ctx, span, string(domain.OpPause), err)
		return domain.Session{}, err
	}
	pauseID := s.idGen.New()
	return s.update(ctx, span, domain.OpPause, sessionID, func(session *domain.Session, now time.Time) error {
		return session.Pause(pauseID, normalized, now)
	})
}

func (s *SessionService) Resume(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.transition(ctx, domain.OpResume, sessionID, func(session *domain.Session, now time.Time) error {
		return session.Resume(now)
	})
}

func (s *SessionService) Complete(ctx context.Context, sessionID string) (domain.Session, error) {
	return s.transition(ctx, domain.OpComplete, sessionID, func(session *domain.Session, now time.Time) error {
		return session.Complete(now, s.policy.InterruptThreshold)
	})
}

// transition reads the clock under the session lock so the timestamp always
// follows the previous holder's write. In-flight updates ignore cancellation.
func (s *SessionService) transition(ctx context.Context, op domain.Op, sessionID string, apply func(*domain.Session, time.Time) error) (domain.Session, error) {
	ctx, span := s.startOp(ctx, op, sessionID)
	defer span.End()
	return s.update(ctx, span, op, sessionID, apply)
}

func (s *SessionService) startOp(ctx context.Context, op domain.Op, sessionID string) (context.Context, trace.Span) {
	return s.inst.tracer.Start(ctx, "session."+string(op), trace.WithAttributes(attribute.String("session.id", sessionID)))
}

func (s *SessionService) update(ctx context.Context, span trace.Span, op domain.Op, sessionID string, apply func(*domain.Session, time.Time) error) (domain.Session, error) {
	updated, err := s.store.Update(context.WithoutCancel(ctx), sessionID, func(session *domain.Session) error {
		return apply(session, s.clock.Now())
	})
	s.inst.observe(ctx, span, string(op), err)
	if err != nil {
		return domain.Session{}, err
	}
	span.SetAttributes(attribute.String("session.status", string(updated.Status)))
	return updated, nil
}
