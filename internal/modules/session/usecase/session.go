package usecase

import (
	"context"
	"time"

	"deepwork/internal/modules/session/domain"
	sessiondto "deepwork/internal/modules/session/dto"
	sessionin "deepwork/internal/modules/session/port/in"
	"deepwork/internal/modules/session/service"
	"deepwork/internal/platform/clock"
)

type Interactor struct {
	clock    clock.Clock
	sessions *service.SessionService
	queries  *service.QueryService
	sweeper  *service.Sweeper
}

func NewInteractor(clock clock.Clock, sessions *service.SessionService, queries *service.QueryService, sweeper *service.Sweeper) sessionin.Usecase {
	return &Interactor{clock: clock, sessions: sessions, queries: queries, sweeper: sweeper}
}

func (i *Interactor) Create(ctx context.Context, input sessiondto.CreateInput) (sessiondto.SessionOutput, error) {
	return i.respond(i.sessions.Create(ctx, input.Title, input.Goal, input.ScheduledMinutes))
}

func (i *Interactor) Start(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return i.respond(i.sessions.Start(ctx, sessionID))
}

func (i *Interactor) Pause(ctx context.Context, input sessiondto.PauseInput) (sessiondto.SessionOutput, error) {
	return i.respond(i.sessions.Pause(ctx, input.SessionID, input.Reason))
}

func (i *Interactor) Resume(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return i.respond(i.sessions.Resume(ctx, sessionID))
}

func (i *Interactor) Complete(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return i.respond(i.sessions.Complete(ctx, sessionID))
}

func (i *Interactor) Get(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return i.respond(i.queries.Get(ctx, sessionID))
}

func (i *Interactor) GetActive(ctx context.Context) (sessiondto.SessionOutput, error) {
	return i.respond(i.queries.GetActive(ctx))
}

func (i *Interactor) History(ctx context.Context) ([]sessiondto.SessionOutput, error) {
	sessions, err := i.queries.History(ctx)
	if err != nil {
		return nil, err
	}
	now := i.clock.Now()
	out := make([]sessiondto.SessionOutput, 0, len(sessions))
	for _, session := range sessions {
		out = append(out, toOutput(session, now))
	}
	return out, nil
}

func (i *Interactor) Sweep(ctx context.Context) (sessiondto.SweepOutput, error) {
	report, err := i.sweeper.SweepOnce(ctx)
	if err != nil {
		return sessiondto.SweepOutput{}, err
	}
	return sessiondto.SweepOutput{
		Scanned:   report.Scanned,
		Overdue:   report.Overdue,
		Abandoned: report.Abandoned,
		Failed:    report.Failed,
	}, nil
}

// respond stamps derived fields against the clock at response time.
func (i *Interactor) respond(session domain.Session, err error) (sessiondto.SessionOutput, error) {
	if err != nil {
		return sessiondto.SessionOutput{}, err
	}
	return toOutput(session, i.clock.Now()), nil
}

func toOutput(session domain.Session, now time.Time) sessiondto.SessionOutput {
	out := sessiondto.SessionOutput{
		ID:                      session.ID,
		Title:                   session.Title,
		Goal:                    session.Goal,
		ScheduledMinutes:        session.ScheduledMinutes,
		Status:                  string(session.Status),
		CreatedAt:               session.CreatedAt,
		StartTime:               session.StartTime,
		PauseCount:              session.PauseCount,
		PauseLog:                make([]sessiondto.PauseOutput, 0, len(session.PauseLog)),
		CumulativePausedSeconds: session.CumulativePausedSeconds,
		CompletedAt:             session.CompletedAt,
		ActualDurationMinutes:   session.ActualDurationMinutes,
		LastActivityAt:          session.LastActivity(),
	}
	for _, p := range session.PauseLog {
		out.PauseLog = append(out.PauseLog, sessiondto.PauseOutput{
			ID:        p.ID,
			Reason:    p.Reason,
			PausedAt:  p.PausedAt,
			ResumedAt: p.ResumedAt,
		})
	}
	if timer, ok := domain.TimerAt(session, now); ok {
		out.Timer = &sessiondto.TimerOutput{
			ElapsedSeconds:   timer.ElapsedSeconds,
			RemainingSeconds: timer.RemainingSeconds,
			Overtime:         timer.Overtime,
			WorkedSeconds:    timer.WorkedSeconds,
		}
		live := int(timer.WorkedSeconds / 60)
		out.ActualDurationMinutes = &live
	}
	return out
}
