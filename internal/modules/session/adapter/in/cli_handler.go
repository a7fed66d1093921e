package in

import (
	"context"

	sessiondto "deepwork/internal/modules/session/dto"
	sessionin "deepwork/internal/modules/session/port/in"
)

type CLIHandler struct {
	usecase sessionin.Usecase
}

func NewCLIHandler(usecase sessionin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Create(ctx context.Context, title, goal string, minutes int) (sessiondto.SessionOutput, error) {
	return h.usecase.Create(ctx, sessiondto.CreateInput{Title: title, Goal: goal, ScheduledMinutes: minutes})
}

func (h CLIHandler) Start(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Start(ctx, sessionID)
}

func (h CLIHandler) Pause(ctx context.Context, sessionID, reason string) (sessiondto.SessionOutput, error) {
	return h.usecase.Pause(ctx, sessiondto.PauseInput{SessionID: sessionID, Reason: reason})
}

func (h CLIHandler) Resume(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Resume(ctx, sessionID)
}

func (h CLIHandler) Complete(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Complete(ctx, sessionID)
}

func (h CLIHandler) Show(ctx context.Context, sessionID string) (sessiondto.SessionOutput, error) {
	return h.usecase.Get(ctx, sessionID)
}

func (h CLIHandler) Active(ctx context.Context) (sessiondto.SessionOutput, error) {
	return h.usecase.GetActive(ctx)
}

func (h CLIHandler) History(ctx context.Context) ([]sessiondto.HistoryItem, error) {
	sessions, err := h.usecase.History(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]sessiondto.HistoryItem, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, session.Item())
	}
	return items, nil
}

func (h CLIHandler) Sweep(ctx context.Context) (sessiondto.SweepOutput, error) {
	return h.usecase.Sweep(ctx)
}
