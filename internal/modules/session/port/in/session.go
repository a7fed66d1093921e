package in

import (
	"context"

	"deepwork/internal/modules/session/dto"
)

type Usecase interface {
	Create(ctx context.Context, input dto.CreateInput) (dto.SessionOutput, error)
	Start(ctx context.Context, sessionID string) (dto.SessionOutput, error)
	Pause(ctx context.Context, input dto.PauseInput) (dto.SessionOutput, error)
	Resume(ctx context.Context, sessionID string) (dto.SessionOutput, error)
	Complete(ctx context.Context, sessionID string) (dto.SessionOutput, error)
	Get(ctx context.Context, sessionID string) (dto.SessionOutput, error)
	GetActive(ctx context.Context) (dto.SessionOutput, error)
	History(ctx context.Context) ([]dto.SessionOutput, error)
	Sweep(ctx context.Context) (dto.SweepOutput, error)
}
