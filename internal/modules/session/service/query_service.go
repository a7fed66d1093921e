package service

import (
	"context"
	"sort"
	"time"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	apperrors "deepwork/internal/platform/errors"
)

// QueryService serves read-only projections. It never takes session locks.
type QueryService struct {
	store sessionout.SessionStore
}

func NewQueryService(store sessionout.SessionStore) *QueryService {
	return &QueryService{store: store}
}

func (q *QueryService) Get(ctx context.Context, sessionID string) (domain.Session, error) {
	return q.store.Get(ctx, sessionID)
}

// GetActive returns the session holding focus, or ErrNoActiveSession.
func (q *QueryService) GetActive(ctx context.Context) (domain.Session, error) {
	sessions, err := q.store.ListAll(ctx)
	if err != nil {
		return domain.Session{}, err
	}
	var (
		active domain.Session
		found  bool
	)
	for _, session := range sessions {
		if !session.Status.HoldsFocus() {
			continue
		}
		if !found || session.CreatedAt.After(active.CreatedAt) {
			active = session
			found = true
		}
	}
	if !found {
		return domain.Session{}, apperrors.ErrNoActiveSession
	}
	return active, nil
}

// History lists every session, most recent first. Sessions are ranked by
// start time, or by creation time when never started.
func (q *QueryService) History(ctx context.Context) ([]domain.Session, error) {
	sessions, err := q.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		ki, kj := recency(sessions[i]), recency(sessions[j])
		if !ki.Equal(kj) {
			return ki.After(kj)
		}
		return sessions[i].ID > sessions[j].ID
	})
	return sessions, nil
}

func recency(s domain.Session) time.Time {
	if s.StartTime != nil {
		return *s.StartTime
	}
	return s.CreatedAt
}
