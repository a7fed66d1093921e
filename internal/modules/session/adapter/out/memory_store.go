package out

import (
	"context"
	"fmt"
	"sync"

	"deepwork/internal/modules/session/domain"
	sessionout "deepwork/internal/modules/session/port/out"
	apperrors "deepwork/internal/platform/errors"
	"deepwork/internal/platform/lock"
)

// MemoryStore keeps sessions in process. Reads return deep copies.
type MemoryStore struct {
	locks *lock.Keyed

	mu       sync.RWMutex
	sessions map[string]domain.Session
	order    []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{locks: lock.NewKeyed(), sessions: map[string]domain.Session{}}
}

var _ sessionout.SessionStore = (*MemoryStore)(nil)

func (s *MemoryStore) Create(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.ID]; ok {
		return fmt.Errorf("%w: session %s already exists", apperrors.ErrConflict, session.ID)
	}
	s.sessions[session.ID] = session.Clone()
	s.order = append(s.order, session.ID)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, notFound(id)
	}
	return session.Clone(), nil
}

func (s *MemoryStore) Update(_ context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	s.mu.RLock()
	current, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return domain.Session{}, notFound(id)
	}
	working := current.Clone()
	if err := mutate(&working); err != nil {
		return domain.Session{}, err
	}

	s.mu.Lock()
	s.sessions[id] = working.Clone()
	s.mu.Unlock()
	return working, nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Session, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.sessions[id].Clone())
	}
	return out, nil
}

func notFound(id string) error {
	return fmt.Errorf("%w: session %s", apperrors.ErrNotFound, id)
}
