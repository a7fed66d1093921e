package out

import (
	"context"

	"deepwork/internal/modules/session/domain"
)

// SessionStore persists sessions. Update runs mutate on a copy of the stored
// session while holding that session's lock and commits the copy only when
// mutate returns nil. Distinct ids never contend.
type SessionStore interface {
	Create(ctx context.Context, session domain.Session) error
	Get(ctx context.Context, id string) (domain.Session, error)
	Update(ctx context.Context, id string, mutate func(*domain.Session) error) (domain.Session, error)
	ListAll(ctx context.Context) ([]domain.Session, error)
}
