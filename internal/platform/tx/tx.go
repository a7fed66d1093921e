package tx

import (
	"context"
	"sync"
)

// Manager wraps transactional boundaries for multi-step store operations.
type Manager interface {
	Within(ctx context.Context, fn func(context.Context) error) error
}

// Serial runs every unit of work one at a time.
type Serial struct {
	mu sync.Mutex
}

func (s *Serial) Within(ctx context.Context, fn func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
