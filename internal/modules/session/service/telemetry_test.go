package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	sessionout "deepwork/internal/modules/session/adapter/out"
	"deepwork/internal/modules/session/domain"
	"deepwork/internal/platform/clock"
	"deepwork/internal/platform/id"
)

type recordingCounter struct {
	noop.Int64Counter
	mu   sync.Mutex
	seen []string
}

func (c *recordingCounter) Add(_ context.Context, _ int64, opts ...metric.AddOption) {
	attrs := metric.NewAddConfig(opts).Attributes()
	op, _ := attrs.Value("op")
	outcome, _ := attrs.Value("outcome")
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, op.AsString()+"/"+outcome.AsString())
}

func (c *recordingCounter) outcomes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.seen...)
}

func TestTransitionsCountEveryOutcome(t *testing.T) {
	t.Parallel()
	clk := clock.NewManual(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	svc := NewSessionService(clk, id.UUID{}, sessionout.NewMemoryStore(), nil, domain.DefaultPolicy())
	counter := &recordingCounter{}
	svc.inst.transitions = counter
	ctx := context.Background()

	s, err := svc.Create(ctx, "Profile allocator", "", 40)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Pause(ctx, s.ID, "   "); err == nil {
		t.Fatalf("expected empty reason to fail")
	}
	if _, err := svc.Pause(ctx, s.ID, "lunch"); err == nil {
		t.Fatalf("expected pause of scheduled session to fail")
	}
	if _, err := svc.Start(ctx, s.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	want := []string{
		"create/ok",
		"pause/invalid_argument",
		"pause/invalid_transition",
		"start/ok",
	}
	got := counter.outcomes()
	if len(got) != len(want) {
		t.Fatalf("outcomes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("outcomes = %v, want %v", got, want)
		}
	}
}
